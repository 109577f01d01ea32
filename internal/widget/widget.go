// Package widget is the headless chat widget: input rules, the in-flight
// guard and the expiry gate in front of the relay client.
package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/mazleon/portfolio-website/internal/chat"
	"github.com/mazleon/portfolio-website/internal/chatclient"
)

// MaxInputLength is the longest message, in characters, a visitor may send.
const MaxInputLength = 60

// ExpiredBanner is shown once the session quota is spent.
const ExpiredBanner = "Session limit reached. Refresh the page for a new session."

var (
	ErrEmptyInput     = errors.New("message is empty")
	ErrInputTooLong   = fmt.Errorf("message exceeds %d characters", MaxInputLength)
	ErrBusy           = errors.New("a message is already being sent")
	ErrSessionExpired = errors.New("session limit reached")
)

// Sender delivers a message with its prior history and always yields a reply.
type Sender interface {
	Send(ctx context.Context, message string, history []chat.Turn) chatclient.Reply
}

// Widget drives one visitor's conversation.
type Widget struct {
	session  *chat.Session
	sender   Sender
	name     string
	inFlight atomic.Bool
}

// New creates a Widget for the portfolio owner called name.
func New(session *chat.Session, sender Sender, name string) *Widget {
	return &Widget{session: session, sender: sender, name: name}
}

// Submit sends input and returns the assistant turn that was appended.
// Nothing is sent once the session has expired.
func (w *Widget) Submit(ctx context.Context, input string) (chat.Turn, error) {
	msg := strings.TrimSpace(input)
	if msg == "" {
		return chat.Turn{}, ErrEmptyInput
	}
	if utf8.RuneCountInString(msg) > MaxInputLength {
		return chat.Turn{}, ErrInputTooLong
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		return chat.Turn{}, ErrBusy
	}
	defer w.inFlight.Store(false)

	if w.session.Expired() {
		return chat.Turn{}, ErrSessionExpired
	}

	history := w.session.Turns()
	w.session.AddMessage(ctx, chat.UserTurn(msg))

	reply := w.sender.Send(ctx, msg, history)
	turn := chat.AssistantTurn(reply.Content)
	w.session.AddMessage(ctx, turn)
	return turn, nil
}

// Busy reports whether a submission is in flight.
func (w *Widget) Busy() bool { return w.inFlight.Load() }

// Expired reports whether the input should be hidden.
func (w *Widget) Expired() bool { return w.session.Expired() }

// Turns returns the conversation so far.
func (w *Widget) Turns() []chat.Turn { return w.session.Turns() }

// Banner returns the expiry notice, or "" while the session is active.
func (w *Widget) Banner() string {
	if w.session.Expired() {
		return ExpiredBanner
	}
	return ""
}

// Title is the widget header.
func (w *Widget) Title() string {
	return firstName(w.name) + "'s Assistant"
}

// Status is the header subline with the remaining quota.
func (w *Widget) Status() string {
	return fmt.Sprintf("%d messages left", w.session.Remaining())
}

// Greeting is the welcome line shown before the first message.
func (w *Widget) Greeting() string {
	return Greeting(w.name)
}

// Greeting builds the welcome line for the owner called name.
func Greeting(name string) string {
	return fmt.Sprintf("Hi! I'm %s's AI assistant", firstName(name))
}

// Counter renders the input length indicator.
func Counter(input string) string {
	return fmt.Sprintf("%d/%d", utf8.RuneCountInString(input), MaxInputLength)
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	return fields[0]
}
