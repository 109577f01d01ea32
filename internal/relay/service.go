// Package relay forwards visitor chat turns to the LLM provider with the
// portfolio system prompt prepended.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mazleon/portfolio-website/internal/chat"
	"github.com/mazleon/portfolio-website/internal/provider"
)

// FallbackReply is returned when the provider answers without content.
const FallbackReply = "I couldn't generate a response."

var (
	// ErrKeyNotConfigured means the provider credential is absent from the environment.
	ErrKeyNotConfigured = errors.New("API key not configured")
	// ErrMalformedRequest means the request body could not be used.
	ErrMalformedRequest = errors.New("malformed chat request")
)

// Request is the relay request body.
type Request struct {
	Message string      `json:"message"`
	History []chat.Turn `json:"history"`
}

// Validate checks the message is present and every history role is user or assistant.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: empty message", ErrMalformedRequest)
	}
	for i, t := range r.History {
		if !t.Role.Valid() {
			return fmt.Errorf("%w: history[%d] has role %q", ErrMalformedRequest, i, t.Role)
		}
	}
	return nil
}

// Completer sends a conversation to the model.
type Completer interface {
	Complete(ctx context.Context, apiKey string, messages []provider.Message) (string, bool, error)
}

// PromptSource supplies the system prompt.
type PromptSource interface {
	SystemPrompt() string
}

// KeyFunc returns the provider credential, or "" when it is not configured.
type KeyFunc func() string

// Service turns a Request into a single assistant reply.
type Service struct {
	prompt    PromptSource
	completer Completer
	key       KeyFunc
}

// NewService creates a Service.
func NewService(prompt PromptSource, completer Completer, key KeyFunc) *Service {
	return &Service{prompt: prompt, completer: completer, key: key}
}

// KeyConfigured reports whether a credential is available right now.
func (s *Service) KeyConfigured() bool {
	return s.apiKey() != ""
}

func (s *Service) apiKey() string {
	if s.key == nil {
		return ""
	}
	return strings.TrimSpace(s.key())
}

// Messages builds the outbound conversation: system prompt, history in order,
// then the new user message.
func (s *Service) Messages(req Request) []provider.Message {
	msgs := make([]provider.Message, 0, len(req.History)+2)
	msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: s.prompt.SystemPrompt()})
	for _, t := range req.History {
		msgs = append(msgs, provider.Message{Role: string(t.Role), Content: t.Content})
	}
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: req.Message})
	return msgs
}

// Reply returns the assistant's answer to req. The provider is never called
// without a credential.
func (s *Service) Reply(ctx context.Context, req Request) (string, error) {
	key := s.apiKey()
	if key == "" {
		return "", ErrKeyNotConfigured
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	content, ok, err := s.completer.Complete(ctx, key, s.Messages(req))
	if err != nil {
		return "", fmt.Errorf("provider call: %w", err)
	}
	if !ok {
		slog.Warn("Provider returned no content, using fallback reply")
		return FallbackReply, nil
	}
	return content, nil
}
