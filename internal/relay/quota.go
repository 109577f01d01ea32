package relay

import (
	"context"
	"errors"
	"sync"

	"github.com/mazleon/portfolio-website/internal/chat"
	"github.com/mazleon/portfolio-website/internal/store"
)

var (
	// ErrQuotaExhausted means the session already used all of its user turns.
	ErrQuotaExhausted = errors.New("session limit reached")
	// ErrInFlight means another request for the same session is still running.
	ErrInFlight = errors.New("request already in progress")
)

// QuotaGuard enforces the per-session turn cap on the server for clients that
// identify their session.
type QuotaGuard struct {
	kv     store.KV
	limits chat.Limits

	mu   sync.Mutex
	busy map[string]struct{}
}

// NewQuotaGuard creates a guard backed by kv.
func NewQuotaGuard(kv store.KV, limits chat.Limits) *QuotaGuard {
	return &QuotaGuard{kv: kv, limits: limits, busy: make(map[string]struct{})}
}

// SessionKey is the storage key used for a session id.
func SessionKey(sessionID string) string {
	return chat.DefaultKey + ":" + sessionID
}

// Acquire loads the session for sessionID and holds it until release is
// called. It fails when the session is expired or already busy.
func (g *QuotaGuard) Acquire(ctx context.Context, sessionID string) (*chat.Session, func(), error) {
	g.mu.Lock()
	if _, ok := g.busy[sessionID]; ok {
		g.mu.Unlock()
		return nil, nil, ErrInFlight
	}
	g.busy[sessionID] = struct{}{}
	g.mu.Unlock()

	release := func() {
		g.mu.Lock()
		delete(g.busy, sessionID)
		g.mu.Unlock()
	}

	sess := chat.NewSession(ctx, g.kv, SessionKey(sessionID), g.limits)
	if sess.Expired() {
		release()
		return nil, nil, ErrQuotaExhausted
	}
	return sess, release, nil
}

// Record stores a completed exchange.
func (g *QuotaGuard) Record(ctx context.Context, sess *chat.Session, message, reply string) {
	sess.AddMessage(ctx, chat.UserTurn(message))
	sess.AddMessage(ctx, chat.AssistantTurn(reply))
}
