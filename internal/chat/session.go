package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mazleon/portfolio-website/internal/store"
)

// Session tracks one visitor's conversation and enforces the user turn cap.
// State is written through to kv after every mutation. Storage failures never
// surface to callers: the session keeps working from memory.
type Session struct {
	mu     sync.Mutex
	kv     store.KV
	key    string
	limits Limits
	state  State
}

// NewSession loads any prior state stored under key. A missing, unreadable or
// corrupt record yields a fresh session.
func NewSession(ctx context.Context, kv store.KV, key string, limits Limits) *Session {
	if key == "" {
		key = DefaultKey
	}
	s := &Session{kv: kv, key: key, limits: limits.normalize()}
	s.load(ctx)
	return s
}

func (s *Session) load(ctx context.Context) {
	if s.kv == nil {
		return
	}
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		slog.Warn("Failed to read chat session, starting fresh", "key", s.key, "error", err)
		return
	}
	if !ok {
		return
	}

	var stored State
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.Warn("Discarding corrupt chat session", "key", s.key, "error", err)
		return
	}
	if stored.UserTurnCount < 0 {
		stored.UserTurnCount = 0
	}
	stored.Expired = stored.Expired || stored.UserTurnCount >= s.limits.MaxUserTurns
	s.state = stored
}

func (s *Session) save(ctx context.Context) {
	if s.kv == nil {
		return
	}
	st := s.state
	if st.Turns == nil {
		st.Turns = []Turn{}
	}
	data, err := json.Marshal(st)
	if err != nil {
		slog.Error("Failed to encode chat session", "key", s.key, "error", err)
		return
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		slog.Warn("Failed to persist chat session", "key", s.key, "error", err)
	}
}

// AddMessage appends turn. User turns count toward the quota and the session
// expires once the cap is reached. Content is never rejected here.
func (s *Session) AddMessage(ctx context.Context, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Turns = append(s.state.Turns, turn)
	if turn.Role == RoleUser {
		s.state.UserTurnCount++
		if s.state.UserTurnCount >= s.limits.MaxUserTurns {
			s.state.Expired = true
		}
	}
	s.save(ctx)
}

// Remaining returns how many user turns are left, never below zero.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return max(0, s.limits.MaxUserTurns-s.state.UserTurnCount)
}

// Reset clears the conversation and removes the stored record.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = State{}
	if s.kv == nil {
		return
	}
	if err := s.kv.Delete(ctx, s.key); err != nil {
		slog.Warn("Failed to delete chat session", "key", s.key, "error", err)
	}
}

// Turns returns a copy of the conversation in order.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.state.Turns...)
}

// UserTurnCount returns the number of user turns recorded.
func (s *Session) UserTurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserTurnCount
}

// Expired reports whether the quota has been exhausted.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Expired
}

// Snapshot returns a copy of the full state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Turns = append([]Turn(nil), s.state.Turns...)
	return st
}

// Limits returns the limits the session was created with.
func (s *Session) Limits() Limits { return s.limits }

// Key returns the storage key.
func (s *Session) Key() string { return s.key }
