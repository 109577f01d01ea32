package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazleon/portfolio-website/internal/store"
)

// failingKV rejects every operation.
type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("storage unavailable")
}
func (failingKV) Set(context.Context, string, []byte) error { return errors.New("quota exceeded") }
func (failingKV) Delete(context.Context, string) error      { return errors.New("storage unavailable") }
func (failingKV) Close() error                              { return nil }

func TestSession_Fresh(t *testing.T) {
	s := NewSession(context.Background(), store.NewMemory(), "", DefaultLimits())

	assert.Empty(t, s.Turns())
	assert.Zero(t, s.UserTurnCount())
	assert.False(t, s.Expired())
	assert.Equal(t, 10, s.Remaining())
	assert.Equal(t, DefaultKey, s.Key())
}

func TestSession_QuotaExpiresOnTenthUserTurn(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, store.NewMemory(), "", DefaultLimits())

	for i := 1; i <= 9; i++ {
		s.AddMessage(ctx, UserTurn(fmt.Sprintf("q%d", i)))
		s.AddMessage(ctx, AssistantTurn(fmt.Sprintf("a%d", i)))
		assert.False(t, s.Expired(), "not expired after %d user turns", i)
		assert.Equal(t, 10-i, s.Remaining())
	}

	s.AddMessage(ctx, UserTurn("q10"))
	assert.True(t, s.Expired())
	assert.Zero(t, s.Remaining())

	// The reply to the tenth question is still recorded.
	s.AddMessage(ctx, AssistantTurn("a10"))
	assert.Len(t, s.Turns(), 20)
	assert.True(t, s.Expired())
}

func TestSession_AssistantTurnsDoNotCount(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, store.NewMemory(), "", DefaultLimits())

	for i := 0; i < 25; i++ {
		s.AddMessage(ctx, AssistantTurn("hello"))
	}
	assert.Zero(t, s.UserTurnCount())
	assert.False(t, s.Expired())
}

func TestSession_RemainingClampedAtZero(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, nil, "", Limits{MaxUserTurns: 2})

	for i := 0; i < 5; i++ {
		s.AddMessage(ctx, UserTurn("x"))
	}
	assert.Equal(t, 5, s.UserTurnCount())
	assert.Zero(t, s.Remaining())
	assert.True(t, s.Expired())
}

func TestSession_ReloadMatchesLastSave(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	s := NewSession(ctx, kv, "", DefaultLimits())
	s.AddMessage(ctx, UserTurn("What do you work on?"))
	s.AddMessage(ctx, AssistantTurn("Backend systems."))
	s.AddMessage(ctx, UserTurn("Which languages?"))

	reloaded := NewSession(ctx, kv, "", DefaultLimits())
	assert.Equal(t, s.Snapshot(), reloaded.Snapshot())
	assert.Equal(t, 2, reloaded.UserTurnCount())
}

func TestSession_PersistedShape(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	s := NewSession(ctx, kv, "", DefaultLimits())
	s.AddMessage(ctx, UserTurn("hi"))

	data, ok, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t,
		`{"messages":[{"role":"user","content":"hi"}],"messageCount":1,"isExpired":false}`,
		string(data))
}

func TestSession_LoadRecomputesExpired(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, DefaultKey, []byte(`{"messages":[],"messageCount":10,"isExpired":false}`)))

	s := NewSession(ctx, kv, "", DefaultLimits())
	assert.True(t, s.Expired())
}

func TestSession_LoadKeepsStoredExpired(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, DefaultKey, []byte(`{"messages":[],"messageCount":3,"isExpired":true}`)))

	s := NewSession(ctx, kv, "", DefaultLimits())
	assert.True(t, s.Expired())
	assert.Equal(t, 3, s.UserTurnCount())
}

func TestSession_CorruptRecordStartsFresh(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, DefaultKey, []byte(`{not json`)))

	s := NewSession(ctx, kv, "", DefaultLimits())
	assert.Empty(t, s.Turns())
	assert.False(t, s.Expired())
}

func TestSession_StorageFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, failingKV{}, "", DefaultLimits())

	s.AddMessage(ctx, UserTurn("hi"))
	s.AddMessage(ctx, AssistantTurn("hello"))
	assert.Len(t, s.Turns(), 2)
	assert.Equal(t, 1, s.UserTurnCount())

	s.Reset(ctx)
	assert.Empty(t, s.Turns())
}

func TestSession_Reset(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := NewSession(ctx, kv, "", Limits{MaxUserTurns: 1})
	s.AddMessage(ctx, UserTurn("hi"))
	require.True(t, s.Expired())

	s.Reset(ctx)
	assert.False(t, s.Expired())
	assert.Equal(t, 1, s.Remaining())

	_, ok, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_TurnsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, nil, "", DefaultLimits())
	s.AddMessage(ctx, UserTurn("hi"))

	turns := s.Turns()
	turns[0].Content = "changed"
	assert.Equal(t, "hi", s.Turns()[0].Content)
}

func TestLimits_Normalize(t *testing.T) {
	s := NewSession(context.Background(), nil, "k", Limits{})
	assert.Equal(t, DefaultMaxUserTurns, s.Limits().MaxUserTurns)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
	assert.False(t, Role("").Valid())
}
