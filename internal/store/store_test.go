package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazleon/portfolio-website/internal/config"
)

type backend struct {
	name string
	open func(t *testing.T) KV
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) KV { return NewMemory() }},
		{"file", func(t *testing.T) KV {
			s, err := NewFile(t.TempDir())
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) KV {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
			require.NoError(t, err)
			return s
		}},
		{"redis", func(t *testing.T) KV {
			mr := miniredis.RunT(t)
			return NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
		}},
	}
}

func TestKV_Contract(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			kv := b.open(t)
			t.Cleanup(func() { _ = kv.Close() })

			_, ok, err := kv.Get(ctx, "portfolio_chat_session")
			require.NoError(t, err)
			assert.False(t, ok, "fresh store must not contain the key")

			require.NoError(t, kv.Set(ctx, "portfolio_chat_session", []byte(`{"messageCount":1}`)))
			got, ok, err := kv.Get(ctx, "portfolio_chat_session")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `{"messageCount":1}`, string(got))

			require.NoError(t, kv.Set(ctx, "portfolio_chat_session", []byte(`{"messageCount":2}`)))
			got, _, err = kv.Get(ctx, "portfolio_chat_session")
			require.NoError(t, err)
			assert.JSONEq(t, `{"messageCount":2}`, string(got))

			require.NoError(t, kv.Delete(ctx, "portfolio_chat_session"))
			_, ok, err = kv.Get(ctx, "portfolio_chat_session")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Delete(ctx, "never-written"), "deleting a missing key is not an error")
		})
	}
}

func TestKV_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			kv := b.open(t)
			t.Cleanup(func() { _ = kv.Close() })

			require.NoError(t, kv.Set(ctx, "a", []byte("1")))
			require.NoError(t, kv.Set(ctx, "b", []byte("2")))

			got, ok, err := kv.Get(ctx, "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "1", string(got))
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", v))
	v[0] = 'z'

	got, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Close())

	_, _, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Set(ctx, "k", nil), ErrClosed)
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "old", []byte("x")))
	now = now.Add(2 * time.Hour)
	require.NoError(t, m.Set(ctx, "new", []byte("y")))

	removed, err := m.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, ok, _ := m.Get(ctx, "old")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "new")
	assert.True(t, ok)
}

func TestFileStore_SanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	p := f.path("../../etc/passwd")
	assert.Equal(t, dir, filepath.Dir(p), "key must not escape the session directory")
}

func TestFileStore_DistinctKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, f.Set(ctx, "portfolio_chat_session:tab:a", []byte(`{"messageCount":10,"isExpired":true}`)))

	for _, other := range []string{"portfolio_chat_session_tab_a", "portfolio_chat_session:tab_a", "portfolio_chat_session.tab.a"} {
		_, ok, err := f.Get(ctx, other)
		require.NoError(t, err)
		assert.False(t, ok, "key %q must not read another session's record", other)
	}

	data, ok, err := f.Get(ctx, "portfolio_chat_session:tab:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"messageCount":10,"isExpired":true}`, string(data))
}

func TestFileStore_SweepRemovesStaleTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	stale := filepath.Join(dir, tempPrefix+"123")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o644))
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, tempPrefix+"456")
	require.NoError(t, os.WriteFile(fresh, []byte("partial"), 0o644))

	require.NoError(t, f.Set(ctx, "kept", []byte("{}")))

	removed, err := f.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed, "temp files are not sessions")

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale temp file should be removed")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "a write in progress must not be disturbed")

	_, ok, err := f.Get(ctx, "kept")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Set(ctx, "k", []byte("v")))

	removed, err := s.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = s.Sweep(ctx, -time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	assert.Equal(t, time.Minute, mr.TTL("chat:k:session"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		store   string
		want    any
		wantErr bool
	}{
		{"memory", &MemoryStore{}, false},
		{"file", &FileStore{}, false},
		{"sqlite", &SQLiteStore{}, false},
		{"redis", &RedisStore{}, false},
		{"etcd", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Quota.Store = tt.store
			cfg.Quota.SessionDir = filepath.Join(dir, "sessions")
			cfg.Quota.DBPath = filepath.Join(dir, "sessions.db")
			cfg.Quota.SessionTTL = time.Hour
			cfg.Redis.URL = "redis://" + mr.Addr()

			kv, err := Open(ctx, cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = kv.Close() })
			assert.IsType(t, tt.want, kv)
		})
	}
}

func TestStartSweeper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("v")))

	startSweeper(ctx, m, time.Nanosecond, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, ok, _ := m.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
