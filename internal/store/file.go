package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const tempPrefix = ".tmp-"

// FileStore keeps one file per key inside a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates a file-backed store rooted at dir.
func NewFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path maps key to a file name one-to-one. The encoding never produces a
// separator or a leading dot.
func (f *FileStore) path(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(key))
	if name == "" {
		name = "_"
	}
	return filepath.Join(f.dir, name+".json")
}

// Get reads the file for key.
func (f *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read session file: %w", err)
	}
	return data, true, nil
}

// Set writes value to a temp file and renames it into place.
func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename session file: %w", err)
	}
	return nil
}

// Delete removes the file for key.
func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}

// Sweep removes session files whose modification time is older than olderThan.
// Temp files left by an interrupted Set are removed on the same schedule.
func (f *FileStore) Sweep(_ context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("list session directory: %w", err)
	}
	cutoff := time.Now().Add(-olderThan)
	var removed int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		temp := strings.HasPrefix(e.Name(), tempPrefix)
		if !temp && filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil {
			slog.Warn("failed to remove expired session file", "file", e.Name(), "error", err)
			continue
		}
		if !temp {
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for the file store.
func (f *FileStore) Close() error { return nil }

var (
	_ KV      = (*FileStore)(nil)
	_ Sweeper = (*FileStore)(nil)
)
