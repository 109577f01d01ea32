// Package store provides the key-value persistence used for chat session state.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store closed")

// KV is a small fallible key-value store holding opaque JSON blobs.
type KV interface {
	// Get returns the value stored under key. The boolean is false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

// Sweeper is implemented by backends that cannot expire keys on their own.
type Sweeper interface {
	// Sweep removes entries not updated within olderThan and reports how many were removed.
	Sweep(ctx context.Context, olderThan time.Duration) (int64, error)
}
