// Package kv is the state holder behind the user registry and conversation
// store. Values are opaque JSON documents addressed by string keys; the
// per-key exclusive access discipline lives with the callers, so any backend
// here only needs single-key atomicity.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// PutIfAbsent stores value only when key is absent and reports whether it did.
	PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	Close() error
}

// Pinger is implemented by backends that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
