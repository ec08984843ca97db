// Package db defines the key-value store contract used for the
// embedding cache, independent of the concrete backend.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrKeyNotFound signals a missing key.
var ErrKeyNotFound = errors.New("key not found")

// Op identifies the store operation that failed.
type Op string

const (
	OpGet  Op = "get"
	OpSet  Op = "set"
	OpPing Op = "ping"
)

// Error wraps a backend failure with the operation that caused it.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("db %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Store is the key-value contract consumed by the embedding cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close()
}
