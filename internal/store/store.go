package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("not found")

// KV is the session-scoped key-value store the booking flow persists
// recovery state into. Values must survive the full-page navigation a
// gateway redirect causes, so production deployments back it with Postgres;
// tests and single-node setups use the in-memory implementation.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
