// Package cache is the best-effort key-value collaborator used for state
// snapshots, profile snapshots and engine statistics. A miss must always be
// recoverable by rebuilding from the persistence layer, so implementations
// swallow backend errors and report them as misses.
package cache

import (
	"context"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}
