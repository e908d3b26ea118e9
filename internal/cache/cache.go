package cache

import (
	"context"
	"time"
)

// Cache stores upstream response bodies keyed by request URL.
type Cache interface {
	// Get returns the cached body and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a body for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Nop is a Cache that never stores anything.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the value.
func (Nop) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
