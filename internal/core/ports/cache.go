package ports

import (
	"context"
	"time"
)

// Cache defines a minimal key-value cache contract for serialized JSON payloads.
// Implementations should degrade gracefully (returning an error without crashing callers)
// so that application logic can fall back to the upstream services.
// Entries that are expired or no longer valid JSON are reported as absent and removed.
type Cache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 or negative means the backend default).
	// Replacing an entry is atomic: readers never see a partial value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
}

// CachePurger is implemented by backends that need periodic housekeeping.
type CachePurger interface {
	// Purge drops expired entries and returns how many were removed.
	Purge(ctx context.Context) (int, error)
}
