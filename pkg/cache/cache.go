// Package cache stores rendered captions so repeated requests skip the engine.
//
// Keys are derived from the SHA-256 of the input bytes plus every option that
// influences the output (title, profile, flags, author, format and engine
// settings), so a hit is always byte-identical to a fresh render.
//
// # Backends
//
//   - [FileCache]: one file per entry under a directory, for the CLI
//   - [RedisCache]: shared cache for several server instances
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default time-to-live values.
const (
	// TTLCaption is how long a rendered caption stays cached.
	TTLCaption = 7 * 24 * time.Hour

	// TTLInspect is how long decoded image metadata stays cached.
	TTLInspect = 24 * time.Hour
)
