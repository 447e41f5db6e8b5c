package cache

import (
	"context"
	"time"
)

// NoExpiry keeps an entry until it is overwritten
const NoExpiry time.Duration = 0

// Store is a key/value cache for state that spans invocations.
// Values round-trip through JSON. Failures never surface to callers:
// a failed read is a miss and a failed write is dropped.
type Store interface {
	// Get decodes the cached value into dest. It returns false on a miss,
	// leaving dest untouched.
	Get(ctx context.Context, key string, dest any) bool
	// Set stores value under key. A ttl of NoExpiry means the entry never expires.
	Set(ctx context.Context, key string, value any, ttl time.Duration)
}

// GetOr returns the cached value for key, or def when the key is absent or expired
func GetOr[T any](ctx context.Context, s Store, key string, def T) T {
	var v T
	if !s.Get(ctx, key, &v) {
		return def
	}
	return v
}

// Clock abstracts time for expiry checks
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time { return time.Now() }
