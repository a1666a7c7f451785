package guard

import (
	"context"
	"time"
)

/** The duplicate-submission guard absorbs near-simultaneous repeats of the same completion
request (e.g. a double page render). It is not long-term replay protection */

// Guard tracks which request ids are being processed or were processed. Implementations must make
// every method atomic per key: two concurrent TryMark calls for one id never both return true
type Guard interface {
	// TryMark marks an id, returning true when it was newly marked and false when already present
	TryMark(ctx context.Context, requestID string) (bool, error)

	// Unmark releases an id so a later attempt may proceed
	Unmark(ctx context.Context, requestID string) error

	// IsMarked reports whether an id is currently marked
	IsMarked(ctx context.Context, requestID string) (bool, error)
}

// Sweepable is implemented by guards that need expired entries removed periodically
type Sweepable interface {
	// Sweep removes expired entries and returns how many were removed
	Sweep(ctx context.Context) (int, error)
}

// Policy bounds how long and how many entries a guard keeps
type Policy struct {
	TTL        time.Duration `yaml:"ttl"`         // Entries older than this behave as absent; zero keeps them forever
	MaxEntries int           `yaml:"max_entries"` // Oldest entries are evicted past this size; zero is unbounded
}

// DefaultPolicy keeps entries long enough to cover any authorization code's validity window
var DefaultPolicy = Policy{
	TTL:        24 * time.Hour,
	MaxEntries: 10_000,
}

// Expired reports whether an entry marked at markedAt has outlived the policy
func (p Policy) Expired(markedAt, now time.Time) bool {
	return p.TTL > 0 && now.Sub(markedAt) >= p.TTL
}
