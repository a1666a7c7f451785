package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethanbaker/credlink/pkg/guard"
)

// InMemoryGuard keeps request ids in process memory. Entries are lost on restart
type InMemoryGuard struct {
	entries map[string]time.Time
	policy  guard.Policy
	now     func() time.Time
	mutex   sync.Mutex
}

var _ guard.Guard = (*InMemoryGuard)(nil)
var _ guard.Sweepable = (*InMemoryGuard)(nil)

// NewInMemoryGuard creates an in-memory guard bounded by the given policy
func NewInMemoryGuard(policy guard.Policy) *InMemoryGuard {
	return &InMemoryGuard{
		entries: make(map[string]time.Time),
		policy:  policy,
		now:     time.Now,
		mutex:   sync.Mutex{},
	}
}

// TryMark marks a request id under a single lock, so check and mark cannot interleave
func (g *InMemoryGuard) TryMark(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, fmt.Errorf("request_id cannot be empty")
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	now := g.now()
	if markedAt, exists := g.entries[requestID]; exists && !g.policy.Expired(markedAt, now) {
		return false, nil
	}

	// Make room before adding
	if g.policy.MaxEntries > 0 && len(g.entries) >= g.policy.MaxEntries {
		g.sweepLocked(now)
		for len(g.entries) >= g.policy.MaxEntries {
			g.evictOldestLocked()
		}
	}

	g.entries[requestID] = now
	return true, nil
}

// Unmark releases a request id
func (g *InMemoryGuard) Unmark(ctx context.Context, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("request_id cannot be empty")
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	delete(g.entries, requestID)
	return nil
}

// IsMarked reports whether a request id is marked and not expired
func (g *InMemoryGuard) IsMarked(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, nil
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	markedAt, exists := g.entries[requestID]
	return exists && !g.policy.Expired(markedAt, g.now()), nil
}

// Sweep drops expired entries
func (g *InMemoryGuard) Sweep(ctx context.Context) (int, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	return g.sweepLocked(g.now()), nil
}

// Len returns the number of entries held, expired or not
func (g *InMemoryGuard) Len() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	return len(g.entries)
}

// sweepLocked drops expired entries; the caller holds the mutex
func (g *InMemoryGuard) sweepLocked(now time.Time) int {
	removed := 0
	for id, markedAt := range g.entries {
		if g.policy.Expired(markedAt, now) {
			delete(g.entries, id)
			removed++
		}
	}
	return removed
}

// evictOldestLocked drops the oldest entry; the caller holds the mutex
func (g *InMemoryGuard) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
		found    bool
	)

	for id, markedAt := range g.entries {
		if !found || markedAt.Before(oldestAt) {
			oldestID, oldestAt, found = id, markedAt, true
		}
	}

	if found {
		delete(g.entries, oldestID)
	}
}
