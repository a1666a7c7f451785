package guard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSweeper records how often it was swept
type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) Sweep(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestPolicyExpired(t *testing.T) {
	now := time.Now()

	p := Policy{TTL: time.Minute}
	assert.False(t, p.Expired(now.Add(-30*time.Second), now))
	assert.True(t, p.Expired(now.Add(-time.Minute), now))

	forever := Policy{}
	assert.False(t, forever.Expired(now.Add(-24*365*time.Hour), now))
}

func TestNewSweeper(t *testing.T) {
	t.Run("nil target", func(t *testing.T) {
		_, err := NewSweeper(nil, "")
		assert.Error(t, err)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		_, err := NewSweeper(&countingSweeper{}, "not a schedule")
		assert.Error(t, err)
	})

	t.Run("default schedule", func(t *testing.T) {
		s, err := NewSweeper(&countingSweeper{}, "")
		require.NoError(t, err)
		s.Start()
		s.Stop()
	})
}

func TestSweeperRunNow(t *testing.T) {
	target := &countingSweeper{}
	s, err := NewSweeper(target, "@every 1h")
	require.NoError(t, err)

	removed, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, int32(1), target.calls.Load())

	// A failing sweep is logged by the scheduled job and does not panic
	target.err = errors.New("database gone")
	s.run()
	assert.Equal(t, int32(2), target.calls.Load())
}

func TestSweeperScheduled(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron scheduler")
	}

	target := &countingSweeper{}
	s, err := NewSweeper(target, "@every 1s")
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return target.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
