package guard

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs a sweep every five minutes
const DefaultSweepSchedule = "@every 5m"

// Sweeper periodically removes expired entries from a guard
type Sweeper struct {
	target Sweepable
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSweeper schedules sweeps of target using a cron expression or descriptor such as "@every 5m"
func NewSweeper(target Sweepable, schedule string) (*Sweeper, error) {
	if target == nil {
		return nil, fmt.Errorf("a sweepable guard must be provided")
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{
		target: target,
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sweep schedule '%s': %w", schedule, err)
	}

	return s, nil
}

// Start begins running scheduled sweeps in the background
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// RunNow performs a sweep immediately
func (s *Sweeper) RunNow() (int, error) {
	return s.target.Sweep(s.ctx)
}

// run is the scheduled job
func (s *Sweeper) run() {
	removed, err := s.RunNow()
	if err != nil {
		log.Printf("[GUARD]: Sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[GUARD]: Swept %d expired request ids", removed)
	}
}
