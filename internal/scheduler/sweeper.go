package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/deferlink/internal/index"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
)

// Sweeper evicts pending attributions that outlived the session TTL.
// Lookups already reject stale records; sweeping only bounds memory.
type Sweeper struct {
	pending  *index.PendingStore
	logger   logger.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(
	pending *index.PendingStore,
	log logger.Logger,
	ttl time.Duration,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		pending:  pending,
		logger:   log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweeper
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// Sweep removes expired records once and returns how many went away.
func (s *Sweeper) Sweep() int {
	removed := s.pending.Sweep(s.ttl, s.now())
	if removed > 0 {
		s.logger.Info("expired pending attributions swept",
			logger.Int("removed", removed),
			logger.Int("remaining", s.pending.Count()))
	} else {
		s.logger.Debug("no expired pending attributions")
	}
	return removed
}
