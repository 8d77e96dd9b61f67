// Package scheduler runs the daily credit reset. The next firing instant is
// always recomputed from the current wall clock, both at startup and after
// each firing, so the schedule neither drifts nor double-fires across
// process restarts.
package scheduler

import (
	"context"
	"time"

	"github.com/skandula/docsim-server/internal/utils"
)

// ResetFunc performs the actual balance reset
type ResetFunc func(ctx context.Context) error

// DailyReset fires a ResetFunc at every local midnight
type DailyReset struct {
	reset  ResetFunc
	logger *utils.Logger
	now    func() time.Time
}

// NewDailyReset creates a DailyReset scheduler
func NewDailyReset(reset ResetFunc, logger *utils.Logger) *DailyReset {
	return &DailyReset{
		reset:  reset,
		logger: logger,
		now:    time.Now,
	}
}

// NextMidnight returns the first local midnight strictly after now
func NextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}

// Start runs the scheduler until ctx is cancelled
func (d *DailyReset) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *DailyReset) run(ctx context.Context) {
	for {
		next := NextMidnight(d.now())
		timer := time.NewTimer(next.Sub(d.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := d.reset(ctx); err != nil {
				d.logger.Error("Daily credit reset failed: %v", err)
			} else {
				d.logger.Info("Daily credit reset completed")
			}
		}
	}
}
