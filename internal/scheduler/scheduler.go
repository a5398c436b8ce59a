// Package scheduler runs a job at the top of every hour.
package scheduler

import (
	"context"
	"log"
	"time"
)

// NextTick returns the first top-of-hour instant strictly after now.
func NextTick(now time.Time) time.Time {
	return now.Truncate(time.Hour).Add(time.Hour)
}

// Run blocks, invoking fn at every top of the hour until ctx is canceled.
// A failing run is logged and does not stop the schedule; runs never
// overlap because fn is invoked sequentially.
func Run(ctx context.Context, fn func(context.Context) error) {
	for {
		wait := time.Until(NextTick(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := fn(ctx); err != nil {
			log.Printf("scheduler: run failed: %v", err)
		}
	}
}
