// Package schedule runs periodic work tied to a context.
package schedule

import (
	"context"
	"errors"
	"time"
)

// Every calls fn once per interval until ctx is done, then returns ctx.Err().
// Ticks that arrive while fn is still running are dropped.
func Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context, now time.Time)) error {
	if interval <= 0 {
		return errors.New("schedule: interval must be positive")
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			fn(ctx, now)
		}
	}
}
