// Package snapshot keeps one reading per day, taken at a fixed hour.
package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
	"github.com/frieda566/plant-watering-system/internal/schedule"
)

const dayLayout = "2006-01-02"

type Latest interface {
	Load() (types.Reading, bool)
}

type Store interface {
	HasDailySnapshot(ctx context.Context, day string) (bool, error)
	InsertDailySnapshot(ctx context.Context, s types.DailySnapshot) (bool, error)
}

type Task struct {
	// Hour in Location at which the snapshot is taken.
	Hour     int
	Location *time.Location
	Latest   Latest
	Store    Store
	Logger   *slog.Logger
}

// Tick stores the current reading when now falls in the snapshot hour and
// today has no snapshot yet. It reports whether a row was written.
func (t *Task) Tick(ctx context.Context, now time.Time) (bool, error) {
	loc := t.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	if now.Hour() != t.Hour {
		return false, nil
	}
	r, ok := t.Latest.Load()
	if !ok {
		return false, nil
	}

	day := now.Format(dayLayout)
	exists, err := t.Store.HasDailySnapshot(ctx, day)
	if err != nil || exists {
		return false, err
	}
	inserted, err := t.Store.InsertDailySnapshot(ctx, types.DailySnapshot{Day: day, Reading: r})
	if err != nil {
		return false, err
	}
	if inserted {
		t.logger().Info("daily snapshot saved", "day", day)
	}
	return inserted, nil
}

// Run ticks once a minute until ctx is done.
func (t *Task) Run(ctx context.Context) error {
	return schedule.Every(ctx, time.Minute, func(ctx context.Context, now time.Time) {
		if _, err := t.Tick(ctx, now); err != nil {
			t.logger().Error("daily snapshot", "error", err)
		}
	})
}

func (t *Task) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}
