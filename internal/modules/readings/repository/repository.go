package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-recent-newest.sql
var getRecentNewestSQL string

//go:embed sql/get-recent-oldest.sql
var getRecentOldestSQL string

//go:embed sql/get-range-newest.sql
var getRangeNewestSQL string

//go:embed sql/get-range-oldest.sql
var getRangeOldestSQL string

//go:embed sql/get-readings-count.sql
var getReadingsCountSQL string

//go:embed sql/insert-daily-snapshot.sql
var insertDailySnapshotSQL string

//go:embed sql/has-daily-snapshot.sql
var hasDailySnapshotSQL string

//go:embed sql/get-daily-snapshots.sql
var getDailySnapshotsSQL string

// ErrStoreWrite wraps every failed insert.
var ErrStoreWrite = errors.New("store write failed")

// timeLayout is the on-disk timestamp format: UTC, whole seconds.
const timeLayout = "2006-01-02T15:04:05Z"

type ReadingRepository interface {
	// Append persists r and returns it with ID set. Rows are never merged.
	Append(ctx context.Context, r types.Reading) (types.Reading, error)
	// QueryRecent returns at most limit rows. OldestFirst yields the last
	// limit rows in ascending order.
	QueryRecent(ctx context.Context, limit int, order types.Order) ([]types.Reading, error)
	// QueryRange returns rows with from <= ts <= to. Zero bounds are open and
	// limit <= 0 returns every match.
	QueryRange(ctx context.Context, from, to time.Time, limit int, order types.Order) ([]types.Reading, error)
	Count(ctx context.Context, from, to time.Time) (int, error)

	InsertDailySnapshot(ctx context.Context, s types.DailySnapshot) (bool, error)
	HasDailySnapshot(ctx context.Context, day string) (bool, error)
	ListDailySnapshots(ctx context.Context, limit int) ([]types.DailySnapshot, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ReadingRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Append(ctx context.Context, rd types.Reading) (types.Reading, error) {
	if rd.Timestamp.IsZero() {
		return types.Reading{}, fmt.Errorf("%w: reading has no timestamp", ErrStoreWrite)
	}
	args := append([]any{formatTime(rd.Timestamp)}, columns(rd)...)
	res, err := r.db.ExecContext(ctx, insertReadingSQL, args...)
	if err != nil {
		return types.Reading{}, fmt.Errorf("%w: insert reading: %w", ErrStoreWrite, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Reading{}, fmt.Errorf("%w: last insert id: %w", ErrStoreWrite, err)
	}
	out := rd.Clone()
	out.ID = id
	out.Timestamp = rd.Timestamp.UTC().Truncate(time.Second)
	return out, nil
}

func (r *repositoryImpl) QueryRecent(ctx context.Context, limit int, order types.Order) ([]types.Reading, error) {
	if limit <= 0 {
		return []types.Reading{}, nil
	}
	query := getRecentNewestSQL
	if order == types.OldestFirst {
		query = getRecentOldestSQL
	}
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer closeRows(rows, "recent")
	return scanReadings(rows)
}

func (r *repositoryImpl) QueryRange(ctx context.Context, from, to time.Time, limit int, order types.Order) ([]types.Reading, error) {
	if limit <= 0 {
		limit = -1
	}
	query := getRangeNewestSQL
	if order == types.OldestFirst {
		query = getRangeOldestSQL
	}
	rows, err := r.db.QueryContext(ctx, query, formatBound(from), formatBound(to), limit)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer closeRows(rows, "range")
	return scanReadings(rows)
}

func (r *repositoryImpl) Count(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, getReadingsCountSQL, formatBound(from), formatBound(to)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

// InsertDailySnapshot reports false when the day was already recorded.
func (r *repositoryImpl) InsertDailySnapshot(ctx context.Context, s types.DailySnapshot) (bool, error) {
	if s.Day == "" {
		return false, fmt.Errorf("%w: snapshot has no day", ErrStoreWrite)
	}
	args := append([]any{s.Day, formatTime(s.Reading.Timestamp)}, columns(s.Reading)...)
	res, err := r.db.ExecContext(ctx, insertDailySnapshotSQL, args...)
	if err != nil {
		return false, fmt.Errorf("%w: insert daily snapshot: %w", ErrStoreWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %w", ErrStoreWrite, err)
	}
	return n == 1, nil
}

func (r *repositoryImpl) HasDailySnapshot(ctx context.Context, day string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, hasDailySnapshotSQL, day).Scan(&exists); err != nil {
		return false, fmt.Errorf("has daily snapshot %s: %w", day, err)
	}
	return exists, nil
}

func (r *repositoryImpl) ListDailySnapshots(ctx context.Context, limit int) ([]types.DailySnapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, getDailySnapshotsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query daily snapshots: %w", err)
	}
	defer closeRows(rows, "daily snapshots")

	out := []types.DailySnapshot{}
	for rows.Next() {
		var s types.DailySnapshot
		var ts string
		var cols [4]sql.NullInt64
		if err := rows.Scan(&s.Day, &ts, &cols[0], &cols[1], &cols[2], &cols[3]); err != nil {
			return nil, err
		}
		if s.Reading, err = fromColumns(ts, cols); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	out := []types.Reading{}
	for rows.Next() {
		var id int64
		var ts string
		var cols [4]sql.NullInt64
		if err := rows.Scan(&id, &ts, &cols[0], &cols[1], &cols[2], &cols[3]); err != nil {
			return nil, err
		}
		rd, err := fromColumns(ts, cols)
		if err != nil {
			return nil, err
		}
		rd.ID = id
		out = append(out, rd)
	}
	return out, rows.Err()
}

// columns returns the field values in types.Fields order, nil for absent ones.
func columns(rd types.Reading) []any {
	out := make([]any, len(types.Fields))
	for i, f := range types.Fields {
		if v, ok := rd.Get(f); ok {
			out[i] = v
		}
	}
	return out
}

func fromColumns(ts string, cols [4]sql.NullInt64) (types.Reading, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return types.Reading{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	rd := types.Reading{Timestamp: t}
	for i, f := range types.Fields {
		if cols[i].Valid {
			rd.Set(f, int(cols[i].Int64))
		}
	}
	return rd, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timeLayout)
}

// formatBound maps the zero time to the empty string, which the range
// queries treat as unbounded.
func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatTime(t)
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close rows", "query", what, "error", err)
	}
}
