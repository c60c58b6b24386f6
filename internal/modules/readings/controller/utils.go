package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

const (
	defaultRecentLimit = 100
	defaultDailyLimit  = 30
	maxLimit           = 1000
	maxRangeLimit      = 100000
)

// parseLimit reads ?limit=, falling back to def when absent.
func parseLimit(r *http.Request, def, max int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > max {
		return 0, fmt.Errorf("'limit' must be <= %d", max)
	}
	return n, nil
}

func parseOrder(r *http.Request) (types.Order, error) {
	o, err := types.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		return types.NewestFirst, errors.New("invalid 'order' (expected newest or oldest)")
	}
	return o, nil
}

func parseRecentQuery(r *http.Request) (limit int, order types.Order, err error) {
	if limit, err = parseLimit(r, defaultRecentLimit, maxLimit); err != nil {
		return 0, 0, err
	}
	if order, err = parseOrder(r); err != nil {
		return 0, 0, err
	}
	return limit, order, nil
}

// parseRangeQuery leaves limit at 0 (every row) when it is absent.
func parseRangeQuery(r *http.Request) (from, to time.Time, limit int, order types.Order, err error) {
	q := r.URL.Query()
	fail := func(e error) (time.Time, time.Time, int, types.Order, error) {
		return time.Time{}, time.Time{}, 0, 0, e
	}

	if s := q.Get("from"); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			return fail(errors.New("invalid 'from' (expected RFC3339)"))
		}
	}
	if s := q.Get("to"); s != "" {
		if to, err = time.Parse(time.RFC3339, s); err != nil {
			return fail(errors.New("invalid 'to' (expected RFC3339)"))
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return fail(errors.New("'from' must be <= 'to'"))
	}
	if limit, err = parseLimit(r, 0, maxRangeLimit); err != nil {
		return fail(err)
	}
	if order, err = parseOrder(r); err != nil {
		return fail(err)
	}
	return from, to, limit, order, nil
}

func zeroAsNullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
