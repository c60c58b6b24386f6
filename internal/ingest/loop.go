// Package ingest moves telegrams from the serial port into the latest-value
// slot and the reading store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/frieda566/plant-watering-system/internal/live"
	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
	"github.com/frieda566/plant-watering-system/internal/telegram"
	"github.com/frieda566/plant-watering-system/internal/utils"
)

// Port is an open serial connection. Read returns (0, nil) when its read
// timeout expires without data.
type Port interface {
	io.Reader
	io.Closer
}

// Opener opens the serial connection once at startup.
type Opener func(ctx context.Context) (Port, error)

type Options struct {
	Open   Opener
	Parser *telegram.Parser
	Slot   *live.Slot
	Store  Store
	Sinks  []Sink
	Logger *slog.Logger
}

type Loop struct {
	open   Opener
	parser *telegram.Parser
	slot   *live.Slot
	store  Store
	sinks  []Sink
	logger *slog.Logger

	metrics *loopMetrics
	started atomic.Bool
	state   atomic.Int32

	mu      sync.Mutex
	lastErr error
}

func New(opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		open:   opts.Open,
		parser: opts.Parser,
		slot:   opts.Slot,
		store:  opts.Store,
		sinks:  opts.Sinks,
		logger: logger.With("component", "ingest"),
	}
	l.metrics = newLoopMetrics(l.State)
	return l
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

// LastError is the error that ended the connection, or nil.
func (l *Loop) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Metrics exposes the loop's series for registration with metrics.RegisterSet.
func (l *Loop) Metrics() *metrics.Set {
	return l.metrics.set
}

func (l *Loop) fail(err error) error {
	l.state.Store(int32(Disconnected))
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
	return err
}

// Run opens the port and ingests until the context is cancelled or the
// connection fails. It never reconnects and may only be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("ingest: loop already started")
	}

	port, err := l.open(ctx)
	if err != nil {
		return l.fail(fmt.Errorf("%w: %w", ErrConnection, err))
	}
	l.state.Store(int32(Connected))
	l.logger.Info("serial connected", "schema", l.parser.Schema().String(), "mode", l.parser.Schema().Mode)

	var closeOnce sync.Once
	closePort := func() {
		closeOnce.Do(func() {
			if err := port.Close(); err != nil {
				l.logger.Warn("close serial port", "error", err)
			}
		})
	}
	defer closePort()

	// Closing the port unblocks a pending Read so cancellation does not
	// wait for the read timeout.
	stop := context.AfterFunc(ctx, closePort)
	defer stop()

	lines := newLineReader(port)
	for {
		raw, ok, err := lines.next(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			l.state.Store(int32(Disconnected))
			if pending := l.parser.Pending(); pending > 0 {
				l.logger.Debug("dropping partial telegram", "fields", pending)
			}
			l.parser.Reset()
			return ctxErr
		}
		switch {
		case errors.Is(err, errLineTooLong):
			l.metrics.malformed.Inc()
			l.logger.Warn("discarding oversized serial line", "limit", maxLineLen)
			continue
		case err != nil:
			l.logger.Error("serial connection lost", "error", err)
			return l.fail(fmt.Errorf("%w: %w", ErrIOFault, err))
		case !ok:
			continue
		}

		l.metrics.lines.Inc()
		l.handleLine(ctx, raw)
	}
}

func (l *Loop) handleLine(ctx context.Context, raw []byte) {
	r, result, err := l.parser.Parse(string(raw))
	switch result {
	case telegram.Malformed:
		l.metrics.malformed.Inc()
		l.logger.Warn("malformed telegram", "line", string(raw), "hex", utils.BytesToHex(raw), "error", err)
		return
	case telegram.Incomplete:
		return
	}

	l.slot.Publish(r)
	l.metrics.observe(r)

	// A reading already in the slot is persisted even if shutdown starts now.
	stored, err := l.store.Append(context.WithoutCancel(ctx), r)
	if err != nil {
		l.metrics.storeErrors.Inc()
		l.logger.Error("store reading", "error", err)
		return
	}
	l.logger.Debug("reading stored", "id", stored.ID, "reading", readingAttrs(stored))

	for _, s := range l.sinks {
		if err := s.Consume(ctx, stored); err != nil {
			l.metrics.sinkErrors.Inc()
			l.logger.Warn("sink failed", "sink", s.Name(), "error", err)
		}
	}
}

func readingAttrs(r types.Reading) slog.Value {
	attrs := make([]slog.Attr, 0, len(types.Fields)+1)
	attrs = append(attrs, slog.Time("ts", r.Timestamp))
	for _, f := range types.Fields {
		if v, ok := r.Get(f); ok {
			attrs = append(attrs, slog.Int(string(f), v))
		}
	}
	return slog.GroupValue(attrs...)
}
