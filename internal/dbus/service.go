// Package dbus exposes the latest reading on the session bus.
package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/frieda566/plant-watering-system/internal/ingest"
	"github.com/frieda566/plant-watering-system/internal/live"
	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
	"github.com/frieda566/plant-watering-system/internal/schedule"
)

const (
	BusName    = "io.github.frieda566.PlantMonitor"
	ObjectPath = dbus.ObjectPath("/io/github/frieda566/PlantMonitor")
	Interface  = "io.github.frieda566.PlantMonitor"
)

type LatestSource interface {
	Seq() uint64
	Snapshot() (live.Snapshot, bool)
}

type StateSource interface {
	State() ingest.State
}

type Service struct {
	conn    *dbus.Conn
	latest  LatestSource
	state   StateSource
	logger  *slog.Logger
	lastSeq atomic.Uint64
}

// object carries only the bus-visible methods.
type object struct {
	s *Service
}

// GetLatestReading returns an empty dict until the first reading arrives.
func (o object) GetLatestReading() (map[string]dbus.Variant, *dbus.Error) {
	snap, ok := o.s.latest.Snapshot()
	if !ok {
		return map[string]dbus.Variant{}, nil
	}
	return readingVariant(snap.Reading, snap.Seq), nil
}

func (o object) GetConnectionState() (string, *dbus.Error) {
	return o.s.state.State().String(), nil
}

var introspection = &introspect.Node{
	Name: string(ObjectPath),
	Interfaces: []introspect.Interface{
		introspect.IntrospectData,
		{
			Name: Interface,
			Methods: []introspect.Method{
				{Name: "GetLatestReading", Args: []introspect.Arg{{Name: "reading", Direction: "out", Type: "a{sv}"}}},
				{Name: "GetConnectionState", Args: []introspect.Arg{{Name: "state", Direction: "out", Type: "s"}}},
			},
			Signals: []introspect.Signal{
				{Name: "ReadingUpdated", Args: []introspect.Arg{{Name: "reading", Type: "a{sv}"}}},
			},
		},
	},
}

// New connects to the session bus, exports the monitor object and claims BusName.
func New(latest LatestSource, state StateSource, logger *slog.Logger) (*Service, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	s, err := newService(conn, latest, state, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func newService(conn *dbus.Conn, latest LatestSource, state StateSource, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{conn: conn, latest: latest, state: state, logger: logger.With("component", "dbus")}

	if err := conn.Export(object{s: s}, ObjectPath, Interface); err != nil {
		return nil, fmt.Errorf("export object: %w", err)
	}
	if err := conn.Export(introspect.NewIntrospectable(introspection), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, errors.New("dbus name already taken: " + BusName)
	}
	return s, nil
}

// EmitIfChanged sends ReadingUpdated when the slot has a reading newer than
// the last one signalled. It reports whether a signal was sent.
func (s *Service) EmitIfChanged() (bool, error) {
	if s.latest.Seq() == s.lastSeq.Load() {
		return false, nil
	}
	snap, ok := s.latest.Snapshot()
	if !ok {
		return false, nil
	}
	if err := s.conn.Emit(ObjectPath, Interface+".ReadingUpdated", readingVariant(snap.Reading, snap.Seq)); err != nil {
		return false, fmt.Errorf("emit ReadingUpdated: %w", err)
	}
	s.lastSeq.Store(snap.Seq)
	return true, nil
}

// Run checks for new readings every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	return schedule.Every(ctx, interval, func(context.Context, time.Time) {
		if _, err := s.EmitIfChanged(); err != nil {
			s.logger.Warn("dbus signal failed", "error", err)
		}
	})
}

func (s *Service) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.ReleaseName(BusName); err != nil {
		s.logger.Debug("release bus name", "error", err)
	}
	return s.conn.Close()
}

// readingVariant maps a reading to a{sv}. Absent fields are left out.
func readingVariant(r types.Reading, seq uint64) map[string]dbus.Variant {
	out := map[string]dbus.Variant{
		"id":        dbus.MakeVariant(r.ID),
		"seq":       dbus.MakeVariant(seq),
		"timestamp": dbus.MakeVariant(r.Timestamp.Unix()),
	}
	for _, f := range types.Fields {
		if v, ok := r.Get(f); ok {
			out[string(f)] = dbus.MakeVariant(int64(v))
		}
	}
	return out
}
