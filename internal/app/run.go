package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/sync/errgroup"

	"github.com/frieda566/plant-watering-system/internal/config"
	"github.com/frieda566/plant-watering-system/internal/db"
	"github.com/frieda566/plant-watering-system/internal/dbus"
	"github.com/frieda566/plant-watering-system/internal/httpapi"
	"github.com/frieda566/plant-watering-system/internal/ingest"
	"github.com/frieda566/plant-watering-system/internal/modules/readings"
	"github.com/frieda566/plant-watering-system/internal/mqtt"
	"github.com/frieda566/plant-watering-system/internal/snapshot"
)

// Run serves until ctx is cancelled. A serial failure is logged and the
// HTTP API keeps answering from the store.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	return RunWithOpener(ctx, cfg, logger, SerialOpener(cfg, logger))
}

func RunWithOpener(ctx context.Context, cfg config.Config, logger *slog.Logger, open ingest.Opener) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqlitePath", cfg.SQLitePath,
		"serialPort", cfg.SerialPort,
		"serialBaud", cfg.SerialBaud,
		"schema", cfg.Schema.String(),
		"mode", cfg.Schema.Mode.String(),
		"snapshotHour", cfg.SnapshotHour,
		"mqttBroker", cfg.MQTTBroker,
		"dbus", cfg.DBusEnabled,
	)

	dbConn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(dbConn); err != nil {
			logger.Error("db close", "error", err)
		}
	}()
	logger.Info("database ready")

	var sinks []ingest.Sink
	var publisher *mqtt.Publisher
	if cfg.MQTTEnabled() {
		publisher = mqtt.NewPublisher(cfg, logger)
		// short initial connect; paho keeps retrying in the background
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := publisher.Connect(connectCtx); err != nil {
			logger.Warn("mqtt connection failed (continuing, will retry)", "error", err)
		}
		connectCancel()
		sinks = append(sinks, publisher)
	}

	core := NewCore(cfg, dbConn, open, logger, sinks...)
	metrics.RegisterSet(core.Loop.Metrics())
	defer metrics.UnregisterSet(core.Loop.Metrics(), true)

	mux := httpapi.NewMux(dbConn, core.Loop)
	readings.RegisterFeature(mux, core.Store, core.Slot, core.Loop)
	srv := httpapi.NewServer(cfg, mux, logger)

	var bus *dbus.Service
	if cfg.DBusEnabled {
		bus, err = dbus.New(core.Slot, core.Loop, logger)
		if err != nil {
			logger.Warn("dbus unavailable (continuing without it)", "error", err)
		}
	}

	workCtx, stopWork := context.WithCancel(ctx)
	defer stopWork()
	work, workCtx := errgroup.WithContext(workCtx)

	work.Go(func() error {
		err := core.Loop.Run(workCtx)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case errors.Is(err, ingest.ErrConnection), errors.Is(err, ingest.ErrIOFault):
			logger.Error("serial ingestion stopped", "error", err)
			return nil
		}
		return err
	})

	if cfg.SnapshotHour >= 0 {
		task := &snapshot.Task{Hour: cfg.SnapshotHour, Location: time.Local, Latest: core.Slot, Store: core.Store, Logger: logger}
		work.Go(func() error {
			return ignoreCanceled(task.Run(workCtx))
		})
	}
	if bus != nil {
		work.Go(func() error {
			return ignoreCanceled(bus.Run(workCtx, cfg.DBusUpdateInterval))
		})
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-workCtx.Done():
		// either ctx ended or a worker failed; Wait reports the latter
		runErr = ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
		errCh <- nil
	}

	logger.Info("stopping ingestion")
	stopWork()
	if err := work.Wait(); err != nil && runErr == nil {
		runErr = err
	}

	logger.Info("http shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) && runErr == nil {
		runErr = err
	}

	if publisher != nil {
		publisher.Disconnect()
	}
	if bus != nil {
		if err := bus.Close(); err != nil {
			logger.Warn("dbus close", "error", err)
		}
	}
	return runErr
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
