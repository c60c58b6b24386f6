package app

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/frieda566/plant-watering-system/internal/config"
	"github.com/frieda566/plant-watering-system/internal/ingest"
	"github.com/frieda566/plant-watering-system/internal/live"
	"github.com/frieda566/plant-watering-system/internal/modules/readings/repository"
	"github.com/frieda566/plant-watering-system/internal/serialport"
	"github.com/frieda566/plant-watering-system/internal/telegram"
)

// Core is the state shared between ingestion and presentation. It is built
// once and handed to every consumer; nothing in it is global.
type Core struct {
	Slot  *live.Slot
	Store repository.ReadingRepository
	Loop  *ingest.Loop
}

func NewCore(cfg config.Config, dbConn *sql.DB, open ingest.Opener, logger *slog.Logger, sinks ...ingest.Sink) *Core {
	slot := live.NewSlot()
	store := repository.NewRepository(dbConn)
	loop := ingest.New(ingest.Options{
		Open:   open,
		Parser: telegram.NewParser(cfg.Schema),
		Slot:   slot,
		Store:  store,
		Sinks:  sinks,
		Logger: logger,
	})
	return &Core{Slot: slot, Store: store, Loop: loop}
}

// SerialOpener opens the configured (or detected) serial device.
func SerialOpener(cfg config.Config, logger *slog.Logger) ingest.Opener {
	return func(ctx context.Context) (ingest.Port, error) {
		port, err := serialport.Open(ctx, serialport.Options{
			Path:        cfg.SerialPort,
			BaudRate:    cfg.SerialBaud,
			ReadTimeout: cfg.SerialReadTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}
