package controller

import (
	"net/http"

	"github.com/frieda566/plant-watering-system/internal/ingest"
	"github.com/frieda566/plant-watering-system/internal/live"
	"github.com/frieda566/plant-watering-system/internal/modules/readings/repository"
)

type LatestSource interface {
	Snapshot() (live.Snapshot, bool)
}

type ConnectionSource interface {
	State() ingest.State
	LastError() error
}

type ReadingsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type readingsControllerImpl struct {
	repository repository.ReadingRepository
	latest     LatestSource
	connection ConnectionSource
}

func NewReadingsController(repository repository.ReadingRepository, latest LatestSource, connection ConnectionSource) ReadingsController {
	return &readingsControllerImpl{repository: repository, latest: latest, connection: connection}
}

func (c *readingsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/readings", c.handleReadings)
	mux.HandleFunc("GET /api/v1/readings/latest", c.handleLatest)
	mux.HandleFunc("GET /api/v1/readings/range", c.handleRange)
	mux.HandleFunc("GET /api/v1/readings/daily", c.handleDaily)
	mux.HandleFunc("GET /api/v1/connection", c.handleConnection)
}
