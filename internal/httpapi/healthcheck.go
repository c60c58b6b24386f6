package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frieda566/plant-watering-system/internal/ingest"
	"github.com/frieda566/plant-watering-system/internal/utils"
)

type StateSource interface {
	State() ingest.State
}

type healthcheckerImpl struct {
	db     *sql.DB
	serial StateSource
}

// handleHealthz reports ok whenever the store answers. A disconnected
// serial link is reported but does not fail the check.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"serial": h.serial.State().String(),
	})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, serial StateSource) {
	h := &healthcheckerImpl{db: db, serial: serial}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
