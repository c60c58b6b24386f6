package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// NewMux wires the health and metrics endpoints. Feature routes are added by
// their RegisterFeature functions.
func NewMux(db *sql.DB, serial StateSource) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, serial)
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		metrics.WritePrometheus(w, true)
	})
	return mux
}
