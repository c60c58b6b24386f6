package controller

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
	"github.com/frieda566/plant-watering-system/internal/utils"
)

type latestResponse struct {
	Reading     *types.Reading `json:"reading"`
	Seq         uint64         `json:"seq,omitempty"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

type connectionResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// handleLatest serves the slot. Before the first reading it answers
// {"reading":null} so pollers can render a placeholder.
func (c *readingsControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, ok := c.latest.Snapshot()
	if !ok {
		utils.WriteJSON(w, http.StatusOK, latestResponse{})
		return
	}
	utils.WriteJSON(w, http.StatusOK, latestResponse{
		Reading:     &snap.Reading,
		Seq:         snap.Seq,
		PublishedAt: &snap.PublishedAt,
	})
}

func (c *readingsControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	limit, order, err := parseRecentQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.repository.QueryRecent(r.Context(), limit, order)
	if err != nil {
		slog.Error("readings: query recent failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *readingsControllerImpl) handleRange(w http.ResponseWriter, r *http.Request) {
	from, to, limit, order, err := parseRangeQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	total, err := c.repository.Count(r.Context(), from, to)
	if err != nil {
		slog.Error("range: count failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to count readings")
		return
	}
	readings, err := c.repository.QueryRange(r.Context(), from, to, limit, order)
	if err != nil {
		slog.Error("range: query failed", "from", zeroAsNullTime(from), "to", zeroAsNullTime(to), "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *readingsControllerImpl) handleDaily(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultDailyLimit, maxLimit)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	snapshots, err := c.repository.ListDailySnapshots(r.Context(), limit)
	if err != nil {
		slog.Error("daily: list failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load daily snapshots")
		return
	}
	utils.WriteJSON(w, http.StatusOK, snapshots)
}

func (c *readingsControllerImpl) handleConnection(w http.ResponseWriter, r *http.Request) {
	resp := connectionResponse{State: c.connection.State().String()}
	if err := c.connection.LastError(); err != nil {
		resp.Error = err.Error()
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}
