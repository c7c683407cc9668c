package handler

import (
	"log/slog"
	"net/http"

	"oracleflow/internal/application/service"
)

type PriceHandler struct {
	snapshots *service.SnapshotService
	logger    *slog.Logger
}

func NewPriceHandler(snapshots *service.SnapshotService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		snapshots: snapshots,
		logger:    logger,
	}
}

// GetPrices serves the current snapshot for all tracked pairs as a JSON
// array. Every tracked pair is present; missing data shows up as the
// documented defaults, never as an absent entry.
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	assets, err := h.snapshots.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to assemble snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch prices", err)
		return
	}

	writeJSON(w, http.StatusOK, assets)
}
