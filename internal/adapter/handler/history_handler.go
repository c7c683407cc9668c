package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"oracleflow/internal/application/service"
	"oracleflow/internal/domain/model"
)

type HistoryHandler struct {
	history       *service.HistoryService
	seeder        *service.SeedService
	windowSeconds int64
	bucketSeconds int64
	logger        *slog.Logger
}

func NewHistoryHandler(history *service.HistoryService, seeder *service.SeedService, windowSeconds, bucketSeconds int64, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		history:       history,
		seeder:        seeder,
		windowSeconds: windowSeconds,
		bucketSeconds: bucketSeconds,
		logger:        logger,
	}
}

type historyResponse struct {
	Pair   string               `json:"pair"`
	Data   []model.HistoryPoint `json:"data"`
	Count  int                  `json:"count"`
	Source string               `json:"source"`
}

// GetHistory serves the downsampled series for one pair. Pairs carry a "/"
// so callers escape the path segment (BTC%2FUSD); the router matches the
// encoded path and the segment is unescaped here before lookup.
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["pair"]
	pair, err := url.PathUnescape(raw)
	if err != nil || pair == "" {
		writeError(w, http.StatusBadRequest, "invalid pair", err)
		return
	}

	window := h.windowSeconds
	if v := r.URL.Query().Get("window"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			window = n
		}
	}
	bucket := h.bucketSeconds
	if v := r.URL.Query().Get("bucket"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			bucket = n
		}
	}

	points, source := h.history.GetHistory(r.Context(), pair, window, bucket)

	writeJSON(w, http.StatusOK, historyResponse{
		Pair:   pair,
		Data:   points,
		Count:  len(points),
		Source: source,
	})
}

// Seed triggers a one-shot backfill of the seed window for the fully-tracked
// pairs. Responds 500 only when every pair failed.
func (h *HistoryHandler) Seed(w http.ResponseWriter, r *http.Request) {
	result, err := h.seeder.Backfill(r.Context())
	if err != nil {
		h.logger.Error("backfill failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to seed historical data", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"totalInserted":   result.TotalInserted,
		"totalDataPoints": result.TotalDataPoints,
		"summary":         result.Summary,
		"startTime":       result.StartTime,
	})
}
