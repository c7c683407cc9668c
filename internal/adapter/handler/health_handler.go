package handler

import (
	"log/slog"
	"net/http"

	"oracleflow/internal/domain/port"
)

type HealthHandler struct {
	storage port.StoragePort
	cache   port.CachePort
	logger  *slog.Logger
}

func NewHealthHandler(storage port.StoragePort, cache port.CachePort, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		cache:   cache,
		logger:  logger,
	}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	cacheStatus := "healthy"
	overallStatus := "healthy"

	if err := h.storage.Ping(r.Context()); err != nil {
		dbStatus = "unhealthy"
		overallStatus = "degraded"
		h.logger.Warn("database health check failed", "error", err)
	}

	if err := h.cache.Ping(r.Context()); err != nil {
		cacheStatus = "unhealthy"
		overallStatus = "degraded"
		h.logger.Warn("cache health check failed", "error", err)
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status": overallStatus,
		"checks": map[string]string{
			"database": dbStatus,
			"cache":    cacheStatus,
		},
	})
}
