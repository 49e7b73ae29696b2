// handlers_health.go - Health check handlers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	store   Pinger
}

// NewHealthHandler creates a new health handler. store may be nil when no
// document store is configured.
func NewHealthHandler(version string, store Pinger) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		store:   store,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.store == nil {
		return c.JSON(http.StatusOK, resp)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		resp["status"] = "degraded"
		resp["database"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp["database"] = "ok"
	return c.JSON(http.StatusOK, resp)
}
