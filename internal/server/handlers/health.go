package handlers

import (
	"context"

	"github.com/maruel/sheetgrid/internal/server/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	version string
	driver  string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version, driver string) *HealthHandler {
	return &HealthHandler{version: version, driver: driver}
}

// Health returns the health status of the server.
func (h *HealthHandler) Health(ctx context.Context, req *dto.HealthRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{Status: "ok", Version: h.version, Driver: h.driver}, nil
}
