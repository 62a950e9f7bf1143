package dto

import "github.com/maruel/sheetgrid/internal/grid"

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Driver  string `json:"driver"`
}

// ColumnsResponse lists a table's columns in display order.
type ColumnsResponse struct {
	Columns []*grid.Column `json:"columns"`
}

// CreateRowResponse identifies a newly created row.
type CreateRowResponse struct {
	ID    string `json:"id"`
	Index int64  `json:"index"`
}

// UpdateCellResponse acknowledges a cell update.
type UpdateCellResponse struct {
	OK bool `json:"ok"`
}

// ErrorDetails is the error part of an error response.
type ErrorDetails struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}
