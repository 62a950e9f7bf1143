// Package dto defines the HTTP request and response bodies.
package dto

import (
	"github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
)

// Validatable is implemented by every request type.
type Validatable interface {
	Validate() error
}

// HealthRequest is the request type for health check (empty).
type HealthRequest struct{}

// Validate implements Validatable.
func (r *HealthRequest) Validate() error {
	return nil
}

// SchemaRequest is the request for the JSON Schema document (empty).
type SchemaRequest struct{}

// Validate implements Validatable.
func (r *SchemaRequest) Validate() error {
	return nil
}

// CreateTableRequest is a request to create a table.
type CreateTableRequest struct {
	Name string `json:"name" jsonschema:"description=Table name"`
}

// Validate validates the create table request fields.
func (r *CreateTableRequest) Validate() error {
	if r.Name == "" {
		return missingField("name")
	}
	return nil
}

// GetColumnsRequest is a request to list a table's columns.
type GetColumnsRequest struct {
	TableID string `path:"tableID" json:"-"`
}

// Validate validates the get columns request fields.
func (r *GetColumnsRequest) Validate() error {
	return validID("table_id", r.TableID)
}

// CreateColumnRequest is a request to append a column to a table.
type CreateColumnRequest struct {
	TableID string          `path:"tableID" json:"-"`
	Name    string          `json:"name" jsonschema:"minLength=1,maxLength=120"`
	Type    grid.ColumnType `json:"type" jsonschema:"enum=text,enum=number,enum=singleSelect,enum=attachment"`
}

// Validate validates the create column request fields.
func (r *CreateColumnRequest) Validate() error {
	if err := validID("table_id", r.TableID); err != nil {
		return err
	}
	if r.Name == "" {
		return missingField("name")
	}
	if !r.Type.Valid() {
		return errors.BadRequest("invalid column type " + string(r.Type)).WithDetail("field", "type")
	}
	return nil
}

// CreateRowRequest is a request to append an empty row.
type CreateRowRequest struct {
	TableID string `path:"tableID" json:"-"`
}

// Validate validates the create row request fields.
func (r *CreateRowRequest) Validate() error {
	return validID("table_id", r.TableID)
}

// QueryRowsRequest is a window request. The table comes from the path.
type QueryRowsRequest struct {
	TableID    string        `path:"tableID" json:"-"`
	StartIndex int           `json:"start_index" jsonschema:"minimum=0"`
	WindowSize int           `json:"window_size,omitempty" jsonschema:"minimum=0,maximum=1000,description=0 selects the server default"`
	Filters    []grid.Filter `json:"filters,omitempty"`
	Sort       []grid.Sort   `json:"sort,omitempty"`
}

// Validate validates the window request fields.
func (r *QueryRowsRequest) Validate() error {
	if err := validID("table_id", r.TableID); err != nil {
		return err
	}
	if r.StartIndex < 0 {
		return errors.BadRequest("start_index must not be negative").WithDetail("field", "start_index")
	}
	if r.WindowSize < 0 || r.WindowSize > grid.MaxWindowSize {
		return errors.BadRequest("window_size out of range").WithDetail("field", "window_size")
	}
	return nil
}

// WindowRequest converts to the storage request, applying defaultSize when
// no window size was given.
func (r *QueryRowsRequest) WindowRequest(defaultSize int) *grid.WindowRequest {
	size := r.WindowSize
	if size == 0 {
		size = defaultSize
	}
	return &grid.WindowRequest{
		TableID:    r.TableID,
		StartIndex: r.StartIndex,
		WindowSize: size,
		Filters:    r.Filters,
		Sort:       r.Sort,
	}
}

// UpdateCellRequest sets one cell. Value may be a string, a number, null or,
// for attachment columns, any JSON value.
type UpdateCellRequest struct {
	RowID    string `path:"rowID" json:"-"`
	ColumnID string `path:"columnID" json:"-"`
	Value    any    `json:"value"`
}

// Validate validates the update cell request fields.
func (r *UpdateCellRequest) Validate() error {
	if err := validID("row_id", r.RowID); err != nil {
		return err
	}
	return validID("column_id", r.ColumnID)
}

func missingField(field string) error {
	return errors.BadRequest(field + " is required").WithDetail("field", field)
}

func validID(field, v string) error {
	if !grid.ValidID(v) {
		return errors.InvalidIdentifier(field, v)
	}
	return nil
}
