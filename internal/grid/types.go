// Package grid defines the spreadsheet domain: tables, typed columns, sparse
// rows, and the filter/sort vocabulary used to request windows of rows.
package grid

import (
	"encoding/json"
	"time"
)

const (
	// DefaultWindowSize is the number of rows requested when the caller does not say.
	DefaultWindowSize = 300
	// MaxWindowSize caps how many rows a single window query may return.
	MaxWindowSize = 1000
)

// ColumnType is the declared type of a column. It never changes after creation.
type ColumnType string

const (
	// ColumnText stores free text.
	ColumnText ColumnType = "text"
	// ColumnNumber stores numbers; unparseable input is stored as null.
	ColumnNumber ColumnType = "number"
	// ColumnSingleSelect stores the selected option as text.
	ColumnSingleSelect ColumnType = "singleSelect"
	// ColumnAttachment stores unstructured JSON.
	ColumnAttachment ColumnType = "attachment"
)

// Valid reports whether t is a known column type.
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnText, ColumnNumber, ColumnSingleSelect, ColumnAttachment:
		return true
	default:
		return false
	}
}

// Numeric reports whether values of this type are compared as numbers.
func (t ColumnType) Numeric() bool {
	return t == ColumnNumber
}

// Table is a named container of columns and rows.
type Table struct {
	ID      string    `json:"id" jsonschema:"description=Table identifier (UUID)"`
	Name    string    `json:"name" jsonschema:"description=Table name"`
	Created time.Time `json:"created" jsonschema:"description=Creation timestamp"`
}

// Column describes one typed column of a table.
type Column struct {
	ID         string          `json:"id" jsonschema:"description=Column identifier (UUID)"`
	TableID    string          `json:"table_id" jsonschema:"description=Owning table"`
	Name       string          `json:"name" jsonschema:"description=Column header"`
	Type       ColumnType      `json:"type" jsonschema:"enum=text,enum=number,enum=singleSelect,enum=attachment"`
	OrderIndex int             `json:"order_index" jsonschema:"description=Display position within the table"`
	Hidden     bool            `json:"hidden" jsonschema:"description=Whether the column is hidden"`
	Config     json.RawMessage `json:"config,omitempty" jsonschema:"description=Opaque column configuration"`
}

// Row is one record. Values is sparse: a column that was never written is absent.
type Row struct {
	ID      string         `json:"id" jsonschema:"description=Row identifier (UUID)"`
	TableID string         `json:"table_id" jsonschema:"description=Owning table"`
	Index   int64          `json:"index" jsonschema:"description=Placement key assigned at creation"`
	Values  map[string]any `json:"values" jsonschema:"description=Cell values keyed by column ID"`
	Created time.Time      `json:"created" jsonschema:"description=Creation timestamp"`
}

// FilterOp is a comparison operator. The allowed set depends on the column type.
type FilterOp string

const (
	// OpContains matches a case-insensitive substring.
	OpContains FilterOp = "contains"
	// OpDoesNotContain matches when the substring is absent.
	OpDoesNotContain FilterOp = "doesNotContain"
	// OpIs matches equal values (case-insensitive for text).
	OpIs FilterOp = "is"
	// OpIsNot matches values that differ.
	OpIsNot FilterOp = "isNot"
	// OpIsEmpty matches cells whose trimmed string form is empty.
	OpIsEmpty FilterOp = "isEmpty"
	// OpIsNotEmpty matches cells whose trimmed string form is not empty.
	OpIsNotEmpty FilterOp = "isNotEmpty"
	// OpGreaterThan matches numbers greater than the value.
	OpGreaterThan FilterOp = "gt"
	// OpLessThan matches numbers less than the value.
	OpLessThan FilterOp = "lt"
)

// NeedsValue reports whether the operator requires a comparison value.
func (op FilterOp) NeedsValue() bool {
	return op != OpIsEmpty && op != OpIsNotEmpty
}

// Filter is one clause of the conjunction applied to a window query.
type Filter struct {
	ColumnID string   `json:"column_id" jsonschema:"description=Column to filter on"`
	Operator FilterOp `json:"operator" jsonschema:"enum=contains,enum=doesNotContain,enum=is,enum=isNot,enum=isEmpty,enum=isNotEmpty,enum=gt,enum=lt"`
	Value    any      `json:"value,omitempty" jsonschema:"description=Comparison value (string or number)"`
}

// SortDir is the direction of a sort key.
type SortDir string

const (
	// SortAsc sorts ascending.
	SortAsc SortDir = "asc"
	// SortDesc sorts descending.
	SortDesc SortDir = "desc"
)

// Sort is one sort key. Earlier keys in a slice take priority.
type Sort struct {
	ColumnID  string  `json:"column_id" jsonschema:"description=Column to sort by"`
	Direction SortDir `json:"direction" jsonschema:"enum=asc,enum=desc"`
}

// WindowRequest asks for windowSize rows starting at startIndex of the
// filtered, sorted row set.
type WindowRequest struct {
	TableID    string   `json:"table_id" jsonschema:"description=Table to read"`
	StartIndex int      `json:"start_index" jsonschema:"minimum=0,description=Requested window start"`
	WindowSize int      `json:"window_size" jsonschema:"minimum=1,maximum=1000,description=Maximum rows to return"`
	Filters    []Filter `json:"filters,omitempty" jsonschema:"description=Conjunction of filters"`
	Sort       []Sort   `json:"sort,omitempty" jsonschema:"description=Sort keys in priority order"`
}

// WindowResponse is one window of rows. WindowStart may differ from the
// requested start when the request was out of bounds.
type WindowResponse struct {
	Rows        []*Row `json:"rows" jsonschema:"description=Rows of the window in effective order"`
	TotalCount  int    `json:"total_count" jsonschema:"description=Rows matching the filters"`
	WindowStart int    `json:"window_start" jsonschema:"description=Offset actually used"`
}

// ClampStart returns the window start actually served for a request at start
// over total matching rows.
func ClampStart(start, total int) int {
	return max(0, min(start, max(0, total-1)))
}
