package handlers

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/maruel/sheetgrid/internal/grid"
	"github.com/maruel/sheetgrid/internal/server/dto"
)

// SchemaDocument is the JSON Schema of the API bodies, keyed by type name.
type SchemaDocument struct {
	Definitions map[string]*jsonschema.Schema `json:"definitions"`
}

// BuildSchema reflects the request and response types of the API.
func BuildSchema() *SchemaDocument {
	r := &jsonschema.Reflector{DoNotReference: true}
	types := map[string]any{
		"Table":               &grid.Table{},
		"Column":              &grid.Column{},
		"Row":                 &grid.Row{},
		"Filter":              &grid.Filter{},
		"Sort":                &grid.Sort{},
		"WindowRequest":       &dto.QueryRowsRequest{},
		"WindowResponse":      &grid.WindowResponse{},
		"CreateTableRequest":  &dto.CreateTableRequest{},
		"CreateColumnRequest": &dto.CreateColumnRequest{},
		"CreateRowResponse":   &dto.CreateRowResponse{},
		"UpdateCellRequest":   &dto.UpdateCellRequest{},
		"ErrorResponse":       &dto.ErrorResponse{},
	}
	doc := &SchemaDocument{Definitions: make(map[string]*jsonschema.Schema, len(types))}
	for name, v := range types {
		doc.Definitions[name] = r.Reflect(v)
	}
	return doc
}

// Schema serves the JSON Schema document.
func Schema(ctx context.Context, req *dto.SchemaRequest) (*SchemaDocument, error) {
	return BuildSchema(), nil
}
