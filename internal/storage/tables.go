package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
)

// TableService manages the table registry.
type TableService struct {
	db *DB
}

// NewTableService creates a new table service.
func NewTableService(db *DB) *TableService {
	return &TableService{db: db}
}

// CreateTable registers a new table.
func (s *TableService) CreateTable(ctx context.Context, name string) (*grid.Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierrors.BadRequest("name cannot be empty")
	}
	t := &grid.Table{ID: grid.NewID(), Name: name, Created: time.Now().UTC()}
	if _, err := s.db.exec(ctx, `INSERT INTO grid_tables (id, name, created_at) VALUES (?, ?, ?)`, t.ID, t.Name, t.Created); err != nil {
		return nil, fmt.Errorf("failed to insert table: %w", err)
	}
	return t, nil
}

// GetTable retrieves a table by ID.
func (s *TableService) GetTable(ctx context.Context, id string) (*grid.Table, error) {
	if !grid.ValidID(id) {
		return nil, apierrors.InvalidIdentifier("table_id", id)
	}
	id = grid.CanonicalID(id)
	t := &grid.Table{}
	err := s.db.queryRow(ctx, `SELECT id, name, created_at FROM grid_tables WHERE id = ?`, id).Scan(&t.ID, &t.Name, &t.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierrors.NotFound("table")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	return t, nil
}
