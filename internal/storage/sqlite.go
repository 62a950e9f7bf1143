package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strconv"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/maruel/sheetgrid/internal/grid"
)

func init() {
	sqlite.MustRegisterDeterministicScalarFunction("grid_num", 1, gridNum)
	sqlite.MustRegisterDeterministicScalarFunction("grid_fold", 1, gridFold)
}

// gridNum is the SQLite side of grid_num. json_extract hands numbers over
// as integers or reals and strings as text.
func gridNum(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if n, ok := grid.NumberOf(args[0]); ok {
		return n, nil
	}
	return nil, nil
}

// gridFold case folds text. SQLite's own lower() and LIKE only fold ASCII.
func gridFold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return foldText(v), nil
	case []byte:
		return foldText(string(v)), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return v, nil
	}
}

// foldText applies full Unicode case folding. Casers are not safe for
// concurrent use.
func foldText(s string) string {
	return cases.Fold().String(s)
}

type sqliteDialect struct{}

func (sqliteDialect) driverName() string { return "sqlite" }

func (sqliteDialect) singleWriter() bool { return true }

func (sqliteDialect) migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS grid_tables (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS grid_columns (
			id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL REFERENCES grid_tables(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			hidden INTEGER NOT NULL DEFAULT 0,
			config TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`DROP INDEX IF EXISTS grid_columns_table_order`,
		`CREATE UNIQUE INDEX IF NOT EXISTS grid_columns_table_order_key ON grid_columns (table_id, order_index)`,
		`CREATE TABLE IF NOT EXISTS grid_rows (
			id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL REFERENCES grid_tables(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			vals TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (table_id, idx)
		)`,
	}
}

func (sqliteDialect) rebind(q string) string { return q }

func (sqliteDialect) textExpr(columnID string) string {
	return `json_extract(vals, '$."` + columnID + `"')`
}

func (d sqliteDialect) sortExpr(columnID string) string { return d.textExpr(columnID) }

func (sqliteDialect) foldExpr(expr string) string { return "grid_fold(" + expr + ")" }

func (sqliteDialect) likeExpr(expr string) string {
	return "grid_fold(" + expr + `) LIKE grid_fold(?) ESCAPE '\'`
}

func (sqliteDialect) insertRowSQL() string {
	return `INSERT INTO grid_rows (id, table_id, idx, vals, created_at)
		SELECT ?, ?, COALESCE(MAX(idx), -1) + 1, '{}', ?
		FROM grid_rows WHERE table_id = ?
		RETURNING idx`
}

func (sqliteDialect) setCellSQL() string {
	return `UPDATE grid_rows SET vals = json_set(vals, '$."' || ? || '"', json(?))
		WHERE id = ? AND table_id = ?`
}

func (sqliteDialect) readTxOptions() *sql.TxOptions { return nil }

func (sqliteDialect) isUniqueViolation(err error) bool {
	var sErr *sqlite.Error
	if !errors.As(err, &sErr) {
		return false
	}
	return sErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || sErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func (sqliteDialect) prepareTrigram(context.Context, *sql.DB) (bool, error) {
	return false, nil
}

func (sqliteDialect) trigramIndexSQL(string, string) string { return "" }
