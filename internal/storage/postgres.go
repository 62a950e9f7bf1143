package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type postgresDialect struct{}

func (postgresDialect) driverName() string { return "postgres" }

func (postgresDialect) singleWriter() bool { return false }

func (postgresDialect) migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS grid_tables (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS grid_columns (
			id UUID PRIMARY KEY,
			table_id UUID NOT NULL REFERENCES grid_tables(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			hidden BOOLEAN NOT NULL DEFAULT FALSE,
			config JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`DROP INDEX IF EXISTS grid_columns_table_order`,
		`CREATE UNIQUE INDEX IF NOT EXISTS grid_columns_table_order_key ON grid_columns (table_id, order_index)`,
		`CREATE TABLE IF NOT EXISTS grid_rows (
			id UUID PRIMARY KEY,
			table_id UUID NOT NULL REFERENCES grid_tables(id) ON DELETE CASCADE,
			idx BIGINT NOT NULL,
			vals JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (table_id, idx)
		)`,
		// Same acceptance rule as grid.ParseNumber.
		`CREATE OR REPLACE FUNCTION grid_num(t text) RETURNS double precision
		LANGUAGE plpgsql IMMUTABLE STRICT PARALLEL SAFE AS $$
		DECLARE
			s text := btrim(t, E' \t\n\r\f\v');
			d double precision;
		BEGIN
			IF s !~ '^[-+]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][-+]?[0-9]+)?$' THEN
				RETURN NULL;
			END IF;
			d := s::double precision;
			IF d = 'Infinity'::double precision OR d = '-Infinity'::double precision THEN
				RETURN NULL;
			END IF;
			RETURN d;
		EXCEPTION WHEN numeric_value_out_of_range THEN
			RETURN NULL;
		END
		$$`,
	}
}

func (postgresDialect) rebind(q string) string { return rebindDollar(q) }

func (postgresDialect) textExpr(columnID string) string {
	return "(vals->>'" + columnID + "')"
}

// sortExpr compares by code point, the same order SQLite's BINARY collation
// gives for UTF-8 text, whatever the database locale.
func (d postgresDialect) sortExpr(columnID string) string {
	return d.textExpr(columnID) + ` COLLATE "C"`
}

func (postgresDialect) foldExpr(expr string) string { return "lower(" + expr + ")" }

func (postgresDialect) likeExpr(expr string) string {
	return expr + ` ILIKE ? ESCAPE '\'`
}

func (postgresDialect) insertRowSQL() string {
	return `INSERT INTO grid_rows (id, table_id, idx, vals, created_at)
		SELECT ?::uuid, ?::uuid, COALESCE(MAX(idx), -1) + 1, '{}'::jsonb, ?::timestamptz
		FROM grid_rows WHERE table_id = ?
		RETURNING idx`
}

func (postgresDialect) setCellSQL() string {
	return `UPDATE grid_rows SET vals = jsonb_set(vals, ARRAY[?]::text[], ?::jsonb, true)
		WHERE id = ? AND table_id = ?`
}

func (postgresDialect) readTxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (postgresDialect) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (postgresDialect) prepareTrigram(ctx context.Context, conn *sql.DB) (bool, error) {
	if _, err := conn.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS pg_trgm`); err != nil {
		return false, err
	}
	return true, nil
}

func (d postgresDialect) trigramIndexSQL(name, columnID string) string {
	return `CREATE INDEX IF NOT EXISTS ` + name + ` ON grid_rows USING gin (` + d.textExpr(columnID) + ` gin_trgm_ops)`
}
