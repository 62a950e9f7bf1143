package storage

import (
	"context"
	"database/sql"
)

// dialect hides the SQL differences between supported databases.
//
// Column keys passed to textExpr must already be validated identifiers; they
// are inlined so that queries match the expression indexes.
type dialect interface {
	driverName() string
	singleWriter() bool
	migrations() []string
	rebind(q string) string
	// textExpr is the string form of a cell, NULL when absent.
	textExpr(columnID string) string
	// sortExpr is the string form of a cell used for ordering. Both
	// databases order it by Unicode code point.
	sortExpr(columnID string) string
	// foldExpr lowers the case of a text expression, including non-ASCII
	// letters.
	foldExpr(expr string) string
	// likeExpr matches expr against one LIKE pattern parameter, ignoring case.
	likeExpr(expr string) string
	// insertRowSQL takes (id, table_id, created_at, table_id) and returns idx.
	insertRowSQL() string
	// setCellSQL takes (column_id, json value, row_id, table_id).
	setCellSQL() string
	readTxOptions() *sql.TxOptions
	isUniqueViolation(err error) bool
	// prepareTrigram readies trigram indexing. ok is false when the database
	// has no trigram index type.
	prepareTrigram(ctx context.Context, conn *sql.DB) (ok bool, err error)
	trigramIndexSQL(name, columnID string) string
}

func numExpr(d dialect, columnID string) string {
	return "grid_num(" + d.textExpr(columnID) + ")"
}
