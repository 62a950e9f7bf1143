// Package storage persists tables, columns and rows in a SQL database and
// serves windows of rows out of it.
//
// Two drivers are supported: "postgres" (github.com/lib/pq) for production
// and "sqlite" (modernc.org/sqlite) for single node deployments and tests.
// Row values live in one JSON document per row; per column expression indexes
// make filtering and sorting on individual keys efficient.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// DB is an open row store.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Open connects to the database and applies migrations.
//
// driver is "postgres" or "sqlite". For sqlite, dsn is a file path; pragmas
// for WAL, busy timeout and foreign keys are appended.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var d dialect
	switch driver {
	case "postgres", "postgresql":
		d = postgresDialect{}
	case "sqlite", "sqlite3":
		d = sqliteDialect{}
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	conn, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if d.singleWriter() {
		// One writer only; avoids SQLITE_BUSY under concurrent requests.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.DebugContext(ctx, "storage opened", "driver", d.driverName())
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver returns the name of the underlying SQL driver.
func (db *DB) Driver() string {
	return db.dialect.driverName()
}

func (db *DB) migrate(ctx context.Context) error {
	for i, m := range db.dialect.migrations() {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

func (db *DB) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, db.dialect.rebind(q), args...)
}

func (db *DB) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, db.dialect.rebind(q), args...)
}

func (db *DB) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, db.dialect.rebind(q), args...)
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// rebindDollar rewrites ? placeholders to $1, $2, ... leaving quoted strings
// and quoted identifiers untouched.
func rebindDollar(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// tx is a transaction that rebinds placeholders for the dialect.
type tx struct {
	*sql.Tx
	d dialect
}

func (db *DB) begin(ctx context.Context, opts *sql.TxOptions) (*tx, error) {
	t, err := db.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &tx{Tx: t, d: db.dialect}, nil
}

func (t *tx) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return t.ExecContext(ctx, t.d.rebind(q), args...)
}

func (t *tx) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return t.QueryContext(ctx, t.d.rebind(q), args...)
}

func (t *tx) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return t.QueryRowContext(ctx, t.d.rebind(q), args...)
}
