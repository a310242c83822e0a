// Package sqlitestore wraps database/sql access to an in-memory SQLite
// database: opening the user's read-only handle and the session's scratch
// mirror handle, replaying DDL, and reading back the introspection
// pragmas and EXPLAIN QUERY PLAN dumps the advisor core needs.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB is a thin handle over a SQLite connection, grounded on the teacher's
// database/sqlite3 package: a *sql.DB plus the handful of sqlite_master /
// pragma queries the advisor needs, context-threaded throughout.
type DB struct {
	conn *sql.DB
}

// Open opens a SQLite database at dsn ("" or ":memory:" for a private
// in-memory database; a file path for the user's real database, opened
// read-only by the caller's choice of DSN query parameters).
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

// SchemaObject is one row of sqlite_master: a table, view, or index.
type SchemaObject struct {
	Type string // "table", "view", "index", "trigger"
	Name string
	Tbl  string
	SQL  string
}

const reservedPrefix = "sqlite_"

// SchemaObjects returns every user-created object in sqlite_master,
// skipping the engine's own internal tables (sqlite_sequence and friends).
func (d *DB) SchemaObjects(ctx context.Context) ([]SchemaObject, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT type, name, tbl_name, COALESCE(sql, '') FROM sqlite_master WHERE name NOT LIKE ? ORDER BY rowid`,
		reservedPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("query sqlite_master: %w", err)
	}
	defer rows.Close()

	var objs []SchemaObject
	for rows.Next() {
		var o SchemaObject
		if err := rows.Scan(&o.Type, &o.Name, &o.Tbl, &o.SQL); err != nil {
			return nil, err
		}
		objs = append(objs, o)
	}
	return objs, rows.Err()
}

// ExecDDL executes a batch of semicolon-joined (or individual) DDL
// statements against the connection.
func (d *DB) ExecDDL(ctx context.Context, ddls ...string) error {
	for _, ddl := range ddls {
		ddl = strings.TrimSpace(ddl)
		if ddl == "" {
			continue
		}
		if _, err := d.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("exec DDL %q: %w", ddl, err)
		}
	}
	return nil
}

// Prepare validates sql against the connection without retaining the
// prepared statement, surfacing the engine's own parse/bind errors.
func (d *DB) Prepare(ctx context.Context, sql string) error {
	stmt, err := d.conn.PrepareContext(ctx, sql)
	if err != nil {
		return err
	}
	return stmt.Close()
}
