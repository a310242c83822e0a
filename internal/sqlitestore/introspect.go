package sqlitestore

import (
	"context"
	"fmt"
)

// ColumnInfo is one row of `PRAGMA table_info(<table>)`.
type ColumnInfo struct {
	Ordinal    int
	Name       string
	Type       string
	NotNull    bool
	Default    *string
	PrimaryKey bool // pk ordinal > 0, i.e. this column is part of the primary key
}

// TableInfo returns the column list for a table in ordinal order, via
// `PRAGMA table_info`.
func (d *DB) TableInfo(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table_info(%s): %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, ColumnInfo{
			Ordinal:    cid,
			Name:       name,
			Type:       ctype,
			NotNull:    notnull != 0,
			Default:    dflt,
			PrimaryKey: pk > 0,
		})
	}
	return cols, rows.Err()
}

// DefaultCollationName is the collating sequence SQLite applies to a
// column with no explicit COLLATE clause.
const DefaultCollationName = "BINARY"

// IndexInfo describes one index on a table via `PRAGMA index_list` joined
// with `PRAGMA index_xinfo`.
type IndexInfo struct {
	Name    string
	Origin  string // "c" (CREATE INDEX), "u" (UNIQUE constraint), "pk" (PRIMARY KEY)
	Columns []IndexColumn
}

// IndexColumn is one key column of an index, in key order, via
// `PRAGMA index_xinfo`. Key-ordinal-only entries are returned; the
// trailing rowid/"key" bookkeeping column index_xinfo appends is skipped.
type IndexColumn struct {
	ColumnIndex int // ordinal into the owning table's column sequence, or -1 for rowid/expression
	Name        string
	Collation   string
	Descending  bool
}

// IndexList returns every index defined on table, in the order SQLite's
// own `PRAGMA index_list` reports them (auto-indexes for PRIMARY
// KEY/UNIQUE included), each populated with its key columns from
// `PRAGMA index_xinfo`.
func (d *DB) IndexList(ctx context.Context, table string) ([]IndexInfo, error) {
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("index_list(%s): %w", table, err)
	}

	type rawIdx struct {
		seq     int
		name    string
		unique  int
		origin  string
		partial int
	}
	var raw []rawIdx
	for rows.Next() {
		var r rawIdx
		if err := rows.Scan(&r.seq, &r.name, &r.unique, &r.origin, &r.partial); err != nil {
			rows.Close()
			return nil, err
		}
		raw = append(raw, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []IndexInfo
	for _, r := range raw {
		cols, err := d.indexXInfo(ctx, r.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, IndexInfo{Name: r.name, Origin: r.origin, Columns: cols})
	}
	return indexes, nil
}

func (d *DB) indexXInfo(ctx context.Context, index string) ([]IndexColumn, error) {
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA index_xinfo(%s)", quoteIdent(index)))
	if err != nil {
		return nil, fmt.Errorf("index_xinfo(%s): %w", index, err)
	}
	defer rows.Close()

	var cols []IndexColumn
	for rows.Next() {
		// index_xinfo columns: seqno, cid, name, desc, coll, key
		var seqno, cid, desc, key int
		var name, collation *string
		if err := rows.Scan(&seqno, &cid, &name, &desc, &collation, &key); err != nil {
			return nil, err
		}
		_ = seqno
		if key == 0 {
			continue // trailing rowid/auxiliary column, not part of the lookup key
		}
		col := IndexColumn{ColumnIndex: cid, Descending: desc != 0, Collation: DefaultCollationName}
		if name != nil {
			col.Name = *name
		}
		if collation != nil {
			col.Collation = *collation
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + escapeQuotes(name) + `"`
}

func escapeQuotes(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"', '"')
		} else {
			out = append(out, name[i])
		}
	}
	return string(out)
}
