package sqlitestore

import (
	"context"
	"testing"
)

func TestSchemaObjectsSkipsReservedNames(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.ExecDDL(ctx,
		"CREATE TABLE t1(a INTEGER PRIMARY KEY, b INTEGER)",
		"CREATE VIEW v1 AS SELECT a FROM t1",
	); err != nil {
		t.Fatal(err)
	}

	objs, err := db.SchemaObjects(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, o := range objs {
		names = append(names, o.Name)
	}
	wantSeen := map[string]bool{"t1": false, "v1": false}
	for _, n := range names {
		if _, ok := wantSeen[n]; ok {
			wantSeen[n] = true
		}
		if len(n) >= len(reservedPrefix) && n[:len(reservedPrefix)] == reservedPrefix {
			t.Fatalf("SchemaObjects returned reserved-prefix object %q", n)
		}
	}
	for name, seen := range wantSeen {
		if !seen {
			t.Fatalf("SchemaObjects missing %q, got %v", name, names)
		}
	}
}

func TestTableInfoAndIndexList(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.ExecDDL(ctx,
		"CREATE TABLE t1(a INTEGER, b INTEGER, PRIMARY KEY(a))",
		"CREATE INDEX t1_b ON t1(b)",
	); err != nil {
		t.Fatal(err)
	}

	cols, err := db.TableInfo(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 2 || !cols[0].PrimaryKey || cols[1].PrimaryKey {
		t.Fatalf("cols = %+v", cols)
	}

	indexes, err := db.IndexList(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, idx := range indexes {
		if idx.Name == "t1_b" {
			found = true
			if len(idx.Columns) != 1 || idx.Columns[0].ColumnIndex != 1 {
				t.Fatalf("t1_b columns = %+v", idx.Columns)
			}
		}
	}
	if !found {
		t.Fatalf("t1_b not found in %+v", indexes)
	}
}

func TestPrepareRejectsInvalidSQL(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.ExecDDL(ctx, "CREATE TABLE t1(a INTEGER PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}
	if err := db.Prepare(ctx, "SELECT * FROM missing_table"); err == nil {
		t.Fatal("want error for a statement referencing a missing table")
	}
	if err := db.Prepare(ctx, "SELECT * FROM t1"); err != nil {
		t.Fatalf("Prepare of valid SQL failed: %v", err)
	}
}

func TestExplainQueryPlanReportsIndexUsage(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.ExecDDL(ctx,
		"CREATE TABLE t1(a INTEGER PRIMARY KEY, b INTEGER)",
		"CREATE INDEX t1_b ON t1(b)",
	); err != nil {
		t.Fatal(err)
	}

	rows, err := db.ExplainQueryPlan(ctx, "SELECT * FROM t1 WHERE b = 1")
	if err != nil {
		t.Fatal(err)
	}
	var sawIndex bool
	for _, r := range rows {
		if containsAll(r.Detail, "USING INDEX", "t1_b") {
			sawIndex = true
		}
	}
	if !sawIndex {
		t.Fatalf("plan rows = %+v, want one mentioning t1_b", rows)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
