package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/k0kubun/sqlite3expert/config"
	"github.com/k0kubun/sqlite3expert/expert"
	"github.com/k0kubun/sqlite3expert/internal/sqlitestore"
)

func TestWorkloadSingleStatement(t *testing.T) {
	stmts, err := workload(options{SQL: "SELECT * FROM t1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 || stmts[0] != "SELECT * FROM t1" {
		t.Fatalf("stmts = %+v", stmts)
	}
}

func TestWorkloadFileSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workload.sql")
	body := "SELECT * FROM t1 WHERE a = 1\n\nSELECT * FROM t2\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	stmts, err := workload(options{File: path})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"SELECT * FROM t1 WHERE a = 1", "SELECT * FROM t2"}
	if len(stmts) != len(want) {
		t.Fatalf("stmts = %+v", stmts)
	}
	for i := range want {
		if stmts[i] != want[i] {
			t.Fatalf("stmts[%d] = %q, want %q", i, stmts[i], want[i])
		}
	}
}

func TestParseFlagsRequiresDBPath(t *testing.T) {
	opts, rest, _, err := parseFlags([]string{"-sql", "SELECT 1"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.SQL != "SELECT 1" {
		t.Fatalf("opts.SQL = %q", opts.SQL)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %+v, want none (db path omitted)", rest)
	}
}

func TestParseFlagsAcceptsDBPath(t *testing.T) {
	opts, rest, _, err := parseFlags([]string{"-sql", "SELECT 1", "test.db"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0] != "test.db" {
		t.Fatalf("rest = %+v, want [test.db]", rest)
	}
	if opts.Help {
		t.Fatal("opts.Help = true, want false")
	}
}

func TestParseFlagsHelp(t *testing.T) {
	opts, _, _, err := parseFlags([]string{"--help"})
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Help {
		t.Fatal("opts.Help = false, want true")
	}
}

func TestPrintReportsWritesPerStatementSections(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitestore.Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.ExecDDL(ctx, "CREATE TABLE t1(a INTEGER PRIMARY KEY, b INTEGER)"); err != nil {
		t.Fatal(err)
	}

	session, err := expert.New(ctx, db, config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	stmts := []string{"SELECT * FROM t1 WHERE b = 1"}
	if err := session.SubmitSQL(ctx, stmts[0]); err != nil {
		t.Fatal(err)
	}
	if err := session.Analyze(ctx); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.txt")
	out, err := os.Create(outPath)
	if err != nil {
		t.Fatal(err)
	}
	printReports(out, session, stmts)
	out.Close()

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	report := string(data)
	if !strings.Contains(report, "SELECT * FROM t1 WHERE b = 1") {
		t.Fatalf("report missing original SQL, got:\n%s", report)
	}
	if !strings.Contains(report, "CREATE INDEX") {
		t.Fatalf("report missing recommended index, got:\n%s", report)
	}
	if strings.Contains(report, "--- statement") {
		t.Fatalf("non-terminal output should not carry divider lines, got:\n%s", report)
	}
}
