// Command sqlite3expert is the CLI wrapper spec.md §6 describes: given a
// SQLite database and a SQL workload, it prints, per statement, the SQL,
// the recommended indexes, and the final plan.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/k0kubun/sqlite3expert/config"
	"github.com/k0kubun/sqlite3expert/expert"
	"github.com/k0kubun/sqlite3expert/internal/sqlitestore"
	"github.com/k0kubun/sqlite3expert/util"
)

type options struct {
	SQL    string `short:"s" long:"sql" description:"Analyze a single SQL statement" value-name:"text"`
	File   string `short:"f" long:"file" description:"Analyze a newline-separated workload file" value-name:"path"`
	Config string `long:"config" description:"YAML file overriding advisor tunables" value-name:"path"`
	Debug  bool   `long:"debug" description:"Pretty-print the referenced tables and the candidate set after analysis"`
	Help   bool   `long:"help" description:"Show this help"`
}

// parseFlags runs go-flags against args without ever exiting the
// process, so argument-validation logic stays testable in-process.
func parseFlags(args []string) (options, []string, *flags.Parser, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[option...] db_path"
	// go-flags reads "-sql" as the short option -s with the value "ql", so
	// the single-dash long spellings are rewritten to their "--" form first.
	args = append([]string(nil), args...)
	for i, a := range args {
		if a == "-sql" || a == "-file" || a == "-debug" {
			args[i] = "-" + a
		}
	}
	rest, err := parser.ParseArgs(args)
	return opts, rest, parser, err
}

func parseArgs(args []string) (options, string) {
	opts, rest, parser, err := parseFlags(args)
	if err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "exactly one database path is required")
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}
	return opts, rest[0]
}

// workload splits -sql/-file input into one statement per line, mirroring
// spec.md §6's "newline-separated workload" CLI contract.
func workload(opts options) ([]string, error) {
	if opts.SQL != "" {
		return []string{opts.SQL}, nil
	}
	f, err := os.Open(opts.File)
	if err != nil {
		return nil, fmt.Errorf("open workload file: %w", err)
	}
	defer f.Close()

	var stmts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stmts = append(stmts, line)
	}
	return stmts, scanner.Err()
}

func main() {
	opts, dbPath := parseArgs(os.Args[1:])

	cfg, err := config.Parse(opts.Config)
	if err != nil {
		log.Fatal(err)
	}
	util.InitSlog(cfg.LogLevel)

	stmts, err := workload(opts)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	db, err := sqlitestore.Open(ctx, dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	session, err := expert.New(ctx, db, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	for _, stmt := range stmts {
		if err := session.SubmitSQL(ctx, stmt); err != nil {
			fmt.Fprintf(os.Stderr, "submit %q: %v\n", stmt, err)
			os.Exit(1)
		}
	}

	if err := session.Analyze(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}

	if opts.Debug {
		printer := pp.New()
		printer.SetColoringEnabled(term.IsTerminal(int(os.Stdout.Fd())))
		quoted := util.TransformSlice(session.ReferencedTables(), func(t string) string { return fmt.Sprintf("%q", t) })
		printer.Println("tables:", strings.Join(quoted, ", "))
		candidates, _ := session.Report(0, expert.ReportCandidates)
		printer.Println("candidates:")
		printer.Println(candidates)
	}

	printReports(os.Stdout, session, stmts)
}

// printReports prints the SQL/INDEXES/PLAN report for every statement.
// When stdout is a terminal, a divider line separates each statement for
// readability; piped output stays plain so downstream tooling can grep it.
func printReports(out *os.File, session *expert.Session, stmts []string) {
	interactive := term.IsTerminal(int(out.Fd()))
	for i := range stmts {
		if interactive {
			fmt.Fprintf(out, "--- statement %d ---\n", i)
		}
		sql, _ := session.Report(i, expert.ReportSQL)
		indexes, _ := session.Report(i, expert.ReportIndexes)
		plan, _ := session.Report(i, expert.ReportPlan)
		fmt.Fprintln(out, sql)
		fmt.Fprint(out, indexes)
		fmt.Fprint(out, plan)
	}
}
