package expert

import (
	"context"
	"log/slog"

	"github.com/k0kubun/sqlite3expert/config"
	"github.com/k0kubun/sqlite3expert/internal/predicate"
	"github.com/k0kubun/sqlite3expert/internal/sqlitestore"
)

type sessionState int

const (
	stateExtracting sessionState = iota
	stateAnalyzed
	stateFailed
)

// Session is the advisor's handle: spec.md's expert_new/expert_sql/
// expert_analyze/expert_count/expert_report/expert_destroy public API, as
// Go methods over a state machine (EXTRACTING -> ANALYZED). Not safe for
// concurrent use from multiple goroutines: the session model (spec.md §5)
// is strictly single-threaded, the same way a sqlite3_stmt handle is.
type Session struct {
	userDB *sqlitestore.DB
	mirror *sqlitestore.DB
	cat    *catalog

	statements []*Statement
	parsed     []*predicate.ParsedSelect
	scans      [][]Scan

	candidates map[string]*CandidateIndex
	order      []string

	closureCap int
	state      sessionState
}

// New mirrors userDB's schema into a scratch database and returns a
// Session ready to accept a workload (expert_new). userDB is owned by the
// caller and is never written to or closed by the Session. cfg.ClosureCap
// overrides the dependency-mask closure cap of candidate.go's synthesis
// step; the zero Config uses the built-in default.
func New(ctx context.Context, userDB *sqlitestore.DB, cfg config.Config) (*Session, error) {
	mirror, err := newMirror(ctx, userDB)
	if err != nil {
		return nil, err
	}
	cat := newCatalog(mirror)
	if err := cat.loadDDL(ctx); err != nil {
		mirror.Close()
		return nil, err
	}
	return &Session{
		userDB:     userDB,
		mirror:     mirror,
		cat:        cat,
		candidates: make(map[string]*CandidateIndex),
		closureCap: cfg.ClosureCap,
		state:      stateExtracting,
	}, nil
}

// SubmitSQL validates sqlText against the mirror and records its parse
// tree, appending a new Statement (expert_sql). Scan extraction — which
// needs the Catalog Loader's column/primary-key metadata — is deferred to
// Analyze, so a table with no primary key only ever fails at analyze
// time (spec.md §4.1: submit_sql's only failure modes are ParseError and
// MisuseError). On failure nothing is appended and the Session remains
// in EXTRACTING — the rollback spec.md §7 requires falls out of ordering
// the checks before any append, rather than needing an explicit undo
// step.
func (s *Session) SubmitSQL(ctx context.Context, sqlText string) error {
	if s.state != stateExtracting {
		return ErrMisuse
	}

	if err := s.mirror.Prepare(ctx, sqlText); err != nil {
		return &ParseError{Msg: err.Error()}
	}

	s.statements = append(s.statements, &Statement{
		ID:          uint32(len(s.statements)),
		OriginalSQL: sqlText,
	})
	s.parsed = append(s.parsed, predicate.ParseSelect(sqlText))
	return nil
}

// Analyze runs the Catalog Loader, Candidate Synthesizer, and Plan
// Evaluator in that order (spec.md §4.1), transitioning
// EXTRACTING->ANALYZED. Callable exactly once; a second call returns
// ErrMisuse (spec.md §8). A failure here marks the Session unusable
// except for Close (spec.md §7).
func (s *Session) Analyze(ctx context.Context) error {
	if s.state != stateExtracting {
		return ErrMisuse
	}

	s.scans = make([][]Scan, len(s.parsed))
	for i, parsed := range s.parsed {
		scans, err := extractScans(ctx, s.cat, parsed)
		if err != nil {
			s.state = stateFailed
			return &AnalysisFailedError{Err: err}
		}
		s.scans[i] = scans
	}
	slog.Debug("catalog loaded", "tables", len(s.cat.tables))

	for _, stmtScans := range s.scans {
		for i := range stmtScans {
			scan := stmtScans[i]
			if len(scan.Equality) == 0 && len(scan.Range) == 0 && len(scan.OrderBy) == 0 {
				continue
			}
			table, err := s.cat.table(ctx, scan.Table)
			if err != nil {
				s.state = stateFailed
				return &AnalysisFailedError{Err: err}
			}
			if err := synthesizeScan(ctx, s.mirror, table, &scan, s.candidates, &s.order, s.closureCap); err != nil {
				s.state = stateFailed
				return &AnalysisFailedError{Err: err}
			}
		}
	}
	slog.Debug("candidates synthesized", "count", len(s.candidates))

	for _, stmt := range s.statements {
		if err := evaluatePlan(ctx, s.mirror, stmt, s.candidates); err != nil {
			s.state = stateFailed
			return &AnalysisFailedError{Err: err}
		}
	}
	slog.Debug("plan evaluated", "statements", len(s.statements))

	s.state = stateAnalyzed
	return nil
}

// StatementCount returns the number of statements submitted so far
// (expert_count).
func (s *Session) StatementCount() int {
	return len(s.statements)
}

// Report renders one of the per-statement reports, or the session-global
// CANDIDATES report when kind is ReportCandidates (id is then ignored).
// Only callable once Analyze has succeeded (expert_report). spec.md §4.1
// documents both "session not ANALYZED" and "id out of range" as
// returning null; Go has no string null, so the two are distinguished by
// sentinel error instead: ErrMisuse for the former (the same sentinel
// every other wrong-state call returns), ErrNoSuchStatement for the
// latter (a caller mistake about the statement list, not about Session
// state).
func (s *Session) Report(id int, kind ReportKind) (string, error) {
	if s.state != stateAnalyzed {
		return "", ErrMisuse
	}
	if kind == ReportCandidates {
		return candidatesReport(s.candidates, s.order), nil
	}
	if id < 0 || id >= len(s.statements) {
		return "", ErrNoSuchStatement
	}
	return statementReport(s.statements[id], s.candidates, s.order, kind), nil
}

// ReferencedTables returns the names of every table the workload
// referenced so far, in deterministic (sorted) order. Exposed for
// debug/diagnostic use (see cmd/sqlite3expert's -debug flag); not part of
// spec.md's public API.
func (s *Session) ReferencedTables() []string {
	return s.cat.tableNames()
}

// Close releases the Session's scratch mirror database (expert_destroy).
// The caller's userDB handle is untouched.
func (s *Session) Close() error {
	return s.mirror.Close()
}
