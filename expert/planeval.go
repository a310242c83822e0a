package expert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/k0kubun/sqlite3expert/internal/sqlitestore"
)

// noNewIndexesReport is the fixed INDEXES report string for a statement
// the planner served with no candidate index (spec.md §4.5).
const noNewIndexesReport = "(no new indexes)\n"

// evaluatePlan runs EXPLAIN QUERY PLAN against the mirror for stmt, builds
// its plan_text dump, and records which of the session's candidate
// indexes the planner actually chose (spec.md §4.5, Plan Evaluator).
func evaluatePlan(ctx context.Context, mirror *sqlitestore.DB, stmt *Statement, candidates map[string]*CandidateIndex) error {
	rows, err := mirror.ExplainQueryPlan(ctx, stmt.OriginalSQL)
	if err != nil {
		slog.Error("plan evaluation failed", "statement", stmt.ID, "error", err)
		return &PlanError{Msg: err.Error()}
	}

	var sb strings.Builder
	chosen := make(map[string]bool)
	for _, r := range rows {
		fmt.Fprintf(&sb, "%d|%d|%d|%s\n", r.SelectID, r.Order, r.FromID, r.Detail)
		for _, marker := range []string{" USING INDEX ", " USING COVERING INDEX "} {
			if name, ok := indexNameAfter(r.Detail, marker); ok {
				if _, known := candidates[name]; known {
					chosen[name] = true
				}
			}
		}
	}
	stmt.PlanText = sb.String()
	stmt.ChosenIndexes = chosen
	slog.Debug("plan evaluated", "statement", stmt.ID, "chosen", len(chosen))
	return nil
}

// indexNameAfter finds marker in detail and returns the token following
// it, up to the next space-before-'(' or end of string (spec.md §4.5).
func indexNameAfter(detail, marker string) (string, bool) {
	i := strings.Index(detail, marker)
	if i < 0 {
		return "", false
	}
	rest := detail[i+len(marker):]
	if p := strings.IndexByte(rest, '('); p >= 0 {
		return strings.TrimRight(rest[:p], " "), true
	}
	if sp := strings.IndexByte(rest, ' '); sp >= 0 {
		return rest[:sp], true
	}
	return rest, true
}
