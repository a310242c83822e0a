package expert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/k0kubun/sqlite3expert/internal/sqlitestore"
)

// newMirror opens a private scratch in-memory database and replays the
// user's table/view/index DDL into it. The mirror's base tables hold no
// rows — the advisor never executes the workload, only prepares
// statements and asks the planner to explain them (spec.md §1: "does not
// execute the statements, does not require ANALYZE statistics").
//
// This is the Schema Mirror component (spec.md §4.2). Earlier SQLite
// "expert" extensions expose each base table to the planner through a
// stub virtual table so constraint-pushdown calls can be captured live;
// see DESIGN.md for why this implementation extracts scans from the
// statement text instead (internal/predicate) and so needs only ordinary,
// empty mirror tables.
func newMirror(ctx context.Context, userDB *sqlitestore.DB) (*sqlitestore.DB, error) {
	mirror, err := sqlitestore.Open(ctx, ":memory:")
	if err != nil {
		return nil, &SetupFailedError{Err: err}
	}

	objs, err := userDB.SchemaObjects(ctx)
	if err != nil {
		mirror.Close()
		slog.Error("reading user schema failed", "error", err)
		return nil, &SetupFailedError{Err: fmt.Errorf("read user schema: %w", err)}
	}

	replayed := 0
	for _, obj := range objs {
		if obj.SQL == "" {
			continue // auto-index for a PRIMARY KEY/UNIQUE constraint; created implicitly with its table
		}
		switch obj.Type {
		case "table", "view", "index":
		default:
			continue // triggers and anything else: not part of this spec's schema copy
		}
		if err := mirror.ExecDDL(ctx, obj.SQL); err != nil {
			mirror.Close()
			slog.Error("schema replay failed", "object", obj.Name, "type", obj.Type, "error", err)
			return nil, &SetupFailedError{Err: fmt.Errorf("replay %s %s: %w", obj.Type, obj.Name, err)}
		}
		replayed++
	}

	slog.Debug("mirror created", "objects", replayed)
	return mirror, nil
}
