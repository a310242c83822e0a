// Package expert implements the index-advisor core: candidate-index
// synthesis and validation against a real SQLite query planner.
//
// A Session mirrors a user's schema into a private scratch database,
// extracts scan descriptors from a submitted SQL workload, synthesizes
// candidate secondary indexes, installs the ones not already subsumed by
// an existing index, and reports which candidates the planner actually
// chose for each statement.
package expert

// Column is (name, declared collation, primary-key membership).
type Column struct {
	Name              string
	DeclaredCollation string
	IsPrimaryKey      bool
}

// Table is a table's name and its ordered column sequence, as reported by
// the catalog loader.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnIndex returns the ordinal of the named column, or -1 if table has
// no such column.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if equalFoldASCII(c.Name, name) {
			return i
		}
	}
	return -1
}

// ConstraintKind classifies a Constraint.
type ConstraintKind int

const (
	KindEquality ConstraintKind = iota
	KindRange
	KindOrderBy
)

// Constraint is a single term extractable from a WHERE or ORDER BY clause,
// tied to one column of the owning Scan's table.
type Constraint struct {
	ColumnIndex    int
	Collation      string // the collation the planner would apply; may differ from the column's declared collation
	Kind           ConstraintKind
	DependencyMask uint64 // bitset of FROM-clause tables this constraint's other side depends on
	Descending     bool   // meaningful only for Kind == KindOrderBy
}

// Scan is one per-table access within a prepared statement: the table
// it's against, and every predicate/ordering term the statement places on
// that access.
type Scan struct {
	Table        string
	CoveringMask uint64 // this scan's own FROM-clause bit OR'd with its equality constraints' dependency masks
	Equality     []Constraint
	Range        []Constraint
	OrderBy      []Constraint
}

// Statement is one submitted SQL statement and, after analysis, the
// candidate indexes the planner chose for it.
type Statement struct {
	ID            uint32
	OriginalSQL   string
	ChosenIndexes map[string]bool
	PlanText      string
}

// CandidateColumn is one key column of a synthesized index.
type CandidateColumn struct {
	ColumnIndex int
	Collation   string // "" if it matches the column's own declared collation (no COLLATE override)
	Descending  bool
}

// CandidateIndex is an index definition the advisor synthesized and
// installed into the mirror. Uniqueness within a Session is by structural
// fingerprint (see candidate.go).
type CandidateIndex struct {
	Name      string
	Table     string
	Columns   []CandidateColumn
	CreateSQL string
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
