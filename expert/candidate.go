package expert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/k0kubun/sqlite3expert/internal/sqlitestore"
)

// maxClosureMasks bounds the dependency-mask closure per scan (spec.md
// §9, "Dependency-mask closure cap" in DESIGN.md): above this many
// distinct non-zero masks, collapse to the single bitwise-OR of all of
// them rather than enumerate every subset.
const maxClosureMasks = 12

// keyCol is an index key column mid-synthesis: always carries its actual
// effective collation (never blanked for rendering), unlike the public
// CandidateColumn which omits Collation when it matches the column's
// declared collation.
type keyCol struct {
	ColumnIndex int
	Collation   string
	Descending  bool
}

// closure computes the set { 0 } ∪ { OR of any subset of the equality
// constraints' dependency masks } (spec.md §4.4, "Dependency closure").
// cap <= 0 selects the built-in default (maxClosureMasks). Once more than
// cap distinct non-zero equality masks have been seen, the fold stops
// growing the set (only the running bitwise-OR of every remaining mask is
// tracked) and the result is { 0, OR of all masks }, so a scan with many
// distinct dependency masks never folds more than cap of them.
func closure(equality []Constraint, cap int) []uint64 {
	if cap <= 0 {
		cap = maxClosureMasks
	}
	masks := map[uint64]bool{0: true}
	distinct := make(map[uint64]bool)
	var all uint64
	overflowed := false
	for _, c := range equality {
		if c.DependencyMask == 0 {
			continue
		}
		all |= c.DependencyMask
		if overflowed {
			continue
		}
		distinct[c.DependencyMask] = true
		if len(distinct) > cap {
			overflowed = true
			continue
		}
		current := make([]uint64, 0, len(masks))
		for m := range masks {
			current = append(current, m)
		}
		for _, m := range current {
			masks[m|c.DependencyMask] = true
		}
	}

	if overflowed {
		return []uint64{0, all}
	}
	out := make([]uint64, 0, len(masks))
	for m := range masks {
		out = append(out, m)
	}
	return out
}

func dedupByColumnFirst(cs []Constraint) []Constraint {
	seen := make(map[int]bool, len(cs))
	out := make([]Constraint, 0, len(cs))
	for _, c := range cs {
		if seen[c.ColumnIndex] {
			continue
		}
		seen[c.ColumnIndex] = true
		out = append(out, c)
	}
	return out
}

func filterSubsetMask(cs []Constraint, mu uint64) []Constraint {
	var out []Constraint
	for _, c := range cs {
		if c.DependencyMask&^mu == 0 {
			out = append(out, c)
		}
	}
	return out
}

func effectiveKeyCols(table *Table, cs []Constraint) []keyCol {
	out := make([]keyCol, len(cs))
	for i, c := range cs {
		collate := c.Collation
		if collate == "" {
			collate = table.Columns[c.ColumnIndex].DeclaredCollation
		}
		if collate == "" {
			collate = sqlitestore.DefaultCollationName
		}
		out[i] = keyCol{ColumnIndex: c.ColumnIndex, Collation: collate, Descending: c.Descending}
	}
	return out
}

func collationOrDefault(c string) string {
	if c == "" {
		return sqlitestore.DefaultCollationName
	}
	return c
}

// synthesizeScan synthesizes and installs every candidate index spec.md
// §4.4 derives from one Scan, skipping any the mirror's existing indexes
// on the table already subsume and any whose generated name collides with
// one already in the session's candidate set.
func synthesizeScan(ctx context.Context, mirror *sqlitestore.DB, table *Table, scan *Scan, candidates map[string]*CandidateIndex, order *[]string, closureCap int) error {
	existing, err := mirror.IndexList(ctx, table.Name)
	if err != nil {
		slog.Error("reading existing indexes failed", "table", table.Name, "error", err)
		return &CatalogError{Msg: err.Error()}
	}

	for _, mu := range closure(scan.Equality, closureCap) {
		eMu := dedupByColumnFirst(filterSubsetMask(scan.Equality, mu))
		eMuKeys := effectiveKeyCols(table, eMu)

		full := append(append([]keyCol{}, eMuKeys...), effectiveKeyCols(table, scan.OrderBy)...)
		if existing, err = tryInstall(ctx, mirror, table, existing, len(eMuKeys), full, candidates, order); err != nil {
			return err
		}

		if len(scan.OrderBy) == 0 {
			inE := make(map[int]bool, len(eMu))
			for _, c := range eMu {
				inE[c.ColumnIndex] = true
			}
			for _, r := range scan.Range {
				if r.DependencyMask&^mu != 0 || inE[r.ColumnIndex] {
					continue
				}
				rFull := append(append([]keyCol{}, eMuKeys...), effectiveKeyCols(table, []Constraint{r})...)
				if existing, err = tryInstall(ctx, mirror, table, existing, len(eMuKeys), rFull, candidates, order); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// tryInstall renders, subsumption-checks, and (if it survives) installs
// one candidate, returning the existing-index list extended with it so
// later candidates in the same scan see it too.
func tryInstall(ctx context.Context, mirror *sqlitestore.DB, table *Table, existing []sqlitestore.IndexInfo, eMuLen int, cols []keyCol, candidates map[string]*CandidateIndex, order *[]string) ([]sqlitestore.IndexInfo, error) {
	if len(cols) == 0 {
		return existing, nil
	}
	if subsumes(existing, eMuLen, cols) {
		return existing, nil
	}

	name, createSQL, pub := renderCreateIndex(table, cols)
	if _, dup := candidates[name]; dup {
		return existing, nil
	}

	if err := mirror.ExecDDL(ctx, createSQL); err != nil {
		slog.Error("candidate index install failed", "table", table.Name, "sql", createSQL, "error", err)
		return existing, &CreateIndexFailedError{Msg: err.Error()}
	}
	candidates[name] = &CandidateIndex{Name: name, Table: table.Name, Columns: pub, CreateSQL: createSQL}
	*order = append(*order, name)
	slog.Debug("candidate index installed", "name", name, "table", table.Name)

	idxCols := make([]sqlitestore.IndexColumn, len(cols))
	for i, c := range cols {
		idxCols[i] = sqlitestore.IndexColumn{ColumnIndex: c.ColumnIndex, Collation: c.Collation, Descending: c.Descending}
	}
	return append(existing, sqlitestore.IndexInfo{Name: name, Origin: "c", Columns: idxCols}), nil
}

// renderCreateIndex renders the column-definition format of spec.md §4.4:
// `name [COLLATE coll] [DESC]` per key column, COLLATE emitted only when
// the constraint's collation differs case-insensitively from the
// column's declared collation.
func renderCreateIndex(table *Table, cols []keyCol) (name, createSQL string, pub []CandidateColumn) {
	defs := make([]string, len(cols))
	pub = make([]CandidateColumn, len(cols))
	for i, kc := range cols {
		col := table.Columns[kc.ColumnIndex]
		def := quoteIdentLocal(col.Name)
		cc := CandidateColumn{ColumnIndex: kc.ColumnIndex, Descending: kc.Descending}
		if !strings.EqualFold(kc.Collation, collationOrDefault(col.DeclaredCollation)) {
			cc.Collation = kc.Collation
			def += " COLLATE " + kc.Collation
		}
		if kc.Descending {
			def += " DESC"
		}
		defs[i] = def
		pub[i] = cc
	}
	colList := strings.Join(defs, ", ")
	name = fmt.Sprintf("%s_idx_%08x", table.Name, fingerprintHash(colList))
	createSQL = fmt.Sprintf("CREATE INDEX %s ON %s(%s)", quoteIdentLocal(name), quoteIdentLocal(table.Name), colList)
	return
}

// subsumes implements spec.md §4.4's subsumption rule: an existing index
// X subsumes the candidate iff its first eMuLen columns match the
// candidate's leading (unordered, set) columns, and the columns
// immediately after that match the candidate's trailing columns in
// order.
func subsumes(existing []sqlitestore.IndexInfo, eMuLen int, cols []keyCol) bool {
	for _, idx := range existing {
		if len(idx.Columns) < len(cols) {
			continue
		}
		if !setMatches(idx.Columns[:eMuLen], cols[:eMuLen]) {
			continue
		}
		if !orderedMatches(idx.Columns[eMuLen:len(cols)], cols[eMuLen:]) {
			continue
		}
		return true
	}
	return false
}

func setMatches(idxCols []sqlitestore.IndexColumn, cols []keyCol) bool {
	if len(idxCols) != len(cols) {
		return false
	}
	remaining := append([]keyCol{}, cols...)
	for _, ic := range idxCols {
		found := -1
		for i, kc := range remaining {
			if kc.ColumnIndex == ic.ColumnIndex && strings.EqualFold(kc.Collation, collationOrDefault(ic.Collation)) {
				found = i
				break
			}
		}
		if found < 0 {
			return false
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return true
}

func orderedMatches(idxCols []sqlitestore.IndexColumn, cols []keyCol) bool {
	if len(idxCols) != len(cols) {
		return false
	}
	for i, ic := range idxCols {
		if ic.ColumnIndex != cols[i].ColumnIndex || !strings.EqualFold(collationOrDefault(ic.Collation), cols[i].Collation) {
			return false
		}
	}
	return true
}

// quoteIdentLocal renders name bare when it is a plain identifier
// ([A-Za-z_][A-Za-z0-9_]* and not an SQL keyword), and double-quoted
// otherwise.
func quoteIdentLocal(name string) string {
	plain := name != "" && (name[0] < '0' || name[0] > '9') && !strings.Contains(sqlKeywords, " "+strings.ToUpper(name)+" ")
	for i := 0; plain && i < len(name); i++ {
		c := name[i]
		plain = c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
	}
	if plain {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlKeywords is SQLite's keyword list, space-delimited for whole-word lookup.
const sqlKeywords = " ABORT ACTION ADD AFTER ALL ALTER ALWAYS ANALYZE AND AS ASC ATTACH AUTOINCREMENT BEFORE BEGIN BETWEEN BY " +
	"CASCADE CASE CAST CHECK COLLATE COLUMN COMMIT CONFLICT CONSTRAINT CREATE CROSS CURRENT CURRENT_DATE CURRENT_TIME " +
	"CURRENT_TIMESTAMP DATABASE DEFAULT DEFERRABLE DEFERRED DELETE DESC DETACH DISTINCT DO DROP EACH ELSE END ESCAPE " +
	"EXCEPT EXCLUDE EXCLUSIVE EXISTS EXPLAIN FAIL FILTER FIRST FOLLOWING FOR FOREIGN FROM FULL GENERATED GLOB GROUP GROUPS " +
	"HAVING IF IGNORE IMMEDIATE IN INDEX INDEXED INITIALLY INNER INSERT INSTEAD INTERSECT INTO IS ISNULL JOIN KEY LAST LEFT " +
	"LIKE LIMIT MATCH MATERIALIZED NATURAL NO NOT NOTHING NOTNULL NULL NULLS OF OFFSET ON OR ORDER OTHERS OUTER OVER " +
	"PARTITION PLAN PRAGMA PRECEDING PRIMARY QUERY RAISE RANGE RECURSIVE REFERENCES REGEXP REINDEX RELEASE RENAME REPLACE " +
	"RESTRICT RETURNING RIGHT ROLLBACK ROW ROWS SAVEPOINT SELECT SET TABLE TEMP TEMPORARY THEN TIES TO TRANSACTION TRIGGER " +
	"UNBOUNDED UNION UNIQUE UPDATE USING VACUUM VALUES VIEW VIRTUAL WHEN WHERE WINDOW WITH WITHOUT "
