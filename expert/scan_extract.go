package expert

import (
	"context"
	"strings"

	"github.com/k0kubun/sqlite3expert/internal/predicate"
)

// extractScans converts one parsed SELECT's FROM/WHERE/ORDER BY structure
// into one Scan per FROM-clause table reference. This is the Scan
// Extractor of spec.md §4.2, sourced from internal/predicate's statement-
// text walk rather than a live planner constraint-pushdown callback (see
// DESIGN.md, "Scan extraction mechanism").
func extractScans(ctx context.Context, cat *catalog, parsed *predicate.ParsedSelect) ([]Scan, error) {
	if len(parsed.Tables) == 0 {
		return nil, nil
	}

	tables := make([]*Table, len(parsed.Tables))
	bitOf := make(map[string]uint64, len(parsed.Tables))
	scans := make([]*Scan, len(parsed.Tables))
	for i, tr := range parsed.Tables {
		t, err := cat.table(ctx, tr.Name)
		if err != nil {
			return nil, err
		}
		tables[i] = t
		bitOf[strings.ToLower(tr.RefName())] = uint64(1) << uint(i)
		scans[i] = &Scan{Table: tr.Name}
	}

	// resolve finds which FROM-clause table a column reference belongs to:
	// by its table qualifier when given, or by unambiguous column-name
	// membership across the FROM list otherwise.
	resolve := func(col predicate.ColumnRef) (idx int, ok bool) {
		if col.Table != "" {
			for i, tr := range parsed.Tables {
				if strings.EqualFold(tr.RefName(), col.Table) {
					if tables[i].ColumnIndex(col.Column) < 0 {
						return 0, false
					}
					return i, true
				}
			}
			return 0, false
		}
		match := -1
		for i, t := range tables {
			if t.ColumnIndex(col.Column) >= 0 {
				if match >= 0 {
					return 0, false // ambiguous across FROM tables
				}
				match = i
			}
		}
		if match < 0 {
			return 0, false
		}
		return match, true
	}

	depMask := func(depOn []string) uint64 {
		var mask uint64
		for _, name := range depOn {
			mask |= bitOf[strings.ToLower(name)]
		}
		return mask
	}

	for _, wt := range parsed.Where {
		idx, ok := resolve(wt.Col)
		if !ok {
			continue
		}
		ci := tables[idx].ColumnIndex(wt.Col.Column)
		collate := wt.Collate
		if collate == "" {
			collate = tables[idx].Columns[ci].DeclaredCollation
		}
		c := Constraint{
			ColumnIndex:    ci,
			Collation:      collate,
			DependencyMask: depMask(wt.DepOn),
		}
		if wt.Op != predicate.OpEQ {
			c.Kind = KindRange
			scans[idx].Range = append(scans[idx].Range, c)
			continue
		}
		c.Kind = KindEquality
		scans[idx].Equality = append(scans[idx].Equality, c)

		// A cross-table equality join predicate constrains both sides: a
		// nested-loop driver could just as well bind the other table first
		// and look this one up, so the other table's scan also gets the
		// mirror image of this constraint.
		if wt.OtherCol != nil {
			oIdx, ok := resolve(*wt.OtherCol)
			if ok {
				oci := tables[oIdx].ColumnIndex(wt.OtherCol.Column)
				scans[oIdx].Equality = append(scans[oIdx].Equality, Constraint{
					ColumnIndex:    oci,
					Collation:      tables[oIdx].Columns[oci].DeclaredCollation,
					Kind:           KindEquality,
					DependencyMask: bitOf[strings.ToLower(parsed.Tables[idx].RefName())],
				})
			}
		}
	}

	for _, ot := range parsed.OrderBy {
		idx, ok := resolve(ot.Col)
		if !ok {
			continue
		}
		ci := tables[idx].ColumnIndex(ot.Col.Column)
		collate := ot.Collate
		if collate == "" {
			collate = tables[idx].Columns[ci].DeclaredCollation
		}
		scans[idx].OrderBy = append(scans[idx].OrderBy, Constraint{
			ColumnIndex: ci,
			Collation:   collate,
			Kind:        KindOrderBy,
			Descending:  ot.Desc,
		})
	}

	out := make([]Scan, len(scans))
	for i, s := range scans {
		ownBit := bitOf[strings.ToLower(parsed.Tables[i].RefName())]
		s.CoveringMask = ownBit
		for _, c := range s.Equality {
			s.CoveringMask |= c.DependencyMask
		}
		out[i] = *s
	}
	return out, nil
}
