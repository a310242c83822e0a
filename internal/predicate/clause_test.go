package predicate

import "testing"

func TestParseSelectSimpleEquality(t *testing.T) {
	p := ParseSelect("SELECT * FROM t1 WHERE b = ?")
	if len(p.Tables) != 1 || p.Tables[0].Name != "t1" {
		t.Fatalf("tables = %+v", p.Tables)
	}
	if len(p.Where) != 1 {
		t.Fatalf("where = %+v", p.Where)
	}
	wt := p.Where[0]
	if wt.Col.Column != "b" || wt.Op != OpEQ || wt.DepOn != nil {
		t.Fatalf("where[0] = %+v", wt)
	}
}

func TestParseSelectRangeAndOrderBy(t *testing.T) {
	p := ParseSelect("SELECT * FROM t1 WHERE b = ? AND c > ? ORDER BY c")
	if len(p.Where) != 2 {
		t.Fatalf("where = %+v", p.Where)
	}
	if p.Where[1].Col.Column != "c" || p.Where[1].Op != OpGT {
		t.Fatalf("where[1] = %+v", p.Where[1])
	}
	if len(p.OrderBy) != 1 || p.OrderBy[0].Col.Column != "c" || p.OrderBy[0].Desc {
		t.Fatalf("orderby = %+v", p.OrderBy)
	}
}

func TestParseSelectCollateOverride(t *testing.T) {
	p := ParseSelect("SELECT * FROM t1 WHERE a = ? COLLATE BINARY")
	if len(p.Where) != 1 || p.Where[0].Collate != "BINARY" {
		t.Fatalf("where = %+v", p.Where)
	}
}

func TestParseSelectCrossTableJoin(t *testing.T) {
	p := ParseSelect("SELECT * FROM t1, t2 WHERE t1.x = t2.y")
	if len(p.Tables) != 2 {
		t.Fatalf("tables = %+v", p.Tables)
	}
	if len(p.Where) != 1 {
		t.Fatalf("where = %+v", p.Where)
	}
	wt := p.Where[0]
	if wt.Col.Table != "t1" || wt.Col.Column != "x" || len(wt.DepOn) != 1 || wt.DepOn[0] != "t2" {
		t.Fatalf("where[0] = %+v", wt)
	}
	if wt.OtherCol == nil || wt.OtherCol.Table != "t2" || wt.OtherCol.Column != "y" {
		t.Fatalf("where[0].OtherCol = %+v", wt.OtherCol)
	}
}

func TestParseSelectJoinOn(t *testing.T) {
	p := ParseSelect("SELECT * FROM t1 JOIN t2 ON t1.x = t2.y WHERE t1.x = ?")
	if len(p.Tables) != 2 {
		t.Fatalf("tables = %+v", p.Tables)
	}
	if len(p.Where) != 2 {
		t.Fatalf("where = %+v", p.Where)
	}
}

func TestParseSelectOrDisjunctionDropped(t *testing.T) {
	p := ParseSelect("SELECT * FROM t1 WHERE b = ? OR c = ?")
	if len(p.Where) != 0 {
		t.Fatalf("OR-disjunction should not be extracted, got %+v", p.Where)
	}
}

func TestParseSelectDescendingOrderBy(t *testing.T) {
	p := ParseSelect("SELECT * FROM t1 ORDER BY b DESC, c")
	if len(p.OrderBy) != 2 {
		t.Fatalf("orderby = %+v", p.OrderBy)
	}
	if !p.OrderBy[0].Desc || p.OrderBy[1].Desc {
		t.Fatalf("orderby = %+v", p.OrderBy)
	}
}

func TestParseSelectAliasedTable(t *testing.T) {
	p := ParseSelect("SELECT * FROM t1 AS a WHERE a.b = ?")
	if len(p.Tables) != 1 || p.Tables[0].Alias != "a" {
		t.Fatalf("tables = %+v", p.Tables)
	}
	if len(p.Where) != 1 || p.Where[0].Col.Table != "a" {
		t.Fatalf("where = %+v", p.Where)
	}
}
