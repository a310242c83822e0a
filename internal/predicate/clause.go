package predicate

import "strings"

// CmpOp is one of the comparison operators the synthesizer cares about.
// '<>' and other operators never produce a candidate and are not
// represented here; conjuncts using them are simply not extracted.
type CmpOp int

const (
	OpEQ CmpOp = iota
	OpLT
	OpLE
	OpGT
	OpGE
)

// ColumnRef is a (possibly table-qualified) column reference as written in
// the statement text.
type ColumnRef struct {
	Table  string // alias or table name as written; "" if unqualified
	Column string
}

// TableRef is one FROM-clause entry.
type TableRef struct {
	Name  string
	Alias string
}

// RefName is how other clauses in the same statement refer to this table:
// its alias if it has one, its name otherwise.
func (t TableRef) RefName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// WhereTerm is a single simple comparison extracted from the WHERE clause
// (or an ON clause folded into it): `<column> <op> <other>`, always
// normalized so the column is on the left.
type WhereTerm struct {
	Col      ColumnRef
	Op       CmpOp
	Collate  string     // explicit COLLATE override, "" if none given
	DepOn    []string   // other tables' RefName()s the right-hand side depends on; nil if constant/placeholder
	OtherCol *ColumnRef // the other side's column reference, if it is itself a column (cross-table join predicate); nil for constant/placeholder
}

// OrderTerm is a single ORDER BY term.
type OrderTerm struct {
	Col     ColumnRef
	Collate string
	Desc    bool
}

// ParsedSelect is the scan-relevant structure extracted from one SELECT
// statement.
type ParsedSelect struct {
	Tables  []TableRef
	Where   []WhereTerm
	OrderBy []OrderTerm
}

func isKeyword(t Token, kw string) bool {
	return t.Kind == TokIdent && strings.EqualFold(t.Text, kw)
}

func isAnyKeyword(t Token, kws ...string) bool {
	for _, kw := range kws {
		if isKeyword(t, kw) {
			return true
		}
	}
	return false
}

// topLevelIndex returns the index of the first token matching `kws` (a
// single keyword, or a keyword pair like "ORDER","BY" matched
// consecutively) at paren depth 0, or -1.
func topLevelIndex(toks []Token, kws ...string) int {
	depth := 0
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == TokPunct && t.Text == "(" {
			depth++
			continue
		}
		if t.Kind == TokPunct && t.Text == ")" {
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		if len(kws) == 1 {
			if isKeyword(t, kws[0]) {
				return i
			}
			continue
		}
		if i+len(kws) > len(toks) {
			continue
		}
		match := true
		for j, kw := range kws {
			if !isKeyword(toks[i+j], kw) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// splitTopLevel splits tokens on every top-level occurrence of a
// single-token separator (an identifier keyword like AND/OR, or a punct
// like ",").
func splitTopLevel(toks []Token, sep Token) [][]Token {
	var parts [][]Token
	depth := 0
	start := 0
	for i, t := range toks {
		if t.Kind == TokPunct && t.Text == "(" {
			depth++
		} else if t.Kind == TokPunct && t.Text == ")" {
			depth--
		} else if depth == 0 && t.Kind == sep.Kind && strings.EqualFold(t.Text, sep.Text) {
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	parts = append(parts, toks[start:])
	return parts
}

// ParseSelect extracts FROM/WHERE/ORDER BY structure from a single SELECT
// statement's text. It never returns an error for constructs it doesn't
// understand (subqueries, CTEs, set operations, OR-disjunctions) — it
// simply extracts less. The caller's engine-level Prepare() call is what
// catches genuinely invalid SQL (spec.md's ParseError); this walk only
// ever narrows what gets reported as a Scan.
func ParseSelect(sql string) *ParsedSelect {
	toks := Tokenize(sql)
	out := &ParsedSelect{}

	fromIdx := topLevelIndex(toks, "FROM")
	if fromIdx < 0 {
		return out
	}

	end := len(toks)
	whereIdx := topLevelIndex(toks, "WHERE")
	groupIdx := topLevelIndex(toks, "GROUP", "BY")
	orderIdx := topLevelIndex(toks, "ORDER", "BY")
	limitIdx := topLevelIndex(toks, "LIMIT")
	fromEnd := end
	for _, idx := range []int{whereIdx, groupIdx, orderIdx, limitIdx} {
		if idx >= 0 && idx < fromEnd {
			fromEnd = idx
		}
	}

	var joinConds [][]Token
	out.Tables, joinConds = parseFromClause(toks[fromIdx+1 : fromEnd])

	tableNames := make(map[string]bool, len(out.Tables))
	for _, tr := range out.Tables {
		tableNames[strings.ToLower(tr.RefName())] = true
	}

	var whereToks []Token
	if whereIdx >= 0 {
		whereEnd := end
		for _, idx := range []int{groupIdx, orderIdx, limitIdx} {
			if idx >= 0 && idx < whereEnd {
				whereEnd = idx
			}
		}
		whereToks = toks[whereIdx+1 : whereEnd]
	}

	condGroups := joinConds
	if len(whereToks) > 0 {
		condGroups = append(condGroups, whereToks)
	}
	for _, group := range condGroups {
		out.Where = append(out.Where, parseConjuncts(group, out.Tables)...)
	}

	if orderIdx >= 0 {
		orderEnd := end
		if limitIdx >= 0 && limitIdx < orderEnd {
			orderEnd = limitIdx
		}
		out.OrderBy = parseOrderBy(toks[orderIdx+2:orderEnd], out.Tables)
	}

	_ = tableNames
	return out
}

var joinKeywords = []string{"JOIN", "INNER", "LEFT", "RIGHT", "OUTER", "CROSS", "NATURAL"}

func parseFromClause(toks []Token) ([]TableRef, [][]Token) {
	var tables []TableRef
	var conds [][]Token

	i := 0
	for i < len(toks) {
		for i < len(toks) && (isAnyKeyword(toks[i], joinKeywords...) || (toks[i].Kind == TokPunct && toks[i].Text == ",")) {
			i++
		}
		if i >= len(toks) || toks[i].Kind != TokIdent {
			break
		}
		tr := TableRef{Name: toks[i].Text}
		i++
		// optional dotted schema-qualification: schema.table
		if i < len(toks) && toks[i].Kind == TokPunct && toks[i].Text == "." && i+1 < len(toks) && toks[i+1].Kind == TokIdent {
			tr.Name = toks[i+1].Text
			i += 2
		}
		if i < len(toks) && isKeyword(toks[i], "AS") {
			i++
		}
		if i < len(toks) && toks[i].Kind == TokIdent && !isAnyKeyword(toks[i], append(joinKeywords, "ON", "WHERE")...) {
			tr.Alias = toks[i].Text
			i++
		}
		tables = append(tables, tr)

		if i < len(toks) && isKeyword(toks[i], "ON") {
			i++
			start := i
			depth := 0
			for i < len(toks) {
				t := toks[i]
				if t.Kind == TokPunct && t.Text == "(" {
					depth++
				} else if t.Kind == TokPunct && t.Text == ")" {
					depth--
				} else if depth == 0 && (isAnyKeyword(t, joinKeywords...) || (t.Kind == TokPunct && t.Text == ",")) {
					break
				}
				i++
			}
			conds = append(conds, toks[start:i])
		}
	}
	return tables, conds
}

func parseConjuncts(toks []Token, tables []TableRef) []WhereTerm {
	orGroups := splitTopLevel(toks, Token{Kind: TokIdent, Text: "OR"})
	if len(orGroups) != 1 {
		return nil
	}
	var terms []WhereTerm
	for _, conjunct := range splitTopLevel(orGroups[0], Token{Kind: TokIdent, Text: "AND"}) {
		if term, ok := parseComparison(conjunct, tables); ok {
			terms = append(terms, term)
		}
	}
	return terms
}

var opText = map[string]CmpOp{
	"=":  OpEQ,
	"<":  OpLT,
	"<=": OpLE,
	">":  OpGT,
	">=": OpGE,
}

func mirrorOp(op CmpOp) CmpOp {
	switch op {
	case OpLT:
		return OpGT
	case OpLE:
		return OpGE
	case OpGT:
		return OpLT
	case OpGE:
		return OpLE
	default:
		return OpEQ
	}
}

func parseComparison(toks []Token, tables []TableRef) (WhereTerm, bool) {
	opIdx := -1
	var op CmpOp
	depth := 0
	for i, t := range toks {
		if t.Kind == TokPunct && t.Text == "(" {
			depth++
		} else if t.Kind == TokPunct && t.Text == ")" {
			depth--
		} else if depth == 0 && t.Kind == TokPunct {
			if o, ok := opText[t.Text]; ok {
				if opIdx >= 0 {
					return WhereTerm{}, false // more than one top-level operator: too complex
				}
				opIdx = i
				op = o
			}
		}
	}
	if opIdx < 0 {
		return WhereTerm{}, false
	}

	left, leftCollate := stripCollate(toks[:opIdx])
	right, rightCollate := stripCollate(toks[opIdx+1:])

	if col, ok := asColumnRef(left); ok {
		dep, other, ok := classifyOther(right, col, tables)
		if !ok {
			return WhereTerm{}, false
		}
		collate := rightCollate
		if leftCollate != "" {
			collate = leftCollate
		}
		return WhereTerm{Col: col, Op: op, Collate: collate, DepOn: dep, OtherCol: other}, true
	}
	if col, ok := asColumnRef(right); ok {
		dep, other, ok := classifyOther(left, col, tables)
		if !ok {
			return WhereTerm{}, false
		}
		collate := leftCollate
		if rightCollate != "" {
			collate = rightCollate
		}
		return WhereTerm{Col: col, Op: mirrorOp(op), Collate: collate, DepOn: dep, OtherCol: other}, true
	}
	return WhereTerm{}, false
}

// stripCollate removes a trailing "COLLATE <name>" suffix, returning the
// remaining tokens and the collation name (empty if none present).
func stripCollate(toks []Token) ([]Token, string) {
	if len(toks) >= 2 && isKeyword(toks[len(toks)-2], "COLLATE") && toks[len(toks)-1].Kind == TokIdent {
		return toks[:len(toks)-2], toks[len(toks)-1].Text
	}
	return toks, ""
}

func asColumnRef(toks []Token) (ColumnRef, bool) {
	switch {
	case len(toks) == 1 && toks[0].Kind == TokIdent:
		return ColumnRef{Column: toks[0].Text}, true
	case len(toks) == 3 && toks[0].Kind == TokIdent && toks[1].Kind == TokPunct && toks[1].Text == "." && toks[2].Kind == TokIdent:
		return ColumnRef{Table: toks[0].Text, Column: toks[2].Text}, true
	default:
		return ColumnRef{}, false
	}
}

// classifyOther decides whether the non-column side of a comparison is a
// constant/placeholder (nil deps, nil other column), a reference to
// another FROM-clause table (deps = that table, other = its column), or
// something too complex to classify safely (ok=false, drop the whole
// conjunct).
func classifyOther(toks []Token, ownCol ColumnRef, tables []TableRef) ([]string, *ColumnRef, bool) {
	if len(toks) == 1 && (toks[0].Kind == TokPlaceholder || toks[0].Kind == TokNumber || toks[0].Kind == TokString) {
		return nil, nil, true
	}
	other, ok := asColumnRef(toks)
	if !ok {
		return nil, nil, false
	}
	if other.Table != "" {
		if strings.EqualFold(other.Table, ownCol.Table) {
			return nil, nil, false // same-table column-to-column comparison: not indexable this way
		}
		for _, tr := range tables {
			if strings.EqualFold(tr.RefName(), other.Table) {
				o := other
				o.Table = tr.RefName()
				return []string{tr.RefName()}, &o, true
			}
		}
		return nil, nil, false
	}
	// Unqualified column on the dependency side: attribute it to "the other
	// table" only when that is unambiguous (exactly two FROM tables).
	if len(tables) == 2 {
		for _, tr := range tables {
			if !strings.EqualFold(tr.RefName(), ownCol.Table) {
				o := ColumnRef{Table: tr.RefName(), Column: other.Column}
				return []string{tr.RefName()}, &o, true
			}
		}
	}
	return nil, nil, false
}

func parseOrderBy(toks []Token, tables []TableRef) []OrderTerm {
	var terms []OrderTerm
	for _, part := range splitTopLevel(toks, Token{Kind: TokPunct, Text: ","}) {
		part = trimTokens(part)
		if len(part) == 0 {
			continue
		}
		desc := false
		if isKeyword(part[len(part)-1], "ASC") {
			part = part[:len(part)-1]
		} else if isKeyword(part[len(part)-1], "DESC") {
			desc = true
			part = part[:len(part)-1]
		}
		part, collate := stripCollate(part)
		col, ok := asColumnRef(trimTokens(part))
		if !ok {
			continue
		}
		_ = tables
		terms = append(terms, OrderTerm{Col: col, Collate: collate, Desc: desc})
	}
	return terms
}

func trimTokens(toks []Token) []Token {
	start, end := 0, len(toks)
	for start < end && toks[start].Kind == TokPunct && toks[start].Text == "," {
		start++
	}
	return toks[start:end]
}
