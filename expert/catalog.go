package expert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/k0kubun/sqlite3expert/internal/predicate"
	"github.com/k0kubun/sqlite3expert/internal/sqlitestore"
	"github.com/k0kubun/sqlite3expert/util"
)

// catalog is the in-memory table map built up lazily as the workload
// references tables, plus the DDL text each table's collations are
// extracted from.
type catalog struct {
	mirror *sqlitestore.DB
	tables map[string]*Table // keyed by lowercased table name
	ddl    map[string]string // lowercased table name -> its CREATE TABLE text
}

func newCatalog(mirror *sqlitestore.DB) *catalog {
	return &catalog{
		mirror: mirror,
		tables: make(map[string]*Table),
		ddl:    make(map[string]string),
	}
}

// loadDDL primes the catalog's DDL text cache from the mirror's
// sqlite_master, so table() can look up a CREATE TABLE statement by name
// without a further round trip.
func (c *catalog) loadDDL(ctx context.Context) error {
	objs, err := c.mirror.SchemaObjects(ctx)
	if err != nil {
		slog.Error("catalog DDL load failed", "error", err)
		return &CatalogError{Msg: err.Error()}
	}
	for _, obj := range objs {
		if obj.Type == "table" {
			c.ddl[strings.ToLower(obj.Name)] = obj.SQL
		}
	}
	slog.Debug("catalog DDL loaded", "tables", len(c.ddl))
	return nil
}

// table returns the catalog entry for name, loading and caching it from the
// mirror's introspection pragmas on first reference. Returns
// *NoPrimaryKeyError if the table has no primary-key column (spec.md §4.3).
func (c *catalog) table(ctx context.Context, name string) (*Table, error) {
	key := strings.ToLower(name)
	if t, ok := c.tables[key]; ok {
		return t, nil
	}

	cols, err := c.mirror.TableInfo(ctx, name)
	if err != nil {
		slog.Error("catalog load failed", "table", name, "error", err)
		return nil, &CatalogError{Msg: err.Error()}
	}
	if len(cols) == 0 {
		slog.Error("catalog load failed", "table", name, "error", "no such table")
		return nil, &CatalogError{Msg: fmt.Sprintf("no such table: %s", name)}
	}

	collations := parseColumnCollations(c.ddl[key])

	hasPK := false
	t := &Table{Name: name}
	for _, ci := range cols {
		collate := collations[strings.ToLower(ci.Name)]
		if collate == "" {
			collate = sqlitestore.DefaultCollationName
		}
		t.Columns = append(t.Columns, Column{
			Name:              ci.Name,
			DeclaredCollation: collate,
			IsPrimaryKey:      ci.PrimaryKey,
		})
		hasPK = hasPK || ci.PrimaryKey
	}
	if !hasPK {
		slog.Warn("table has no primary key", "table", name)
		return nil, &NoPrimaryKeyError{Table: name}
	}

	c.tables[key] = t
	return t, nil
}

// parseColumnCollations extracts each column's declared COLLATE clause (if
// any) from a CREATE TABLE statement's own text. SQLite's introspection
// pragmas (table_info, table_xinfo) don't surface a column's collating
// sequence, so the DDL text is the only source for it; this walks the
// column-definition list the way internal/predicate walks a WHERE clause,
// at paren depth 1 inside the statement's outer parentheses.
func parseColumnCollations(createSQL string) map[string]string {
	result := make(map[string]string)
	if createSQL == "" {
		return result
	}
	toks := predicate.Tokenize(createSQL)

	start, depth := -1, 0
	var body []predicate.Token
	for i, t := range toks {
		if t.Kind == predicate.TokPunct && t.Text == "(" {
			depth++
			if depth == 1 && start < 0 {
				start = i + 1
			}
			continue
		}
		if t.Kind == predicate.TokPunct && t.Text == ")" {
			depth--
			if depth == 0 && start >= 0 {
				body = toks[start:i]
				break
			}
		}
	}
	if body == nil {
		return result
	}

	depth = 0
	groupStart := 0
	flush := func(end int) {
		group := body[groupStart:end]
		if len(group) == 0 || group[0].Kind != predicate.TokIdent {
			return
		}
		if isTableConstraintKeyword(group[0].Text) {
			return
		}
		name := group[0].Text
		for i := 1; i+1 < len(group); i++ {
			if tokEqualFold(group[i], "COLLATE") && group[i+1].Kind == predicate.TokIdent {
				result[strings.ToLower(name)] = group[i+1].Text
				break
			}
		}
	}
	for i, t := range body {
		if t.Kind == predicate.TokPunct && t.Text == "(" {
			depth++
		} else if t.Kind == predicate.TokPunct && t.Text == ")" {
			depth--
		} else if depth == 0 && t.Kind == predicate.TokPunct && t.Text == "," {
			flush(i)
			groupStart = i + 1
		}
	}
	flush(len(body))
	return result
}

// tableNames returns the names of every table loaded into the catalog so
// far, in deterministic (sorted) order.
func (c *catalog) tableNames() []string {
	names := make([]string, 0, len(c.tables))
	for _, t := range util.CanonicalMapIter(c.tables) {
		names = append(names, t.Name)
	}
	return names
}

func isTableConstraintKeyword(word string) bool {
	switch strings.ToUpper(word) {
	case "PRIMARY", "UNIQUE", "CHECK", "FOREIGN", "CONSTRAINT":
		return true
	default:
		return false
	}
}

func tokEqualFold(t predicate.Token, kw string) bool {
	return t.Kind == predicate.TokIdent && strings.EqualFold(t.Text, kw)
}
