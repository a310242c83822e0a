package predicate

import (
	"reflect"
	"testing"
)

func TestTokenizeIdentifiersAndOperators(t *testing.T) {
	toks := Tokenize(`SELECT * FROM t1 WHERE b >= ? AND c <> "weird name"`)

	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}

	want := []TokenKind{
		TokIdent, TokPunct, TokIdent, TokIdent, TokIdent, TokIdent, TokPunct, TokPlaceholder,
		TokIdent, TokIdent, TokPunct, TokIdent,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
}

func TestTokenizeQuotedIdentEscaping(t *testing.T) {
	toks := Tokenize(`"a""b"`)
	if len(toks) != 1 || toks[0].Kind != TokIdent || toks[0].Text != `a"b` {
		t.Fatalf("got %+v", toks)
	}
}

func TestTokenizeStringEscaping(t *testing.T) {
	toks := Tokenize(`'it''s here'`)
	if len(toks) != 1 || toks[0].Kind != TokString || toks[0].Text != "it's here" {
		t.Fatalf("got %+v", toks)
	}
}

func TestTokenizeSkipsComments(t *testing.T) {
	toks := Tokenize("a -- trailing comment\n= /* block */ b")
	want := []Token{
		{Kind: TokIdent, Text: "a"},
		{Kind: TokPunct, Text: "="},
		{Kind: TokIdent, Text: "b"},
	}
	if !reflect.DeepEqual(toks, want) {
		t.Fatalf("toks = %+v, want %+v", toks, want)
	}
}

func TestTokenizeNormalizesNegationOperator(t *testing.T) {
	toks := Tokenize("a != b")
	if toks[1].Text != "<>" {
		t.Fatalf("want normalized <>, got %q", toks[1].Text)
	}
}

func TestTokenizeNamedPlaceholders(t *testing.T) {
	for _, sql := range []string{":name", "@name", "$1"} {
		toks := Tokenize(sql)
		if len(toks) != 1 || toks[0].Kind != TokPlaceholder {
			t.Fatalf("%s: got %+v", sql, toks)
		}
	}
}
