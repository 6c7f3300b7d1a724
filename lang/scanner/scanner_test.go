package scanner

import (
	"testing"

	"github.com/mna/nano/lang/token"
)

func scanString(t *testing.T, src string) []TokenAndValue {
	t.Helper()
	fs := token.NewFileSet()
	f := fs.AddFile("test.nano", -1, len(src))
	toks, err := ScanAll(f, []byte(src))
	if err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	return toks
}

func TestScanKeywordsVsIdents(t *testing.T) {
	toks := scanString(t, "and andy AND Not not notable")
	want := []token.Token{token.AND, token.IDENT, token.AND, token.NOT, token.NOT, token.IDENT, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Token != w {
			t.Errorf("token %d = %v, want %v", i, toks[i].Token, w)
		}
	}
}

func TestScanNumbers(t *testing.T) {
	toks := scanString(t, "123 1.5 .5")
	if toks[0].Token != token.INT || toks[0].Value.Int != 123 {
		t.Errorf("want int 123, got %+v", toks[0])
	}
	if toks[1].Token != token.FLOAT || toks[1].Value.Float != 1.5 {
		t.Errorf("want float 1.5, got %+v", toks[1])
	}
	if toks[2].Token != token.FLOAT || toks[2].Value.Float != 0.5 {
		t.Errorf("want float 0.5, got %+v", toks[2])
	}
}

func TestScanOperators(t *testing.T) {
	toks := scanString(t, "== <= >= += -= *= /= < > = + - * / %")
	want := []token.Token{
		token.EQEQ, token.LE, token.GE, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ,
		token.LT, token.GT, token.EQ, token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Token != w {
			t.Errorf("token %d = %v, want %v", i, toks[i].Token, w)
		}
	}
}

func TestScanComment(t *testing.T) {
	toks := scanString(t, "x = 1 # a comment\ny = 2")
	var kinds []token.Token
	for _, tv := range toks {
		kinds = append(kinds, tv.Token)
	}
	want := []token.Token{
		token.IDENT, token.EQ, token.INT, token.EOL,
		token.IDENT, token.EQ, token.INT, token.EOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
}

func TestScanUnterminatedString(t *testing.T) {
	fs := token.NewFileSet()
	src := `"unterminated`
	f := fs.AddFile("t.nano", -1, len(src))
	_, err := ScanAll(f, []byte(src))
	if err == nil {
		t.Fatalf("expected an error for unterminated string")
	}
}

func TestScanString(t *testing.T) {
	toks := scanString(t, `"hello\nworld"`)
	if toks[0].Token != token.STRING {
		t.Fatalf("want STRING, got %v", toks[0].Token)
	}
	if toks[0].Value.String != "hello\nworld" {
		t.Fatalf("got %q", toks[0].Value.String)
	}
}
