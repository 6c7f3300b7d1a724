package parser_test

import (
	"testing"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/parser"
	"github.com/mna/nano/lang/token"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "test.nano", []byte(src))
	require.NoError(t, err)
	return prog
}

func TestParseFuncReturnLiteral(t *testing.T) {
	prog := parseOK(t, "function main()\nreturn 42\nend\n")
	require.Len(t, prog.Decls, 1)
	fd, ok := prog.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "main", fd.Name)
	require.Len(t, fd.Body.Stmts, 1)
	ret, ok := fd.Body.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
	lit, ok := ret.Expr.(*ast.LitIntExpr)
	require.True(t, ok)
	require.EqualValues(t, 42, lit.Value)
}

func TestParseUnaryMinusPrecedence(t *testing.T) {
	prog := parseOK(t, "function main(x)\nreturn -x + 1\nend\n")
	fd := prog.Decls[0].(*ast.FuncDecl)
	ret := fd.Body.Stmts[0].(*ast.ReturnStmt)
	bin, ok := ret.Expr.(*ast.BinOpExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, bin.Op)
	_, ok = bin.Left.(*ast.UnaryOpExpr)
	require.True(t, ok)
}

func TestParseCompoundAssign(t *testing.T) {
	prog := parseOK(t, "function main(x)\nx += 1\nreturn x\nend\n")
	fd := prog.Decls[0].(*ast.FuncDecl)
	assign, ok := fd.Body.Stmts[0].(*ast.AssignVarStmt)
	require.True(t, ok)
	bin, ok := assign.Expr.(*ast.BinOpExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, bin.Op)
}

func TestParseArrayForLoop(t *testing.T) {
	prog := parseOK(t, "var a[3] = 1, 2, 3\nfunction main()\nfor (i = 0 to 2)\na[i] = i\nend\nreturn a[0]\nend\n")
	require.Len(t, prog.Decls, 2)
	vd := prog.Decls[0].(*ast.VarDecl)
	require.True(t, vd.IsArray())
	require.Len(t, vd.ArrayInit.Items, 3)

	fd := prog.Decls[1].(*ast.FuncDecl)
	forStmt, ok := fd.Body.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	require.Equal(t, "i", forStmt.Name)
	assign, ok := forStmt.Body.Stmts[0].(*ast.AssignArrayStmt)
	require.True(t, ok)
	require.Equal(t, "a", assign.Name)
}

func TestParseImport(t *testing.T) {
	prog := parseOK(t, "import \"lib/util.nano\"\nfunction main()\nreturn 0\nend\n")
	imp, ok := prog.Decls[0].(*ast.ImportDecl)
	require.True(t, ok)
	require.Equal(t, "lib/util.nano", imp.Path)
}

func TestParseLiteralStatementErrors(t *testing.T) {
	fset := token.NewFileSet()
	_, err := parser.ParseSource(fset, "bad.nano", []byte("function main()\n1 2 3\nend\n"))
	require.Error(t, err)
}

func TestParseBadArrayInitValue(t *testing.T) {
	fset := token.NewFileSet()
	_, err := parser.ParseSource(fset, "bad.nano", []byte("var a[2] = x, 1\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad_array_init_value")
}
