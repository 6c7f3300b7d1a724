package optimizer_test

import (
	"testing"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/optimizer"
	"github.com/mna/nano/lang/parser"
	"github.com/mna/nano/lang/resolver"
	"github.com/mna/nano/lang/token"
	"github.com/stretchr/testify/require"
)

func optimizedFunc(t *testing.T, src string) *ast.FuncDecl {
	t.Helper()
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "test.nano", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve(fset, []*ast.Program{prog}, nil))
	require.NoError(t, optimizer.Optimize(fset, []*ast.Program{prog}))
	for _, d := range prog.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Name == "main" {
			return fn
		}
	}
	t.Fatal("no main function found")
	return nil
}

func TestOptimizeDropsStatementsAfterReturn(t *testing.T) {
	fn := optimizedFunc(t, "function main()\nreturn 1\nreturn 2\nend\n")
	require.Len(t, fn.Body.Stmts, 1)
	_, ok := fn.Body.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
}

func TestOptimizeFoldsConstantArithmetic(t *testing.T) {
	fn := optimizedFunc(t, "function main()\nreturn 2 + 3 * 4\nend\n")
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	lit, ok := ret.Expr.(*ast.LitIntExpr)
	require.True(t, ok)
	require.EqualValues(t, 14, lit.Value)
}

func TestOptimizePrunesFalseIfToElse(t *testing.T) {
	fn := optimizedFunc(t, "function main()\nif (1 - 1)\nreturn 1\nelse\nreturn 2\nend\nend\n")
	ifStmt := fn.Body.Stmts[0].(*ast.IfStmt)
	require.Nil(t, ifStmt.Else)
	require.Len(t, ifStmt.Then.Stmts, 1)
	ret := ifStmt.Then.Stmts[0].(*ast.ReturnStmt)
	lit := ret.Expr.(*ast.LitIntExpr)
	require.EqualValues(t, 2, lit.Value)
}

func TestOptimizePrunesTrueIfToThen(t *testing.T) {
	fn := optimizedFunc(t, "function main()\nif (1)\nreturn 1\nelse\nreturn 2\nend\nend\n")
	ifStmt := fn.Body.Stmts[0].(*ast.IfStmt)
	require.Nil(t, ifStmt.Else)
	ret := ifStmt.Then.Stmts[0].(*ast.ReturnStmt)
	lit := ret.Expr.(*ast.LitIntExpr)
	require.EqualValues(t, 1, lit.Value)
}

func TestOptimizeReportsConstantDivideByZero(t *testing.T) {
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "test.nano", []byte("function main()\nreturn 1/0\nend\n"))
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve(fset, []*ast.Program{prog}, nil))
	err = optimizer.Optimize(fset, []*ast.Program{prog})
	require.Error(t, err)
	require.Contains(t, err.Error(), "constant_divide_by_zero")
}

func TestOptimizeNeverFoldsAcrossCalls(t *testing.T) {
	fn := optimizedFunc(t, "function side()\nreturn 1\nend\nfunction main()\nreturn side() + 1\nend\n")
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	bin := ret.Expr.(*ast.BinOpExpr)
	_, ok := bin.Left.(*ast.CallExpr)
	require.True(t, ok)
}
