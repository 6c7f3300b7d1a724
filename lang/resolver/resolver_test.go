package resolver_test

import (
	"testing"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/parser"
	"github.com/mna/nano/lang/resolver"
	"github.com/mna/nano/lang/token"
	"github.com/stretchr/testify/require"
)

func parseAndResolve(t *testing.T, src string, isSyscall resolver.SyscallLookup) (*ast.Program, error) {
	t.Helper()
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "test.nano", []byte(src))
	require.NoError(t, err)
	return prog, resolver.Resolve(fset, []*ast.Program{prog}, isSyscall)
}

func TestResolveArgumentPassthrough(t *testing.T) {
	prog, err := parseAndResolve(t, "function called(x,y,z)\nreturn y + x*z\nend\nfunction main()\nreturn called(2,3,4)\nend\n", nil)
	require.NoError(t, err)

	called := prog.Decls[0].(*ast.FuncDecl)
	ret := called.Body.Stmts[0].(*ast.ReturnStmt)
	bin := ret.Expr.(*ast.BinOpExpr)
	ident := bin.Left.(*ast.IdentExpr)
	require.NotNil(t, ident.Decl)
	require.Equal(t, "y", ident.Decl.Name)

	main := prog.Decls[1].(*ast.FuncDecl)
	callRet := main.Body.Stmts[0].(*ast.ReturnStmt)
	call := callRet.Expr.(*ast.CallExpr)
	require.Same(t, called, call.Decl)
}

func TestResolveUnknownIdentifier(t *testing.T) {
	_, err := parseAndResolve(t, "function main()\nreturn x\nend\n", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown_identifier")
}

func TestResolveConstPropagation(t *testing.T) {
	prog, err := parseAndResolve(t, "const limit = 2 + 3\nfunction main()\nreturn limit\nend\n", nil)
	require.NoError(t, err)
	fn := prog.Decls[1].(*ast.FuncDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	lit, ok := ret.Expr.(*ast.LitIntExpr)
	require.True(t, ok)
	require.EqualValues(t, 5, lit.Value)
}

func TestResolveCantAssignConst(t *testing.T) {
	_, err := parseAndResolve(t, "const x = 1\nfunction main()\nx = 2\nreturn x\nend\n", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cant_assign_const")
}

func TestResolveArraySizeTooSmall(t *testing.T) {
	_, err := parseAndResolve(t, "var a[1]\nfunction main()\nreturn a[0]\nend\n", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "array_size_must_be_greater_than")
}

func TestResolveArityMismatch(t *testing.T) {
	_, err := parseAndResolve(t, "function f(x,y)\nreturn x+y\nend\nfunction main()\nreturn f(1)\nend\n", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not_enought_args")
}

func TestResolveSyscallCall(t *testing.T) {
	isSyscall := func(name string) (int, bool, bool) {
		if name == "abs" {
			return 1, false, true
		}
		return 0, false, false
	}
	prog, err := parseAndResolve(t, "function main()\nreturn abs(-1)\nend\n", isSyscall)
	require.NoError(t, err)
	fn := prog.Decls[0].(*ast.FuncDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	call := ret.Expr.(*ast.CallExpr)
	require.NotNil(t, call.Decl)
	require.True(t, call.Decl.IsSyscall)
}
