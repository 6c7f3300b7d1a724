package precodegen_test

import (
	"testing"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/parser"
	"github.com/mna/nano/lang/precodegen"
	"github.com/mna/nano/lang/resolver"
	"github.com/mna/nano/lang/token"
	"github.com/stretchr/testify/require"
)

func resolved(t *testing.T, src string) []*ast.Program {
	t.Helper()
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "test.nano", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve(fset, []*ast.Program{prog}, nil))
	return []*ast.Program{prog}
}

func TestRunAssignsGlobalOffsets(t *testing.T) {
	progs := resolved(t, "var a = 1\nvar b = 2\nconst c = 3\nvar d[4]\nfunction main()\nreturn a\nend\n")
	res := precodegen.Run(progs)

	byName := map[string]*ast.VarDecl{}
	for _, g := range res.Globals {
		byName[g.Name] = g
	}
	require.EqualValues(t, 0, byName["a"].Offset)
	require.EqualValues(t, 1, byName["b"].Offset)
	require.EqualValues(t, 2, byName["d"].Offset)
}

func TestRunAssignsArgAndLocalOffsets(t *testing.T) {
	progs := resolved(t, "function f(x, y)\nvar z = 1\nreturn x + y + z\nend\nfunction main()\nreturn f(1,2)\nend\n")
	res := precodegen.Run(progs)

	var f *ast.FuncDecl
	for _, fn := range res.Functions {
		if fn.Name == "f" {
			f = fn
		}
	}
	require.NotNil(t, f)
	require.EqualValues(t, -2, f.Args[0].Offset)
	require.EqualValues(t, -1, f.Args[1].Offset)

	local := f.Body.Stmts[0].(*ast.VarDeclStmt).Decl
	require.EqualValues(t, 0, local.Offset)
	require.EqualValues(t, 1, f.StackSize)
}

func TestRunSiblingBranchesReuseOffsets(t *testing.T) {
	progs := resolved(t, "function main()\nif (1)\nvar x = 1\nreturn x\nelse\nvar y = 2\nreturn y\nend\nend\n")
	res := precodegen.Run(progs)

	var main *ast.FuncDecl
	for _, fn := range res.Functions {
		if fn.Name == "main" {
			main = fn
		}
	}
	ifStmt := main.Body.Stmts[0].(*ast.IfStmt)
	x := ifStmt.Then.Stmts[0].(*ast.VarDeclStmt).Decl
	y := ifStmt.Else.Stmts[0].(*ast.VarDeclStmt).Decl
	require.EqualValues(t, 0, x.Offset)
	require.EqualValues(t, 0, y.Offset)
	require.EqualValues(t, 1, main.StackSize)
}

func TestRunSynthesizesInit(t *testing.T) {
	progs := resolved(t, "var a = 1\nvar arr[3] = 1,2,3\nfunction main()\nreturn a\nend\n")
	res := precodegen.Run(progs)

	require.Equal(t, precodegen.InitFuncName, res.Init.Name)
	require.Len(t, res.Init.Body.Stmts, 4) // 1 scalar assign + 3 array item assigns

	_, ok := res.Init.Body.Stmts[0].(*ast.AssignVarStmt)
	require.True(t, ok)
	for _, s := range res.Init.Body.Stmts[1:] {
		_, ok := s.(*ast.AssignArrayStmt)
		require.True(t, ok)
	}

	found := false
	for _, fn := range res.Functions {
		if fn == res.Init {
			found = true
		}
	}
	require.True(t, found)
}
