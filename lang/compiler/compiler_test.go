package compiler_test

import (
	"bytes"
	"testing"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/compiler"
	"github.com/mna/nano/lang/parser"
	"github.com/mna/nano/lang/precodegen"
	"github.com/mna/nano/lang/resolver"
	"github.com/mna/nano/lang/token"
	"github.com/stretchr/testify/require"
)

// buildProgram runs the whole front end (parse, resolve, pre-codegen,
// codegen) over src and returns the resulting Program, mirroring spec.md
// 2's compile-time data flow.
func buildProgram(t *testing.T, src string) *compiler.Program {
	t.Helper()
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "test.nano", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve(fset, []*ast.Program{prog}, nil))
	pre := precodegen.Run([]*ast.Program{prog})
	return compiler.Generate(fset, []*ast.Program{prog}, pre)
}

func findFunc(p *compiler.Program, name string) *compiler.Func {
	for i := range p.Functions {
		if p.Functions[i].Name == name {
			return &p.Functions[i]
		}
	}
	return nil
}

func TestGenerateReturnLiteral(t *testing.T) {
	p := buildProgram(t, "function main()\nreturn 123\nend\n")
	main := findFunc(p, "main")
	require.NotNil(t, main)
	require.Less(t, main.CodeStart, main.CodeEnd)
	require.Equal(t, byte(compiler.NEW_INT), p.Code[main.CodeStart])
}

func TestGenerateCallFixupResolvesForwardReference(t *testing.T) {
	// main calls called, declared after it: CodeStart for called is only
	// known once both functions are emitted, exercising the call-fixup path.
	p := buildProgram(t, "function main()\nreturn called(2,3,4)\nend\nfunction called(x,y,z)\nreturn y + x*z\nend\n")
	main := findFunc(p, "main")
	called := findFunc(p, "called")
	require.NotNil(t, main)
	require.NotNil(t, called)

	// Find the CALL instruction in main's code and check its target operand
	// equals called.CodeStart.
	found := false
	for pc := main.CodeStart; pc < main.CodeEnd; {
		op := compiler.Opcode(p.Code[pc])
		pc++
		n := opOperandCountForTest(op)
		if op == compiler.CALL {
			argc := readOperandForTest(p.Code[pc:])
			target := readOperandForTest(p.Code[pc+4:])
			require.EqualValues(t, 3, argc)
			require.EqualValues(t, called.CodeStart, target)
			found = true
		}
		pc += n * 4
	}
	require.True(t, found, "expected a CALL instruction in main")
}

func TestGenerateInitAllocatesGlobalArray(t *testing.T) {
	p := buildProgram(t, "var a[3] = 1,2,3\nfunction main()\nreturn a[0]\nend\n")
	init := findFunc(p, precodegen.InitFuncName)
	require.NotNil(t, init)
	require.Equal(t, byte(compiler.GLOBALS), p.Code[init.CodeStart])
	// Somewhere in @init's body a NEW_ARY 3 must appear.
	hasNewAry := false
	for pc := init.CodeStart; pc < init.CodeEnd; {
		op := compiler.Opcode(p.Code[pc])
		pc++
		if op == compiler.NEW_ARY {
			require.EqualValues(t, 3, readOperandForTest(p.Code[pc:]))
			hasNewAry = true
		}
		pc += opOperandCountForTest(op) * 4
	}
	require.True(t, hasNewAry)
}

func TestGenerateSyscallGetsTableIndex(t *testing.T) {
	isSyscall := func(name string) (int, bool, bool) {
		if name == "abs" {
			return 1, false, true
		}
		return 0, false, false
	}
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "test.nano", []byte("function main()\nreturn abs(-1)\nend\n"))
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve(fset, []*ast.Program{prog}, isSyscall))
	pre := precodegen.Run([]*ast.Program{prog})
	p := compiler.Generate(fset, []*ast.Program{prog}, pre)

	require.Equal(t, []string{"abs"}, p.SyscallNames)
	main := findFunc(p, "main")
	found := false
	for pc := main.CodeStart; pc < main.CodeEnd; {
		op := compiler.Opcode(p.Code[pc])
		pc++
		n := opOperandCountForTest(op)
		if op == compiler.SCALL {
			argc := readOperandForTest(p.Code[pc:])
			idx := readOperandForTest(p.Code[pc+4:])
			require.EqualValues(t, 1, argc)
			require.EqualValues(t, 0, idx)
			found = true
		}
		pc += n * 4
	}
	require.True(t, found)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := buildProgram(t, "var a = 1\nfunction main()\nvar x = 1\nx += 2\nreturn x\nend\n")

	var buf bytes.Buffer
	require.NoError(t, p.Save(&buf))

	got, err := compiler.Load(&buf)
	require.NoError(t, err)
	require.Equal(t, p.Code, got.Code)
	require.Equal(t, p.Functions, got.Functions)
	require.Equal(t, p.Globals, got.Globals)
	require.Equal(t, p.SyscallNames, got.SyscallNames)
	require.Equal(t, p.Strings, got.Strings)
	require.Equal(t, p.Lines, got.Lines)
}

func TestAsmDasmRoundTrip(t *testing.T) {
	p := buildProgram(t, "function main()\nreturn 1 + 2\nend\n")
	text := compiler.Dasm(p)
	got, err := compiler.Asm(text)
	require.NoError(t, err)
	require.Equal(t, p.Code, got.Code)

	main := findFunc(got, "main")
	require.NotNil(t, main)
}

// opOperandCountForTest/readOperandForTest duplicate the package-private
// numOperands/getOperand logic for black-box tests that need to walk raw
// bytecode; they are small enough not to warrant exporting the internals
// just for tests.
func opOperandCountForTest(op compiler.Opcode) int {
	switch op {
	case compiler.CALL, compiler.SCALL:
		return 2
	case compiler.NEW_NONE, compiler.GETA, compiler.SETA,
		compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD,
		compiler.AND, compiler.OR, compiler.EQ, compiler.LT, compiler.GT,
		compiler.LEQ, compiler.GEQ, compiler.NOT, compiler.NEG:
		return 0
	default:
		return 1
	}
}

func readOperandForTest(b []byte) int32 {
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}
