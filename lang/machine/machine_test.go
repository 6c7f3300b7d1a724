package machine_test

import (
	"testing"

	"github.com/mna/nano/internal/diag"
	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/compiler"
	"github.com/mna/nano/lang/machine"
	"github.com/mna/nano/lang/optimizer"
	"github.com/mna/nano/lang/parser"
	"github.com/mna/nano/lang/precodegen"
	"github.com/mna/nano/lang/resolver"
	"github.com/mna/nano/lang/token"
	"github.com/stretchr/testify/require"
)

// buildProgram runs parse, resolve, (optionally) optimize, pre-codegen and
// codegen over src, mirroring spec.md 2's compile-time data flow, and
// returns the resulting bytecode Program ready to execute.
func buildProgram(t *testing.T, src string, optimize bool) *compiler.Program {
	t.Helper()
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "test.nano", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve(fset, []*ast.Program{prog}, nil))
	if optimize {
		require.NoError(t, optimizer.Optimize(fset, []*ast.Program{prog}))
	}
	pre := precodegen.Run([]*ast.Program{prog})
	return compiler.Generate(fset, []*ast.Program{prog}, pre)
}

// runMain runs @init to completion and then calls main with args, returning
// main's result or the thread's sticky error.
func runMain(t *testing.T, p *compiler.Program, args ...machine.Value) (machine.Value, error) {
	t.Helper()
	vm := machine.NewVM(p, 0)
	require.NoError(t, vm.CallInit())
	return vm.Call("main", args)
}

// Canonical scenario 1 (spec.md 8): a function that returns an int literal.
func TestReturnIntLiteral(t *testing.T) {
	p := buildProgram(t, "function main()\nreturn 123\nend\n", false)
	v, err := runMain(t, p)
	require.NoError(t, err)
	require.Equal(t, machine.Int, v.Kind())
	require.EqualValues(t, 123, v.Int32())
}

// Canonical scenario 2: arguments pass through to the callee positionally.
func TestArgPassthrough(t *testing.T) {
	src := "function main()\nreturn called(2,3,4)\nend\n" +
		"function called(x,y,z)\nreturn y + x*z\nend\n"
	p := buildProgram(t, src, false)
	v, err := runMain(t, p)
	require.NoError(t, err)
	require.EqualValues(t, 11, v.Int32())
}

// Canonical scenario 3: unary minus binds tighter than the binary minus
// that follows it, i.e. `-3 - -5` parses as (-3) - (-5) = 2.
func TestUnaryMinusPrecedence(t *testing.T) {
	p := buildProgram(t, "function main()\nreturn -3 - -5\nend\n", false)
	v, err := runMain(t, p)
	require.NoError(t, err)
	require.EqualValues(t, 2, v.Int32())
}

// Canonical scenario 4: compound assignment reads then writes the same
// local slot.
func TestCompoundAssignment(t *testing.T) {
	p := buildProgram(t, "function main()\nvar x = 1\nx += 2\nreturn x\nend\n", false)
	v, err := runMain(t, p)
	require.NoError(t, err)
	require.EqualValues(t, 3, v.Int32())
}

// Canonical scenario 5: a local array is indexed inside a for loop and the
// elements are summed.
func TestArrayForLoopSum(t *testing.T) {
	src := "function main()\n" +
		"var a[4] = 1,3,4,6\n" +
		"var sum = 0\n" +
		"for (i = 0 to 4)\n" +
		"sum += a[i]\n" +
		"end\n" +
		"return sum\n" +
		"end\n"
	p := buildProgram(t, src, false)
	v, err := runMain(t, p)
	require.NoError(t, err)
	require.EqualValues(t, 14, v.Int32())
}

// Canonical scenario 6: a global array, initialized by @init, is summed by
// main.
func TestGlobalInitArraySum(t *testing.T) {
	src := "var a[3] = 1,2,3\n" +
		"function main()\n" +
		"return a[0] + a[1] + a[2]\n" +
		"end\n"
	p := buildProgram(t, src, false)
	v, err := runMain(t, p)
	require.NoError(t, err)
	require.EqualValues(t, 6, v.Int32())
}

// spec.md 8's negative scenario: a literal division by zero reached at
// run time (optimization disabled, so the optimizer never had a chance to
// catch it as constant_divide_by_zero at compile time) sets the thread's
// sticky bad_divide_by_zero error rather than panicking.
func TestRuntimeDivideByZero(t *testing.T) {
	p := buildProgram(t, "function main()\nreturn 1/0\nend\n", false)
	_, err := runMain(t, p)
	require.Error(t, err)
	rerr, ok := err.(*diag.RuntimeError)
	require.True(t, ok)
	require.Equal(t, diag.BadDivideByZero, rerr.Kind)
}

// The same program, compiled with optimization enabled, never reaches the
// VM at all: the optimizer folds the literal division and reports
// constant_divide_by_zero as a compile error.
func TestConstantDivideByZeroCaughtByOptimizer(t *testing.T) {
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "test.nano", []byte("function main()\nreturn 1/0\nend\n"))
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve(fset, []*ast.Program{prog}, nil))
	err = optimizer.Optimize(fset, []*ast.Program{prog})
	require.Error(t, err)
	require.Contains(t, err.Error(), "constant_divide_by_zero")
}

// Out-of-bounds array access is a runtime failure (bad_array_bounds), not
// a panic.
func TestArrayOutOfBounds(t *testing.T) {
	p := buildProgram(t, "function main()\nvar a[2] = 1,2\nreturn a[5]\nend\n", false)
	_, err := runMain(t, p)
	require.Error(t, err)
	rerr, ok := err.(*diag.RuntimeError)
	require.True(t, ok)
	require.Equal(t, diag.BadArrayBounds, rerr.Kind)
}

// Resume(n) stops after exactly n instructions without erroring, letting
// the host interleave its own work between VM steps (spec.md 4.10).
func TestResumeStopsAtInstructionBudget(t *testing.T) {
	p := buildProgram(t, "function main()\nreturn 1+2+3+4+5\nend\n", false)
	vm := machine.NewVM(p, 0)
	require.NoError(t, vm.CallInit())

	th, err := vm.NewCall("main", nil)
	require.NoError(t, err)
	// Drive the thread manually instead of through vm.Call, so the test can
	// observe a paused-but-not-finished state.
	th.Resume(1)
	require.False(t, th.Finished())
	require.Nil(t, th.Err())
}

// Breakpoints take precedence over an in-progress Resume budget: execution
// stops at the first instruction of a newly-entered breakpointed line
// even though the requested budget has not been exhausted.
func TestBreakpointStopsResume(t *testing.T) {
	src := "function main()\n" +
		"var x = 1\n" +
		"var y = 2\n" +
		"return x + y\n" +
		"end\n"
	p := buildProgram(t, src, false)
	vm := machine.NewVM(p, 0)
	require.NoError(t, vm.CallInit())

	th, err := vm.NewCall("main", nil)
	require.NoError(t, err)
	th.SetBreakpoint("test.nano", 3)
	th.Resume(1000)
	require.False(t, th.Finished())
	require.Nil(t, th.Err())
	file, line, ok := th.CurrentLine()
	require.True(t, ok)
	require.Equal(t, "test.nano", file)
	require.Equal(t, 3, line)

	// Resuming again makes forward progress since the line has now been
	// seen once.
	th.Resume(1000)
	require.True(t, th.Finished())
}
