// Package builtins registers Nano's standard built-in functions as ordinary
// VM syscalls (spec.md §6 Built-ins). Grounded on
// original_source/source/lib_builtins/builtin.cpp's builtins_register /
// builtins_resolve pair: the original host registers each built-in by name
// against the program's syscall table and resolves it to a C callback at
// link time. Register does both steps at once through machine.VM.Resolve,
// which already rejects a name the program never referenced.
package builtins

import (
	"fmt"
	"io"
	"math"

	"github.com/mna/nano/internal/diag"
	"github.com/mna/nano/lang/machine"
)

// arities lists every built-in name this package provides, along with its
// fixed argument count, so the resolver can validate call arity before the
// VM (and its syscall table) exist (spec.md 4.8: syscalls are declared by
// name+argc at resolve time, the same way ordinary functions are). None of
// Nano's built-ins are varargs.
var arities = map[string]int{
	"abs": 1, "min": 2, "max": 2, "len": 1, "bitand": 2,
	"sin": 1, "cos": 1, "tan": 1, "sqrt": 1,
	"round": 1, "ceil": 1, "floor": 1, "chr": 1, "print": 1,
}

// Lookup implements resolver.SyscallLookup for this package's built-ins,
// letting `internal/maincmd` pass builtins.Lookup directly to
// resolver.Resolve.
func Lookup(name string) (argc int, isVarargs bool, ok bool) {
	argc, ok = arities[name]
	return argc, false, ok
}

// Register binds every built-in this package knows about that the program
// actually references, via vm.Resolve. A built-in whose name does not
// appear in the program's syscall table (Resolve's "not found" case) is
// silently skipped rather than treated as an error: most programs only use
// a handful of these, and spec.md §6 does not require every built-in to be
// present in every program.
func Register(vm *machine.VM) {
	funcs := map[string]machine.SyscallFunc{
		"abs":    abs,
		"min":    min_,
		"max":    max_,
		"len":    length,
		"bitand": bitand,
		"sin":    unaryFloat(func(x float32) float32 { return float32(math.Sin(float64(x))) }),
		"cos":    unaryFloat(func(x float32) float32 { return float32(math.Cos(float64(x))) }),
		"tan":    unaryFloat(func(x float32) float32 { return float32(math.Tan(float64(x))) }),
		"sqrt":   unaryFloat(func(x float32) float32 { return float32(math.Sqrt(float64(x))) }),
		"round":  unaryFloat(func(x float32) float32 { return float32(math.Round(float64(x))) }),
		"ceil":   unaryFloat(func(x float32) float32 { return float32(math.Ceil(float64(x))) }),
		"floor":  unaryFloat(func(x float32) float32 { return float32(math.Floor(float64(x))) }),
		"chr":    chr,
		"print":  print_,
	}
	for name, fn := range funcs {
		if err := vm.Resolve(name, fn); err != nil {
			continue
		}
	}
}

func checkArgc(th *machine.Thread, argc, want int) bool {
	if argc != want {
		th.Fail(diag.BadArgument, "expected %d argument(s), got %d", want, argc)
		return false
	}
	return true
}

func asFloat(v machine.Value) (float32, bool) {
	switch v.Kind() {
	case machine.Int:
		return float32(v.Int32()), true
	case machine.Float:
		return v.Float32(), true
	default:
		return 0, false
	}
}

// abs implements original_source's builtin_abs: |v|, accepting int or
// float and preserving the operand's kind.
func abs(th *machine.Thread, argc int) error {
	if !checkArgc(th, argc, 1) {
		return nil
	}
	v := th.Pop()
	switch v.Kind() {
	case machine.Int:
		n := v.Int32()
		if n < 0 {
			n = -n
		}
		th.Push(machine.NewInt(n))
	case machine.Float:
		f := v.Float32()
		if f < 0 {
			f = -f
		}
		th.Push(machine.NewFloat(f))
	default:
		th.Fail(diag.BadArgument, "abs: argument must be int or float, got %s", v.Kind())
	}
	return nil
}

// min_/max_ implement original_source's builtin_min/builtin_max: both-int
// stays int, either-float promotes to float comparison.
func min_(th *machine.Thread, argc int) error { return minMax(th, argc, false) }
func max_(th *machine.Thread, argc int) error { return minMax(th, argc, true) }

func minMax(th *machine.Thread, argc int, wantMax bool) error {
	if !checkArgc(th, argc, 2) {
		return nil
	}
	b := th.Pop()
	a := th.Pop()
	if a.Kind() == machine.Int && b.Kind() == machine.Int {
		ai, bi := a.Int32(), b.Int32()
		if (wantMax && ai > bi) || (!wantMax && ai < bi) {
			th.Push(machine.NewInt(ai))
		} else {
			th.Push(machine.NewInt(bi))
		}
		return nil
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		th.Fail(diag.BadArgument, "min/max: arguments must be int or float")
		return nil
	}
	if (wantMax && af > bf) || (!wantMax && af < bf) {
		th.Push(machine.NewFloat(af))
	} else {
		th.Push(machine.NewFloat(bf))
	}
	return nil
}

// length implements original_source's builtin_len: array size or string
// byte length.
func length(th *machine.Thread, argc int) error {
	if !checkArgc(th, argc, 1) {
		return nil
	}
	v := th.Pop()
	switch v.Kind() {
	case machine.Array, machine.String:
		th.Push(machine.NewInt(int32(v.Len())))
	default:
		th.Fail(diag.BadArgument, "len: argument must be array or string, got %s", v.Kind())
	}
	return nil
}

// bitand implements original_source's builtin_bitand: int-only bitwise and.
func bitand(th *machine.Thread, argc int) error {
	if !checkArgc(th, argc, 2) {
		return nil
	}
	b := th.Pop()
	a := th.Pop()
	if a.Kind() != machine.Int || b.Kind() != machine.Int {
		th.Fail(diag.BadArgument, "bitand: arguments must be int")
		return nil
	}
	th.Push(machine.NewInt(a.Int32() & b.Int32()))
	return nil
}

// chr implements original_source's builtin_chr: the one-character string
// whose byte value is v.
func chr(th *machine.Thread, argc int) error {
	if !checkArgc(th, argc, 1) {
		return nil
	}
	v := th.Pop()
	if v.Kind() != machine.Int {
		th.Fail(diag.BadArgument, "chr: argument must be int, got %s", v.Kind())
		return nil
	}
	th.CollectIfNeeded()
	th.Push(th.GC().NewString(string([]byte{byte(v.Int32())})))
	return nil
}

// unaryFloat wraps a float32->float32 math function as a syscall accepting
// int or float and always returning float, matching original_source's
// builtin_sin/cos/tan/round/ceil/floor/sqrt, which all route through
// value_t::as_float() the same way.
func unaryFloat(fn func(float32) float32) machine.SyscallFunc {
	return func(th *machine.Thread, argc int) error {
		if !checkArgc(th, argc, 1) {
			return nil
		}
		v := th.Pop()
		f, ok := asFloat(v)
		if !ok {
			th.Fail(diag.BadArgument, "argument must be int or float, got %s", v.Kind())
			return nil
		}
		th.Push(machine.NewFloat(fn(f)))
		return nil
	}
}

// print_ is the console I/O half of original_source's driver, kept as a
// built-in rather than an opcode (SPEC_FULL.md §C): prints v's textual
// form to the thread's UserData io.Writer (see internal/maincmd's
// `run` command for how that writer is supplied) followed by a newline,
// then pushes none as its result.
func print_(th *machine.Thread, argc int) error {
	if !checkArgc(th, argc, 1) {
		return nil
	}
	v := th.Pop()
	if w, ok := th.UserData.(io.Writer); ok {
		fmt.Fprintln(w, v.String())
	}
	th.Push(machine.NewNone())
	return nil
}
