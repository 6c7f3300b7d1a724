// Package machine implements the Nano VM: the tagged runtime Value
// representation, the two-arena copying collector (spec.md 4.9), and the
// cooperative, resumable Thread dispatch loop (spec.md 4.10) that executes
// a compiler.Program. Its shape — a big opcode switch operating on an
// explicit operand stack plus a frame stack — is grounded on the teacher's
// lang/machine package (machine.go's run loop, thread.go's Thread), but the
// value representation and collector depart from it entirely: the teacher
// represents values as a Go interface (machine.Value) collected by the Go
// runtime's own GC, where Nano's spec calls for a single tagged-word Value
// plus a hand-rolled copying collector with an explicit forwarding table
// (spec.md 4.9 — the teacher has no analogue for this, since Starlark
// leans on Go's GC throughout).
package machine

import (
	"fmt"
	"math"
)

// Kind is Value's type tag (spec.md 3's Data Model: "a tagged word with
// types {none, int, float, string, array, func, syscall}").
type Kind uint8

const (
	None Kind = iota
	Int
	Float
	String
	Array
	Func
	Syscall
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Array:
		return "array"
	case Func:
		return "func"
	case Syscall:
		return "syscall"
	default:
		return "unknown"
	}
}

// Value is every value the VM can hold on a stack, in a frame slot, or in
// the globals table. Scalars (none, int, float, func, syscall) are held
// entirely inline in num; string and array are heap objects allocated by a
// GC and referenced through cell, the only field a collection needs to
// trace or forward (spec.md 4.9: "Scalars ... have no further references;
// arrays recurse over their elements" — strings are immutable byte runs
// with no inner references either, so only Array cells are ever traced).
type Value struct {
	kind Kind
	num  int32 // int/float (as float32 bits)/func code_offset/syscall table index
	cell *cell
}

// cellKind distinguishes the two heap object shapes a collected cell may
// hold.
type cellKind uint8

const (
	cellString cellKind = iota
	cellArray
)

// cell is a GC-managed heap object. It is reached through one or more
// live Values of kind String or Array; the collector relocates cells
// between arenas and rewrites every Value.cell that pointed at the old
// location (spec.md 4.9's forwarding table).
type cell struct {
	kind  cellKind
	str   string
	elems []Value
}

// NewNone returns the none value. None has no heap representation: spec.md
// 3 describes it as "represented by the absence of a value (nil-pointer
// equivalent)", which Value already models naturally since its zero value
// has kind None.
func NewNone() Value { return Value{kind: None} }

func NewInt(n int32) Value { return Value{kind: Int, num: n} }

// NewFloat32Bits builds a Float value from its raw IEEE-754 bit pattern, the
// representation codegen already emits for NEW_FLT operands.
func NewFloat32Bits(bits int32) Value { return Value{kind: Float, num: bits} }

// NewFloat builds a Float value from a float32.
func NewFloat(f float32) Value { return Value{kind: Float, num: int32(math.Float32bits(f))} }

// NewFunc returns a function value bound to a code offset (NEW_FUNC's
// operand). Codegen never emits NEW_FUNC, so compiled Nano source never
// produces one (see compiler.genCall's doc comment); it is implemented
// since spec.md 4.7 is normative about it.
func NewFunc(codeOffset int32) Value { return Value{kind: Func, num: codeOffset} }

// NewSyscall returns a syscall value bound to a syscall-table index
// (NEW_SCALL's operand).
func NewSyscall(idx int32) Value { return Value{kind: Syscall, num: idx} }

func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether v is the none value.
func (v Value) IsNone() bool { return v.kind == None }

// Int32 returns v's integer payload; callers must check Kind() == Int
// first.
func (v Value) Int32() int32 { return v.num }

// Float32 decodes v's float payload; callers must check Kind() == Float
// first.
func (v Value) Float32() float32 { return math.Float32frombits(uint32(v.num)) }

// CodeOffset returns v's bound code offset; callers must check Kind() ==
// Func first.
func (v Value) CodeOffset() int32 { return v.num }

// SyscallIndex returns v's syscall-table index; callers must check Kind()
// == Syscall first.
func (v Value) SyscallIndex() int32 { return v.num }

// Str returns v's string payload; callers must check Kind() == String
// first.
func (v Value) Str() string { return v.cell.str }

// Len returns the number of elements in an Array value, or the byte length
// of a String value; callers must check Kind() first.
func (v Value) Len() int {
	switch v.kind {
	case String:
		return len(v.cell.str)
	case Array:
		return len(v.cell.elems)
	default:
		return 0
	}
}

// Index returns element i of an Array value; callers must check Kind() ==
// Array and bounds first.
func (v Value) Index(i int) Value { return v.cell.elems[i] }

// SetIndex assigns element i of an Array value; callers must check Kind()
// == Array and bounds first.
func (v Value) SetIndex(i int, elem Value) { v.cell.elems[i] = elem }

func (v Value) String() string {
	switch v.kind {
	case None:
		return "none"
	case Int:
		return fmt.Sprintf("%d", v.num)
	case Float:
		return fmt.Sprintf("%g", v.Float32())
	case String:
		return v.cell.str
	case Array:
		return fmt.Sprintf("array(%d)", len(v.cell.elems))
	case Func:
		return fmt.Sprintf("function@%d", v.num)
	case Syscall:
		return fmt.Sprintf("syscall#%d", v.num)
	default:
		return "<invalid>"
	}
}
