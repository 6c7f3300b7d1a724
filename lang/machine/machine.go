package machine

import (
	"encoding/binary"

	"github.com/mna/nano/internal/diag"
	"github.com/mna/nano/lang/compiler"
)

// decodeOperand reads one 32-bit little-endian operand starting at pos
// (mirrors compiler/encoding.go's unexported getOperand, reimplemented
// here since the compiler package does not export its encoding helpers —
// machine is the only other package that needs to decode, as opposed to
// produce, this byte layout).
func decodeOperand(code []byte, pos int) int32 {
	return int32(binary.LittleEndian.Uint32(code[pos:]))
}

// operandCount reports how many 32-bit operands op's encoding carries,
// mirroring compiler.numOperands. It is reimplemented locally rather than
// exported from compiler because the grouping markers (opcodeOneOperandMin,
// opcodeTwoOperandMin) that function relies on are deliberately unexported
// package internals of the assembler/codegen; this switch is the stable,
// public-facing contract a decoder outside that package should depend on.
func operandCount(op compiler.Opcode) int {
	switch op {
	case compiler.NEW_INT, compiler.NEW_FLT, compiler.NEW_STR, compiler.NEW_ARY,
		compiler.NEW_FUNC, compiler.NEW_SCALL,
		compiler.GETV, compiler.SETV, compiler.GETG, compiler.SETG,
		compiler.JMP, compiler.TJMP, compiler.FJMP,
		compiler.ICALL, compiler.RET,
		compiler.LOCALS, compiler.GLOBALS, compiler.POP:
		return 1
	case compiler.CALL, compiler.SCALL:
		return 2
	default:
		return 0
	}
}

// step executes exactly one bytecode instruction, the sole unit of
// progress a Thread ever makes (spec.md 4.10, 5: "the only suspension
// point is an instruction boundary"). Every opcode in compiler's normative
// set (spec.md 4.7) is handled; an opcode byte this switch doesn't
// recognize is a corrupt program, reported as bad_opcode rather than
// panicking, exactly as spec.md 7 requires of every runtime failure mode.
//
// The overall shape — decode, dispatch on a big switch, advance pc by
// default and let control-flow opcodes override it — is grounded on the
// teacher's machine.go run() loop. What departs from it is everything
// run() assumed it could do in one uninterruptible pass over a single
// call: run() owned one per-call locals+operand-stack slice (nspace) and
// looped until that one call returned. Nano's step operates against one
// continuous stack shared by every active frame (spec.md 4.6's offset
// convention requires it) and returns control to the caller after a
// single instruction, so Resume/StepInst/StepLine can interleave host
// code between any two instructions.
func (th *Thread) step() {
	if th.MaxCycles > 0 && th.cycles >= th.MaxCycles {
		th.fail(diag.MaxCycleCount, "thread exceeded %d cycles", th.MaxCycles)
		return
	}

	code := th.vm.Program.Code
	if th.pc < 0 || th.pc >= len(code) {
		th.fail(diag.BadOpcode, "pc %d is out of code bounds", th.pc)
		return
	}
	startPC := th.pc
	op := compiler.Opcode(code[th.pc])
	n := operandCount(op)
	pos := th.pc + 1
	var op1, op2 int32
	if n >= 1 {
		if pos+4 > len(code) {
			th.fail(diag.BadOpcode, "truncated operand for %s at pc %d", op, th.pc)
			return
		}
		op1 = decodeOperand(code, pos)
		pos += 4
	}
	if n >= 2 {
		if pos+4 > len(code) {
			th.fail(diag.BadOpcode, "truncated operand for %s at pc %d", op, th.pc)
			return
		}
		op2 = decodeOperand(code, pos)
		pos += 4
	}
	// Default fallthrough pc; jumps, calls and ret override it below.
	th.pc = pos
	th.cycles++

	switch op {
	case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD,
		compiler.AND, compiler.OR, compiler.EQ, compiler.LT, compiler.GT,
		compiler.LEQ, compiler.GEQ:
		th.execBinary(op)

	case compiler.NOT:
		v := th.pop()
		th.push(boolValue(!truthy(v)))

	case compiler.NEG:
		th.execNeg()

	case compiler.NEW_NONE:
		th.push(NewNone())

	case compiler.GETA:
		th.execGetA()

	case compiler.SETA:
		th.execSetA()

	case compiler.NEW_INT:
		th.push(NewInt(op1))

	case compiler.NEW_FLT:
		th.push(NewFloat32Bits(op1))

	case compiler.NEW_STR:
		th.execNewStr(int(op1))

	case compiler.NEW_ARY:
		th.execNewAry(int(op1))

	case compiler.NEW_FUNC:
		th.push(NewFunc(op1))

	case compiler.NEW_SCALL:
		th.push(NewSyscall(op1))

	case compiler.GETV:
		th.execGetV(int(op1))

	case compiler.SETV:
		th.execSetV(int(op1))

	case compiler.GETG:
		th.execGetG(int(op1))

	case compiler.SETG:
		th.execSetG(int(op1))

	case compiler.JMP:
		th.pc = int(op1)

	case compiler.TJMP:
		if truthy(th.pop()) {
			th.pc = int(op1)
		}

	case compiler.FJMP:
		if !truthy(th.pop()) {
			th.pc = int(op1)
		}

	case compiler.ICALL:
		th.execICall(int(op1))

	case compiler.RET:
		th.execRet(int(op1))

	case compiler.LOCALS:
		for i := int32(0); i < op1; i++ {
			th.push(NewNone())
		}

	case compiler.GLOBALS:
		if op1 < 0 {
			th.fail(diag.BadGlobalsSize, "negative globals size %d", op1)
			return
		}
		th.vm.Globals = make([]Value, op1)

	case compiler.POP:
		if int(op1) > th.sp {
			th.fail(diag.BadPop, "pop %d exceeds stack height %d", op1, th.sp)
			return
		}
		th.sp -= int(op1)

	case compiler.CALL:
		th.execCall(int(op1), int(op2))

	case compiler.SCALL:
		th.execSCall(int(op1), int(op2))

	default:
		th.fail(diag.BadOpcode, "unrecognized opcode %d at pc %d", op, startPC)
	}
}

// execCall dispatches a direct call to a user function: argc arguments are
// already sitting at the top of the stack, target is the callee's code
// offset (the fixup genCall's CALL instruction carries once every function
// has been emitted).
func (th *Thread) execCall(argc, target int) {
	if argc > th.sp {
		th.fail(diag.BadNumArgs, "call needs %d args, only %d on stack", argc, th.sp)
		return
	}
	th.pushCall(target, argc, false)
}

// execSCall dispatches a direct call to a syscall: argc arguments are
// already on the stack, idx indexes vm.Syscalls (resolved at link time
// from Program.SyscallNames).
func (th *Thread) execSCall(argc, idx int) {
	th.invokeSyscall(idx, argc)
}

// execICall pops a function or syscall value off the top of the stack —
// the argc arguments it will be called with are already beneath it — and
// dispatches to whichever of CALL/SCALL's mechanics applies (spec.md
// 4.7's ICALL: "pop a function or syscall value, pop argc args, call
// it"). Codegen emits ICALL only for callees that never evaluate to a
// function or syscall value (see compiler.genCall's doc comment), so for
// compiled Nano source it always takes the not-callable branch; the other
// branches are implemented because ICALL is part of the normative opcode
// set and the VM must support a program that uses it.
func (th *Thread) execICall(argc int) {
	if th.sp < 1 {
		th.fail(diag.StackUnderflow, "icall: no callee value on stack")
		return
	}
	callee := th.pop()
	switch callee.Kind() {
	case Func:
		if argc > th.sp {
			th.fail(diag.BadNumArgs, "call needs %d args, only %d on stack", argc, th.sp)
			return
		}
		th.pushCall(int(callee.CodeOffset()), argc, false)
	case Syscall:
		th.invokeSyscall(int(callee.SyscallIndex()), argc)
	default:
		th.fail(diag.BadOpcode, "icall: value of kind %s is not callable", callee.Kind())
	}
}

// invokeSyscall resolves idx against vm.Syscalls and runs the host
// callback, enforcing the syscall contract from spec.md 4.10: the
// callback must pop exactly argc values and push exactly one, or set the
// thread's error itself. A callback that returns a plain error (not
// already a *diag.RuntimeError) is wrapped as bad_syscall so the thread's
// sticky error is always a RuntimeError.
func (th *Thread) invokeSyscall(idx int, argc int) {
	if idx < 0 || idx >= len(th.vm.Syscalls) {
		th.fail(diag.BadSyscall, "syscall index %d out of range", idx)
		return
	}
	fn := th.vm.Syscalls[idx]
	if fn == nil {
		name := "?"
		if idx < len(th.vm.Program.SyscallNames) {
			name = th.vm.Program.SyscallNames[idx]
		}
		th.fail(diag.BadSyscall, "syscall %q has not been resolved", name)
		return
	}
	if argc > th.sp {
		th.fail(diag.BadNumArgs, "syscall needs %d args, only %d on stack", argc, th.sp)
		return
	}
	before := th.sp - argc
	if err := fn(th, argc); err != nil {
		if th.err == nil {
			if re, ok := err.(*diag.RuntimeError); ok {
				th.err = re
			} else {
				th.err = diag.New(diag.BadSyscall, "%v", err)
			}
			th.finished = true
		}
		return
	}
	if th.err != nil {
		return
	}
	if th.sp != before+1 {
		th.fail(diag.BadSyscall, "syscall left stack height %d, expected %d", th.sp, before+1)
	}
}

// execRet pops the function's return value, drops frameSize slots (the
// callee's args plus its locals, precisely what codegen's RET operand
// already encodes: len(Args)+StackSize), and either finishes the thread
// (terminal frame) or resumes the caller just past its CALL/ICALL
// instruction, pushing the return value back for it.
func (th *Thread) execRet(frameSize int) {
	if th.sp < 1 {
		th.fail(diag.StackUnderflow, "ret: no return value on stack")
		return
	}
	retval := th.pop()
	if len(th.frames) == 0 {
		th.fail(diag.BadPrepare, "ret: no active frame")
		return
	}
	fr := th.frames[len(th.frames)-1]
	th.frames = th.frames[:len(th.frames)-1]

	if frameSize > th.sp {
		th.fail(diag.StackUnderflow, "ret: frame size %d exceeds stack height %d", frameSize, th.sp)
		return
	}
	th.sp -= frameSize

	if fr.terminal {
		th.result = retval
		th.finished = true
		return
	}
	th.push(retval)
	th.pc = fr.returnAddr
}

// execGetV pushes the value at frame-relative offset off (spec.md 4.6:
// negative offsets are arguments, non-negative offsets are locals, both
// relative to the current frame's base).
func (th *Thread) execGetV(off int) {
	fr := th.curFrame()
	idx := fr.base + off
	if idx < 0 || idx >= th.sp {
		th.fail(diag.BadGetV, "frame offset %d (stack index %d) out of bounds", off, idx)
		return
	}
	th.push(th.stack[idx])
}

// execSetV stores the popped top-of-stack value to frame-relative offset
// off.
func (th *Thread) execSetV(off int) {
	if th.sp < 1 {
		th.fail(diag.StackUnderflow, "setv: no value to store")
		return
	}
	v := th.pop()
	fr := th.curFrame()
	idx := fr.base + off
	if idx < 0 || idx >= th.sp {
		th.fail(diag.BadSetV, "frame offset %d (stack index %d) out of bounds", off, idx)
		return
	}
	th.stack[idx] = v
}

// execGetG pushes the value at global slot off.
func (th *Thread) execGetG(off int) {
	if off < 0 || off >= len(th.vm.Globals) {
		th.fail(diag.BadGetGlobal, "global offset %d out of bounds (table size %d)", off, len(th.vm.Globals))
		return
	}
	th.push(th.vm.Globals[off])
}

// execSetG stores the popped top-of-stack value to global slot off.
func (th *Thread) execSetG(off int) {
	if th.sp < 1 {
		th.fail(diag.StackUnderflow, "setg: no value to store")
		return
	}
	v := th.pop()
	if off < 0 || off >= len(th.vm.Globals) {
		th.fail(diag.BadSetGlobal, "global offset %d out of bounds (table size %d)", off, len(th.vm.Globals))
		return
	}
	th.vm.Globals[off] = v
}

// execNewStr allocates a fresh String cell holding Program.Strings[idx]
// and pushes it. Each execution allocates anew rather than caching one GC
// cell per constant-pool entry: string equality (EQ) compares by content
// (see execBinary), so re-running the same NEW_STR in a loop producing
// distinct cells with equal content is observationally transparent, and
// keeping allocation uniform (everything flows through the same
// GC.NewString/NewArray path) is simpler than special-casing constants.
func (th *Thread) execNewStr(idx int) {
	if idx < 0 || idx >= len(th.vm.Program.Strings) {
		th.fail(diag.BadOpcode, "string constant index %d out of bounds", idx)
		return
	}
	th.CollectIfNeeded()
	th.push(th.vm.GC.NewString(th.vm.Program.Strings[idx]))
}

// execNewAry allocates a fresh Array of n none-initialized elements and
// pushes it.
func (th *Thread) execNewAry(n int) {
	if n < 0 {
		th.fail(diag.BadArrayBounds, "array size %d is negative", n)
		return
	}
	th.CollectIfNeeded()
	th.push(th.vm.GC.NewArray(n))
}

// execGetA pops index then array (spec.md 4.7: "GETA: array, index ->
// elem" — array was pushed first, so it sits below index), validates
// both, and pushes the element.
func (th *Thread) execGetA() {
	if th.sp < 2 {
		th.fail(diag.StackUnderflow, "geta: needs array and index on stack")
		return
	}
	index := th.pop()
	array := th.pop()
	if array.Kind() != Array {
		th.fail(diag.BadArrayObject, "geta: value of kind %s is not an array", array.Kind())
		return
	}
	if index.Kind() != Int {
		th.fail(diag.BadArrayIndex, "geta: index of kind %s is not an int", index.Kind())
		return
	}
	i := int(index.Int32())
	if i < 0 || i >= array.Len() {
		th.fail(diag.BadArrayBounds, "geta: index %d out of bounds (len %d)", i, array.Len())
		return
	}
	th.push(array.Index(i))
}

// execSetA pops value, index, then array (spec.md 4.7: "SETA: array,
// index, value -> -").
func (th *Thread) execSetA() {
	if th.sp < 3 {
		th.fail(diag.StackUnderflow, "seta: needs array, index and value on stack")
		return
	}
	value := th.pop()
	index := th.pop()
	array := th.pop()
	if array.Kind() != Array {
		th.fail(diag.BadArrayObject, "seta: value of kind %s is not an array", array.Kind())
		return
	}
	if index.Kind() != Int {
		th.fail(diag.BadArrayIndex, "seta: index of kind %s is not an int", index.Kind())
		return
	}
	i := int(index.Int32())
	if i < 0 || i >= array.Len() {
		th.fail(diag.BadArrayBounds, "seta: index %d out of bounds (len %d)", i, array.Len())
		return
	}
	array.SetIndex(i, value)
}

// execNeg pops one numeric value and pushes its arithmetic negation.
func (th *Thread) execNeg() {
	if th.sp < 1 {
		th.fail(diag.StackUnderflow, "neg: no operand")
		return
	}
	v := th.pop()
	switch v.Kind() {
	case Int:
		th.push(NewInt(-v.Int32()))
	case Float:
		th.push(NewFloat(-v.Float32()))
	default:
		th.fail(diag.BadTypeOperation, "neg: value of kind %s is not numeric", v.Kind())
	}
}

// truthy reports whether v counts as true for NOT/AND/OR (spec.md 9: and/or
// are strict — both operands are always evaluated, never short-circuited
// — so truthy only needs a single-value predicate, not the lazy,
// control-flow-shaped semantics a short-circuiting language would need).
// None is false; numeric zero is false; an empty string or array is
// false; everything else, including every func and syscall value, is
// true.
func truthy(v Value) bool {
	switch v.Kind() {
	case None:
		return false
	case Int:
		return v.Int32() != 0
	case Float:
		return v.Float32() != 0
	case String, Array:
		return v.Len() > 0
	default:
		return true
	}
}

func boolValue(b bool) Value {
	if b {
		return NewInt(1)
	}
	return NewInt(0)
}

// execBinary pops y then x (x was pushed first) and dispatches op,
// pushing exactly one result or failing with bad_type_operation /
// bad_divide_by_zero.
func (th *Thread) execBinary(op compiler.Opcode) {
	if th.sp < 2 {
		th.fail(diag.StackUnderflow, "%s: needs two operands", op)
		return
	}
	y := th.pop()
	x := th.pop()

	switch op {
	case compiler.AND:
		th.push(boolValue(truthy(x) && truthy(y)))
		return
	case compiler.OR:
		th.push(boolValue(truthy(x) || truthy(y)))
		return
	case compiler.EQ:
		th.push(boolValue(valuesEqual(x, y)))
		return
	}

	switch {
	case x.Kind() == String && y.Kind() == String:
		th.execStringBinary(op, x, y)
	case x.Kind() == Int && y.Kind() == Int:
		th.execIntBinary(op, x, y)
	case (x.Kind() == Int || x.Kind() == Float) && (y.Kind() == Int || y.Kind() == Float):
		th.execFloatBinary(op, x, y)
	default:
		th.fail(diag.BadTypeOperation, "%s: incompatible operand kinds %s and %s", op, x.Kind(), y.Kind())
	}
}

// valuesEqual implements EQ: same kind required except across int/float,
// which compare by numeric value; strings compare by content; arrays
// compare by identity (Nano has no structural-equality requirement for a
// mutable reference type, and comparing by identity avoids committing to
// an element-wise recursion depth limit spec.md never asks for);
// func/syscall compare by their bound code offset/syscall index; none
// equals only none.
func valuesEqual(x, y Value) bool {
	switch {
	case x.Kind() == None && y.Kind() == None:
		return true
	case x.Kind() == String && y.Kind() == String:
		return x.Str() == y.Str()
	case x.Kind() == Int && y.Kind() == Int:
		return x.Int32() == y.Int32()
	case (x.Kind() == Int || x.Kind() == Float) && (y.Kind() == Int || y.Kind() == Float):
		return asFloat(x) == asFloat(y)
	case x.Kind() == Array && y.Kind() == Array:
		return sameArray(x, y)
	case x.Kind() == Func && y.Kind() == Func:
		return x.CodeOffset() == y.CodeOffset()
	case x.Kind() == Syscall && y.Kind() == Syscall:
		return x.SyscallIndex() == y.SyscallIndex()
	default:
		return false
	}
}

func asFloat(v Value) float32 {
	if v.Kind() == Int {
		return float32(v.Int32())
	}
	return v.Float32()
}

func (th *Thread) execIntBinary(op compiler.Opcode, x, y Value) {
	a, b := x.Int32(), y.Int32()
	switch op {
	case compiler.ADD:
		th.push(NewInt(a + b))
	case compiler.SUB:
		th.push(NewInt(a - b))
	case compiler.MUL:
		th.push(NewInt(a * b))
	case compiler.DIV:
		if b == 0 {
			th.fail(diag.BadDivideByZero, "integer division by zero")
			return
		}
		th.push(NewInt(a / b))
	case compiler.MOD:
		if b == 0 {
			th.fail(diag.BadDivideByZero, "integer modulo by zero")
			return
		}
		th.push(NewInt(a % b))
	case compiler.LT:
		th.push(boolValue(a < b))
	case compiler.GT:
		th.push(boolValue(a > b))
	case compiler.LEQ:
		th.push(boolValue(a <= b))
	case compiler.GEQ:
		th.push(boolValue(a >= b))
	default:
		th.fail(diag.BadOpcode, "unsupported int binary op %s", op)
	}
}

func (th *Thread) execFloatBinary(op compiler.Opcode, x, y Value) {
	a, b := asFloat(x), asFloat(y)
	switch op {
	case compiler.ADD:
		th.push(NewFloat(a + b))
	case compiler.SUB:
		th.push(NewFloat(a - b))
	case compiler.MUL:
		th.push(NewFloat(a * b))
	case compiler.DIV:
		if b == 0 {
			th.fail(diag.BadDivideByZero, "float division by zero")
			return
		}
		th.push(NewFloat(a / b))
	case compiler.MOD:
		th.fail(diag.BadTypeOperation, "mod: float operands not supported")
	case compiler.LT:
		th.push(boolValue(a < b))
	case compiler.GT:
		th.push(boolValue(a > b))
	case compiler.LEQ:
		th.push(boolValue(a <= b))
	case compiler.GEQ:
		th.push(boolValue(a >= b))
	default:
		th.fail(diag.BadOpcode, "unsupported float binary op %s", op)
	}
}

func (th *Thread) execStringBinary(op compiler.Opcode, x, y Value) {
	a, b := x.Str(), y.Str()
	switch op {
	case compiler.ADD:
		th.CollectIfNeeded()
		th.push(th.vm.GC.NewString(a + b))
	case compiler.LT:
		th.push(boolValue(a < b))
	case compiler.GT:
		th.push(boolValue(a > b))
	case compiler.LEQ:
		th.push(boolValue(a <= b))
	case compiler.GEQ:
		th.push(boolValue(a >= b))
	default:
		th.fail(diag.BadTypeOperation, "%s: unsupported for strings", op)
	}
}

// sameArray reports whether x and y refer to the identical array cell.
func sameArray(x, y Value) bool {
	return x.cell == y.cell
}
