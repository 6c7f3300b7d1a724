// Package compiler implements spec.md 4.6-4.8: pre-codegen offset wiring
// consumption, AST-to-bytecode codegen, the Program model, a pseudo-assembly
// text format, and binary persistence. Its shape — opcode table, label/fixup
// codegen, a line-based assembler text format with a matching disassembler —
// is grounded on the teacher's lang/compiler package; the opcode set,
// operand encoding and control-flow lowering themselves come from
// spec.md 4.7, which departs from the teacher's Starlark-derived
// instruction set entirely (Nano has no iterators, cells, or free
// variables to support).
package compiler

import "fmt"

// Version is bumped to force recompilation of saved bytecode files whenever
// the instruction set or Program encoding changes incompatibly.
const Version = 1

// Opcode identifies a single Nano VM instruction (spec.md 4.7's opcode
// table, normative).
type Opcode uint8

const (
	// Binary arithmetic/logic: pop two, push one.
	ADD Opcode = iota
	SUB
	MUL
	DIV
	MOD
	AND
	OR
	EQ
	LT
	GT
	LEQ
	GEQ

	// Unary: pop one, push one.
	NOT
	NEG

	// NEW_NONE and GETA/SETA take no operand: GETA/SETA's array and index
	// are already on the stack (GETA: array, index -> elem; SETA: array,
	// index, value -> -). Every opcode below opcodeOneOperandMin is a
	// zero-operand opcode; numOperands relies on that grouping, so a new
	// zero-operand opcode must be added here, above the marker, not
	// wherever its semantics happen to read best.
	NEW_NONE
	GETA
	SETA

	// --- opcodes with a single 32-bit operand start here ---

	opcodeOneOperandMin // marker only, never emitted

	NEW_INT   // push int constant n
	NEW_FLT   // push float constant whose float32 bit pattern is f
	NEW_STR   // push string constant at constant-pool index idx
	NEW_ARY   // allocate an array of n (zeroed) elements and push it
	NEW_FUNC  // push a function value bound to code_offset
	NEW_SCALL // push a syscall value bound to syscall-table index idx

	GETV // push local/arg frame slot off
	SETV // pop value, store to local/arg frame slot off
	GETG // push global slot off
	SETG // pop value, store to global slot off

	JMP  // unconditional jump to off
	TJMP // pop cond, jump to off if non-zero
	FJMP // pop cond, jump to off if zero

	ICALL // pop a function or syscall value, pop argc args, call it
	RET   // pop return value, drop frame_size slots, return it to the caller

	LOCALS  // reserve n zeroed local slots on the value stack
	GLOBALS // reserve n zeroed global slots (only valid in @init)
	POP     // drop n values from the value stack

	// --- opcodes with two 32-bit operands start here ---

	opcodeTwoOperandMin // marker only, never emitted

	CALL  // direct call: argc args already pushed, target is a code offset
	SCALL // syscall: argc args already pushed, idx is a syscall-table index
)

var opcodeNames = [...]string{
	ADD: "add", SUB: "sub", MUL: "mul", DIV: "div", MOD: "mod",
	AND: "and", OR: "or", EQ: "eq", LT: "lt", GT: "gt", LEQ: "leq", GEQ: "geq",
	NOT: "not", NEG: "neg",
	NEW_NONE: "new_none", NEW_INT: "new_int", NEW_FLT: "new_flt",
	NEW_STR: "new_str", NEW_ARY: "new_ary", NEW_FUNC: "new_func", NEW_SCALL: "new_scall",
	GETV: "getv", SETV: "setv", GETG: "getg", SETG: "setg",
	GETA: "geta", SETA: "seta",
	JMP: "jmp", TJMP: "tjmp", FJMP: "fjmp",
	ICALL: "icall", RET: "ret",
	LOCALS: "locals", GLOBALS: "globals", POP: "pop",
	CALL: "call", SCALL: "scall",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

var reverseOpcodeNames = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

// numOperands reports how many 32-bit operands op's encoding carries.
func numOperands(op Opcode) int {
	switch {
	case op >= opcodeTwoOperandMin:
		return 2
	case op >= opcodeOneOperandMin:
		return 1
	default:
		return 0
	}
}
