package compiler

import "encoding/binary"

// Operands are fixed-width little-endian 32-bit words (spec.md 4.7), a
// deliberate departure from the teacher's variable-length varint encoding:
// Nano's bytecode never needs to be compact (the implementation budget is a
// few thousand lines of source, not the megabyte-scale Starlark modules the
// teacher's varint scheme was sized for), and a fixed width lets the
// assembler and disassembler patch a jump target in place without
// re-encoding every instruction after it.
const operandSize = 4

func putOperand(code []byte, v int32) {
	binary.LittleEndian.PutUint32(code, uint32(v))
}

func getOperand(code []byte) int32 {
	return int32(binary.LittleEndian.Uint32(code))
}

// instrSize returns the total byte length of an instruction for opcode op,
// including its opcode byte.
func instrSize(op Opcode) int {
	return 1 + numOperands(op)*operandSize
}
