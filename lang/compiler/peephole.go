package compiler

// Peephole implements the post-codegen pass original_source/source/lib/
// peephole.cpp runs after its assembler: it walks the finished instruction
// stream looking for a side-effect-free push immediately followed by a POP
// that discards exactly that one value, and removes both. No other pattern
// (such as folding adjacent constant pushes) is rewritten. Unlike the
// original, which edits a std::vector<instruction_t> of
// uniform variable-length entries built straight out of the assembler,
// Nano's Program has already been through fixups and is addressed by
// absolute byte offsets from several places (every jump target, every CALL's
// direct-call target, every Func's CodeStart/CodeEnd, every Lines entry), so
// removing bytes means relocating every one of those before returning.
//
// Peephole is not run automatically by Generate; it is invoked explicitly by
// a caller that already holds a *Program, mirroring the original's separate
// post-assembly pass (see internal/maincmd's buildProgram, which calls it
// right after Generate when --optimize is set, for both compile and run).
func Peephole(p *Program) {
	instrs := decodeAll(p.Code)
	removed := markDeadPushPop(instrs)
	if !anyRemoved(removed) {
		return
	}

	offsetMap, newLen := mapOffsets(instrs, removed)
	newCode := make([]byte, newLen)
	writeSurviving(instrs, removed, offsetMap, newCode)
	rewriteTargets(instrs, removed, offsetMap, newCode)

	for i := range p.Functions {
		p.Functions[i].CodeStart = offsetMap[p.Functions[i].CodeStart]
		p.Functions[i].CodeEnd = offsetMap[p.Functions[i].CodeEnd]
	}
	for i := range p.Lines {
		p.Lines[i].Offset = offsetMap[p.Lines[i].Offset]
	}

	p.Code = newCode
}

type instr struct {
	op       Opcode
	operands []int32
	start    int
	size     int
}

// decodeAll walks code once, splitting it into its instructions. It never
// fails: code is always a Program produced by Generate or Asm, both of which
// only ever emit opcodes numOperands understands.
func decodeAll(code []byte) []instr {
	var out []instr
	pos := 0
	for pos < len(code) {
		op := Opcode(code[pos])
		n := numOperands(op)
		ops := make([]int32, n)
		p := pos + 1
		for i := 0; i < n; i++ {
			ops[i] = getOperand(code[p : p+operandSize])
			p += operandSize
		}
		size := instrSize(op)
		out = append(out, instr{op: op, operands: ops, start: pos, size: size})
		pos += size
	}
	return out
}

// sideEffectFreePush reports whether op only pushes a value already fully
// determined by its operands (or none), with no frame/global mutation and
// no possibility of a runtime error — so discarding its result unread is
// always safe to elide. NEW_STR does allocate a string cell, but a dropped,
// unreferenced cell is not observable. GETA (array load) and NEW_ARY (allocation)
// are deliberately excluded: both can trigger a GC collection or an
// out-of-bounds error, which a later pass must still observe even if the
// value they produce is never used.
func sideEffectFreePush(op Opcode) bool {
	switch op {
	case NEW_NONE, NEW_INT, NEW_FLT, NEW_STR, GETV, GETG:
		return true
	default:
		return false
	}
}

// markDeadPushPop returns a parallel removed[i] slice flagging every
// instruction that is part of a push/POP(1) dead-code pair. It scans left to
// right and never matches overlapping pairs.
func markDeadPushPop(instrs []instr) []bool {
	removed := make([]bool, len(instrs))
	for i := 0; i+1 < len(instrs); i++ {
		if removed[i] {
			continue
		}
		push := instrs[i]
		pop := instrs[i+1]
		if sideEffectFreePush(push.op) && pop.op == POP && pop.operands[0] == 1 {
			removed[i] = true
			removed[i+1] = true
			i++ // pop is consumed, skip re-examining it as a push candidate
		}
	}
	return removed
}

func anyRemoved(removed []bool) bool {
	for _, r := range removed {
		if r {
			return true
		}
	}
	return false
}

// codeOffsetOperand reports the operand index of op's encoding that holds an
// absolute byte offset into Code, if any (spec.md 4.7's control-flow
// opcodes, plus CALL's direct-call target and NEW_FUNC's bound code offset).
func codeOffsetOperand(op Opcode) (idx int, ok bool) {
	switch op {
	case JMP, TJMP, FJMP, NEW_FUNC:
		return 0, true
	case CALL:
		return 1, true
	default:
		return 0, false
	}
}

// mapOffsets computes, for every instruction's old start offset, the offset
// it will have (or collapse onto) in the rebuilt buffer, plus the rebuilt
// buffer's total length. A removed instruction maps to the start of the
// first surviving instruction after it (or the end of the buffer, if none
// survives) — so any reference that used to land exactly on a removed
// instruction still lands on the instruction that would have run right
// after it, which is semantically identical since the removed pair had no
// net effect on the stack or any other state.
func mapOffsets(instrs []instr, removed []bool) (map[int]int, int) {
	offsetMap := make(map[int]int, len(instrs))
	pos := 0
	for i, in := range instrs {
		if removed[i] {
			continue
		}
		offsetMap[in.start] = pos
		pos += in.size
	}
	newLen := pos

	next := newLen
	for i := len(instrs) - 1; i >= 0; i-- {
		if !removed[i] {
			next = offsetMap[instrs[i].start]
		} else {
			offsetMap[instrs[i].start] = next
		}
	}

	// A jump/call target (or a Func's CodeEnd) may legitimately point one
	// past the last instruction, i.e. at the old buffer's length; map that
	// sentinel offset to the new buffer's length too.
	if len(instrs) > 0 {
		last := instrs[len(instrs)-1]
		offsetMap[last.start+last.size] = newLen
	}
	return offsetMap, newLen
}

// writeSurviving emits every non-removed instruction's opcode and (still
// old) operands into newCode at its mapped position.
func writeSurviving(instrs []instr, removed []bool, offsetMap map[int]int, newCode []byte) {
	for i, in := range instrs {
		if removed[i] {
			continue
		}
		pos := offsetMap[in.start]
		newCode[pos] = byte(in.op)
		p := pos + 1
		for _, v := range in.operands {
			putOperand(newCode[p:p+operandSize], v)
			p += operandSize
		}
	}
}

// rewriteTargets patches every code-offset operand found in a surviving
// instruction through offsetMap, directly inside the post-rebuild buffer.
func rewriteTargets(instrs []instr, removed []bool, offsetMap map[int]int, newCode []byte) {
	for i, in := range instrs {
		if removed[i] {
			continue
		}
		idx, ok := codeOffsetOperand(in.op)
		if !ok {
			continue
		}
		pos := offsetMap[in.start]
		target := offsetMap[in.operands[idx]]
		operandStart := pos + 1 + idx*operandSize
		putOperand(newCode[operandStart:operandStart+operandSize], int32(target))
	}
}
