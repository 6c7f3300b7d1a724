package compiler_test

import (
	"encoding/binary"
	"testing"

	"github.com/mna/nano/lang/compiler"
	"github.com/stretchr/testify/require"
)

// encodeForTest mirrors the package's own little-endian fixed-width operand
// encoding (lang/compiler/encoding.go) so this black-box test can hand-build
// a Program without exporting internal helpers just for tests.
func encodeForTest(ops ...interface{}) []byte {
	var out []byte
	for _, o := range ops {
		switch v := o.(type) {
		case compiler.Opcode:
			out = append(out, byte(v))
		case int32:
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], uint32(v))
			out = append(out, buf[:]...)
		default:
			panic("encodeForTest: unsupported operand type")
		}
	}
	return out
}

func TestPeepholeRemovesDeadPushPop(t *testing.T) {
	// main: NEW_INT 5; POP 1; NEW_INT 7; RET 0
	code := encodeForTest(
		compiler.NEW_INT, int32(5),
		compiler.POP, int32(1),
		compiler.NEW_INT, int32(7),
		compiler.RET, int32(0),
	)
	p := &compiler.Program{
		Code: code,
		Functions: []compiler.Func{
			{Name: "main", CodeStart: 0, CodeEnd: len(code)},
		},
		Lines: []compiler.Line{
			{Offset: 0, File: "t.nano", Line: 1},
			{Offset: 10, File: "t.nano", Line: 2}, // right at NEW_INT 7
		},
	}

	compiler.Peephole(p)

	want := encodeForTest(compiler.NEW_INT, int32(7), compiler.RET, int32(0))
	require.Equal(t, want, p.Code)
	require.Equal(t, 0, p.Functions[0].CodeStart)
	require.Equal(t, len(want), p.Functions[0].CodeEnd)
	require.Equal(t, 0, p.Lines[1].Offset)
}

func TestPeepholeRelocatesJumpIntoRemovedPair(t *testing.T) {
	// JMP 10 (targets the POP 1 of the dead pair below, as if some other optimization
	// pass had folded a branch down to jump straight past a now-constant
	// prelude); NEW_INT 5; POP 1; NEW_INT 9; RET 0.
	code := encodeForTest(
		compiler.JMP, int32(10),
		compiler.NEW_INT, int32(5),
		compiler.POP, int32(1),
		compiler.NEW_INT, int32(9),
		compiler.RET, int32(0),
	)
	p := &compiler.Program{
		Code:      code,
		Functions: []compiler.Func{{Name: "main", CodeStart: 0, CodeEnd: len(code)}},
	}

	compiler.Peephole(p)

	want := encodeForTest(
		compiler.JMP, int32(5),
		compiler.NEW_INT, int32(9),
		compiler.RET, int32(0),
	)
	require.Equal(t, want, p.Code)
}

func TestPeepholeLeavesCleanCodeAlone(t *testing.T) {
	code := encodeForTest(compiler.NEW_INT, int32(1), compiler.RET, int32(0))
	p := &compiler.Program{
		Code:      append([]byte(nil), code...),
		Functions: []compiler.Func{{Name: "main", CodeStart: 0, CodeEnd: len(code)}},
	}

	compiler.Peephole(p)

	require.Equal(t, code, p.Code)
}
