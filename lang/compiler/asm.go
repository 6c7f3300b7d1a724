package compiler

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Dasm and Asm implement a human-readable pseudo-assembly text format for a
// Program, grounded on the teacher's lang/compiler asm.go: a line-oriented
// format with recognized section headers, one field-split line per record,
// '#' comments, and blank lines as separators. Unlike the teacher's format,
// jump and call operands are never symbolic labels needing a backpatch
// pass: codegen already resolved every JMP/TJMP/FJMP/CALL operand to an
// absolute Program.Code offset, so the text format simply prints and
// reparses that same integer — there is nothing left to fix up.

// Dasm renders p as text: one line per instruction (address, mnemonic,
// operands), preceded by the syscall, string, global and function tables.
// It is the format the "disasm" CLI subcommand and debuggers print; it is
// not required to round-trip identically byte-for-byte through Asm (e.g.
// it annotates a CALL target with the callee's name as a trailing comment).
func Dasm(p *Program) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# nano bytecode v%d\n\n", p.Version)

	fmt.Fprintln(&buf, "syscalls:")
	for i, name := range p.SyscallNames {
		fmt.Fprintf(&buf, "  %d %s\n", i, name)
	}
	fmt.Fprintln(&buf, "end")
	fmt.Fprintln(&buf)

	fmt.Fprintln(&buf, "strings:")
	for i, s := range p.Strings {
		fmt.Fprintf(&buf, "  %d %q\n", i, s)
	}
	fmt.Fprintln(&buf, "end")
	fmt.Fprintln(&buf)

	fmt.Fprintln(&buf, "globals:")
	for _, g := range p.Globals {
		fmt.Fprintf(&buf, "  %d %s\n", g.Offset, g.Name)
	}
	fmt.Fprintln(&buf, "end")
	fmt.Fprintln(&buf)

	funcAt := make(map[int]string, len(p.Functions))
	for _, fn := range p.Functions {
		funcAt[fn.CodeStart] = fn.Name
	}

	for _, fn := range p.Functions {
		fmt.Fprintf(&buf, "function %s start=%d end=%d varargs=%t\n", fn.Name, fn.CodeStart, fn.CodeEnd, fn.IsVarargs)
		for _, a := range fn.Args {
			fmt.Fprintf(&buf, "  arg %d %s\n", a.Offset, a.Name)
		}
		for _, l := range fn.Locals {
			fmt.Fprintf(&buf, "  local %d %s\n", l.Offset, l.Name)
		}
		dasmCode(&buf, p, fn.CodeStart, fn.CodeEnd, funcAt)
		fmt.Fprintln(&buf, "end")
		fmt.Fprintln(&buf)
	}

	fmt.Fprintln(&buf, "lines:")
	for _, l := range p.Lines {
		fmt.Fprintf(&buf, "  %d %s %d\n", l.Offset, l.File, l.Line)
	}
	fmt.Fprintln(&buf, "end")

	return buf.Bytes()
}

func dasmCode(buf *bytes.Buffer, p *Program, start, end int, funcAt map[int]string) {
	for pc := start; pc < end; {
		op := Opcode(p.Code[pc])
		n := numOperands(op)
		line := fmt.Sprintf("  %04d %s", pc, op)
		pc++
		for i := 0; i < n; i++ {
			v := getOperand(p.Code[pc:])
			pc += operandSize
			line += " " + strconv.Itoa(int(v))
			if i == n-1 && op == CALL {
				if name, ok := funcAt[int(v)]; ok {
					line += " # " + name
				}
			}
		}
		fmt.Fprintln(buf, line)
	}
}

// Asm parses the text format Dasm produces (or an equivalent hand-written
// source) back into a Program. Every section in this format is explicitly
// terminated by a line whose sole field is "end", so the parser never
// needs to guess where a section stops by inspecting the shape of the
// following line.
func Asm(data []byte) (*Program, error) {
	a := newAsmState(data)
	p := &Program{Version: Version}

	for a.advance() {
		switch a.fields[0] {
		case "syscalls:":
			if err := a.parseIndexed(func(idx int, rest []string) error {
				p.SyscallNames = append(p.SyscallNames, strings.Join(rest, " "))
				return nil
			}); err != nil {
				return nil, err
			}
		case "strings:":
			if err := a.parseIndexed(func(idx int, rest []string) error {
				s, err := strconv.Unquote(strings.Join(rest, " "))
				if err != nil {
					return fmt.Errorf("bad quoted string: %w", err)
				}
				p.Strings = append(p.Strings, s)
				return nil
			}); err != nil {
				return nil, err
			}
		case "globals:":
			if err := a.parseVars(&p.Globals); err != nil {
				return nil, err
			}
		case "function":
			fn, code, err := a.parseFunction()
			if err != nil {
				return nil, err
			}
			p.Functions = append(p.Functions, fn)
			p.Code = append(p.Code, code...)
		case "lines:":
			if err := a.parseLines(&p.Lines); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("compiler: asm: unexpected section %q at line %d", a.fields[0], a.lineNo)
		}
	}
	if err := a.sc.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// asmState tokenizes the text format into whitespace-separated fields per
// line, skipping blank lines and '#'-led comment lines (a line whose first
// field is a CALL annotation comment is only ever a trailing fragment of an
// instruction line, never scanned on its own).
type asmState struct {
	sc     *bufio.Scanner
	fields []string
	lineNo int
}

func newAsmState(data []byte) *asmState {
	return &asmState{sc: bufio.NewScanner(bytes.NewReader(data))}
}

// advance reads the next non-blank, non-comment-only line into a.fields.
// Returns false at end of input.
func (a *asmState) advance() bool {
	for a.sc.Scan() {
		a.lineNo++
		line := strings.TrimSpace(a.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		a.fields = strings.Fields(line)
		return true
	}
	return false
}

// parseIndexed reads lines of the form "<index> <rest...>" until a line
// "end", calling fn once per entry in file order (the index itself is
// positional and redundant with that order — callers rely on append order,
// not the printed index — but it is required to be present for
// readability and consistency with the rest of this format).
func (a *asmState) parseIndexed(fn func(idx int, rest []string) error) error {
	for a.advance() {
		if a.fields[0] == "end" {
			return nil
		}
		idx, err := strconv.Atoi(a.fields[0])
		if err != nil {
			return fmt.Errorf("compiler: asm: expected index at line %d, got %q", a.lineNo, a.fields[0])
		}
		if err := fn(idx, a.fields[1:]); err != nil {
			return fmt.Errorf("compiler: asm: line %d: %w", a.lineNo, err)
		}
	}
	return fmt.Errorf("compiler: asm: unterminated section (missing end)")
}

func (a *asmState) parseVars(out *[]Var) error {
	for a.advance() {
		if a.fields[0] == "end" {
			return nil
		}
		if len(a.fields) < 2 {
			return fmt.Errorf("compiler: asm: malformed var entry at line %d", a.lineNo)
		}
		off, err := strconv.Atoi(a.fields[0])
		if err != nil {
			return fmt.Errorf("compiler: asm: bad offset at line %d: %w", a.lineNo, err)
		}
		*out = append(*out, Var{Name: a.fields[1], Offset: off})
	}
	return fmt.Errorf("compiler: asm: unterminated section (missing end)")
}

func (a *asmState) parseFunction() (Func, []byte, error) {
	fn := Func{Name: a.fields[1]}
	for _, f := range a.fields[2:] {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "start":
			fn.CodeStart, _ = strconv.Atoi(kv[1])
		case "end":
			fn.CodeEnd, _ = strconv.Atoi(kv[1])
		case "varargs":
			fn.IsVarargs = kv[1] == "true"
		}
	}

	var code []byte
	for a.advance() {
		switch a.fields[0] {
		case "arg", "local":
			off, err := strconv.Atoi(a.fields[1])
			if err != nil {
				return fn, nil, fmt.Errorf("compiler: asm: bad offset at line %d: %w", a.lineNo, err)
			}
			v := Var{Name: a.fields[2], Offset: off}
			if a.fields[0] == "arg" {
				fn.Args = append(fn.Args, v)
			} else {
				fn.Locals = append(fn.Locals, v)
			}
		case "end":
			return fn, code, nil
		default:
			instr, err := parseInstr(a.fields)
			if err != nil {
				return fn, nil, fmt.Errorf("compiler: asm: %w (line %d)", err, a.lineNo)
			}
			code = append(code, instr...)
		}
	}
	return fn, nil, fmt.Errorf("compiler: asm: function %q missing end", fn.Name)
}

// parseInstr parses one disassembled instruction line. Its first field is
// the instruction's address, printed for readability and discarded here:
// the instruction's real position is wherever it lands in the growing code
// blob being built for the enclosing function.
func parseInstr(fields []string) ([]byte, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed instruction")
	}
	op, ok := reverseOpcodeNames[fields[1]]
	if !ok {
		return nil, fmt.Errorf("unknown mnemonic %q", fields[1])
	}
	want := numOperands(op)
	operandFields := fields[2:]
	if idx := indexOf(operandFields, "#"); idx >= 0 {
		operandFields = operandFields[:idx] // trailing "# name" CALL annotation
	}
	if len(operandFields) != want {
		return nil, fmt.Errorf("%s expects %d operand(s), got %d", op, want, len(operandFields))
	}
	out := make([]byte, 0, instrSize(op))
	out = append(out, byte(op))
	for _, f := range operandFields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad operand %q: %w", f, err)
		}
		var buf [operandSize]byte
		putOperand(buf[:], int32(v))
		out = append(out, buf[:]...)
	}
	return out, nil
}

func indexOf(fields []string, s string) int {
	for i, f := range fields {
		if f == s {
			return i
		}
	}
	return -1
}

func (a *asmState) parseLines(out *[]Line) error {
	for a.advance() {
		if a.fields[0] == "end" {
			return nil
		}
		if len(a.fields) != 3 {
			return fmt.Errorf("compiler: asm: malformed line-table entry at line %d", a.lineNo)
		}
		offset, err := strconv.Atoi(a.fields[0])
		if err != nil {
			return fmt.Errorf("compiler: asm: bad offset at line %d: %w", a.lineNo, err)
		}
		lineNo, err := strconv.Atoi(a.fields[2])
		if err != nil {
			return fmt.Errorf("compiler: asm: bad line number at line %d: %w", a.lineNo, err)
		}
		*out = append(*out, Line{Offset: offset, File: a.fields[1], Line: lineNo})
	}
	return fmt.Errorf("compiler: asm: unterminated lines section (missing end)")
}
