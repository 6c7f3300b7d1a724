package compiler

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/precodegen"
)

// magic identifies a persisted Nano Program file, followed by the format
// Version (spec.md 4.8: "the program persists magic header, syscall names
// ...").
const magic = "NANOBC"

// Var is a named frame or global slot, kept in the Program purely for
// debugging and disassembly (spec.md 3: Program.functions carries "arg
// identifiers (with frame offsets), local identifiers (with frame
// offsets)").
type Var struct {
	Name   string
	Offset int
}

// Func describes one compiled function's code range and frame layout
// (spec.md 3: Program.functions).
type Func struct {
	Name      string
	CodeStart int
	CodeEnd   int
	Args      []Var
	Locals    []Var
	IsVarargs bool
}

// Line is one row of the Program's line table (spec.md 3: Program.line_table).
type Line struct {
	Offset int
	File   string
	Line   int
}

// Program is the bytecode, function table, string table, global table,
// syscall table and line table produced by Generate (spec.md 3, component
// C10). It is read-only once built and safe to share across threads and
// VMs, each of which only reads it. Host syscall callbacks are never part
// of a Program: SyscallNames is resolved to live callbacks by the embedding
// host via machine.VM.Resolve, after Load or immediately after Generate.
type Program struct {
	Version int

	Code []byte

	Functions []Func

	// Globals holds every non-const global in declaration order, i.e. in
	// increasing Offset order (spec.md 3: Program.globals).
	Globals []Var

	// SyscallNames holds every syscall referenced by the program, in the
	// order Generate first encountered it; SCALL's idx operand indexes this
	// slice (spec.md 4.8: "Bytecode uses indices only; names are resolved at
	// link time").
	SyscallNames []string

	Strings []string

	Lines []Line
}

// buildProgram assembles the final Program from the emitter's accumulated
// state and pre's function/global metadata, once every function has been
// emitted and every call fixup patched.
func (e *emitter) buildProgram(pre *precodegen.Result) *Program {
	p := &Program{
		Version: Version,
		Code:    e.code,
		Strings: e.strings,
	}

	for _, fn := range pre.Functions {
		p.Functions = append(p.Functions, Func{
			Name:      fn.Name,
			CodeStart: fn.CodeStart,
			CodeEnd:   fn.CodeEnd,
			Args:      varsOf(fn.Args),
			Locals:    collectLocals(fn),
			IsVarargs: fn.IsVarargs,
		})
	}

	for _, g := range pre.Globals {
		if g.IsConst {
			continue
		}
		p.Globals = append(p.Globals, Var{Name: g.Name, Offset: g.Offset})
	}

	for _, s := range e.syscalls {
		p.SyscallNames = append(p.SyscallNames, s.Name)
	}

	for _, l := range e.lines {
		p.Lines = append(p.Lines, Line{Offset: l.offset, File: l.file, Line: l.line})
	}

	return p
}

func varsOf(decls []*ast.VarDecl) []Var {
	vars := make([]Var, len(decls))
	for i, d := range decls {
		vars[i] = Var{Name: d.Name, Offset: d.Offset}
	}
	return vars
}

// collectLocals walks fn's body gathering every local VarDecl and for-loop
// variable declared anywhere within it, in declaration order. Unlike
// offsetAssigner, it does not need a scope stack: it is purely cataloguing
// names for debug output, and sibling branches reusing the same offset are
// simply listed twice under their own names, which is the information a
// disassembler or debugger needs (which name is live at a given offset
// depends on which branch executed).
func collectLocals(fn *ast.FuncDecl) []Var {
	if fn.Body == nil {
		return nil
	}
	var out []Var
	var walk func(b *ast.Block)
	walk = func(b *ast.Block) {
		for _, stmt := range b.Stmts {
			switch s := stmt.(type) {
			case *ast.VarDeclStmt:
				out = append(out, Var{Name: s.Decl.Name, Offset: s.Decl.Offset})
			case *ast.IfStmt:
				walk(s.Then)
				if s.Else != nil {
					walk(s.Else)
				}
			case *ast.WhileStmt:
				walk(s.Body)
			case *ast.ForStmt:
				out = append(out, Var{Name: s.LoopVar.Name, Offset: s.LoopVar.Offset})
				walk(s.Body)
			}
		}
	}
	walk(fn.Body)
	return out
}

// Save persists p to w in the record order spec.md 4.8 and §6 describe:
// magic + version, syscall names, functions (identifiers and code ranges),
// the code blob, the line table, and the string table. It is a plain
// length-prefixed binary encoding, not meant to be portable across
// implementations (spec.md 1's Non-goals explicitly disclaim bit-level
// compatibility).
func (p *Program) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := writeUint32(bw, uint32(p.Version)); err != nil {
		return err
	}

	if err := writeStrings(bw, p.SyscallNames); err != nil {
		return err
	}

	if err := writeUint32(bw, uint32(len(p.Functions))); err != nil {
		return err
	}
	for _, fn := range p.Functions {
		if err := writeFunc(bw, fn); err != nil {
			return err
		}
	}

	if err := writeBytes(bw, p.Code); err != nil {
		return err
	}

	if err := writeUint32(bw, uint32(len(p.Lines))); err != nil {
		return err
	}
	for _, l := range p.Lines {
		if err := writeUint32(bw, uint32(l.Offset)); err != nil {
			return err
		}
		if err := writeString(bw, l.File); err != nil {
			return err
		}
		if err := writeUint32(bw, uint32(l.Line)); err != nil {
			return err
		}
	}

	if err := writeStrings(bw, p.Strings); err != nil {
		return err
	}

	if err := writeUint32(bw, uint32(len(p.Globals))); err != nil {
		return err
	}
	for _, g := range p.Globals {
		if err := writeVar(bw, g); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load rebuilds a Program from r as written by Save. The returned Program
// carries no host syscall bindings: the host must re-resolve
// p.SyscallNames to live callbacks (spec.md 4.8) before running it.
func Load(r io.Reader) (*Program, error) {
	br := bufio.NewReader(r)

	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, fmt.Errorf("compiler: reading magic: %w", err)
	}
	if string(buf) != magic {
		return nil, fmt.Errorf("compiler: not a Nano bytecode file")
	}
	version, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	if int(version) != Version {
		return nil, fmt.Errorf("compiler: bytecode version %d, expected %d", version, Version)
	}

	p := &Program{Version: int(version)}

	if p.SyscallNames, err = readStrings(br); err != nil {
		return nil, err
	}

	n, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	p.Functions = make([]Func, n)
	for i := range p.Functions {
		if p.Functions[i], err = readFunc(br); err != nil {
			return nil, err
		}
	}

	if p.Code, err = readBytes(br); err != nil {
		return nil, err
	}

	n, err = readUint32(br)
	if err != nil {
		return nil, err
	}
	p.Lines = make([]Line, n)
	for i := range p.Lines {
		offset, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		file, err := readString(br)
		if err != nil {
			return nil, err
		}
		line, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		p.Lines[i] = Line{Offset: int(offset), File: file, Line: int(line)}
	}

	if p.Strings, err = readStrings(br); err != nil {
		return nil, err
	}

	n, err = readUint32(br)
	if err != nil {
		return nil, err
	}
	p.Globals = make([]Var, n)
	for i := range p.Globals {
		if p.Globals[i], err = readVar(br); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeStrings(w io.Writer, ss []string) error {
	if err := writeUint32(w, uint32(len(ss))); err != nil {
		return err
	}
	for _, s := range ss {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStrings(r io.Reader) ([]string, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	ss := make([]string, n)
	for i := range ss {
		if ss[i], err = readString(r); err != nil {
			return nil, err
		}
	}
	return ss, nil
}

func writeVar(w io.Writer, v Var) error {
	if err := writeString(w, v.Name); err != nil {
		return err
	}
	return writeUint32(w, uint32(v.Offset))
}

func readVar(r io.Reader) (Var, error) {
	name, err := readString(r)
	if err != nil {
		return Var{}, err
	}
	offset, err := readUint32(r)
	if err != nil {
		return Var{}, err
	}
	return Var{Name: name, Offset: int(offset)}, nil
}

func writeVars(w io.Writer, vs []Var) error {
	if err := writeUint32(w, uint32(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := writeVar(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readVars(r io.Reader) ([]Var, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	vs := make([]Var, n)
	for i := range vs {
		if vs[i], err = readVar(r); err != nil {
			return nil, err
		}
	}
	return vs, nil
}

func writeFunc(w io.Writer, fn Func) error {
	if err := writeString(w, fn.Name); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(fn.CodeStart)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(fn.CodeEnd)); err != nil {
		return err
	}
	if err := writeVars(w, fn.Args); err != nil {
		return err
	}
	if err := writeVars(w, fn.Locals); err != nil {
		return err
	}
	var varargs uint32
	if fn.IsVarargs {
		varargs = 1
	}
	return writeUint32(w, varargs)
}

func readFunc(r io.Reader) (Func, error) {
	var fn Func
	var err error
	if fn.Name, err = readString(r); err != nil {
		return fn, err
	}
	start, err := readUint32(r)
	if err != nil {
		return fn, err
	}
	end, err := readUint32(r)
	if err != nil {
		return fn, err
	}
	fn.CodeStart, fn.CodeEnd = int(start), int(end)
	if fn.Args, err = readVars(r); err != nil {
		return fn, err
	}
	if fn.Locals, err = readVars(r); err != nil {
		return fn, err
	}
	varargs, err := readUint32(r)
	if err != nil {
		return fn, err
	}
	fn.IsVarargs = varargs != 0
	return fn, nil
}
