package compiler

import (
	"fmt"
	"math"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/precodegen"
	"github.com/mna/nano/lang/token"
)

// lineEntry is one row of the Program's line table (spec.md 3: line_table
// maps a code offset to (file, line)).
type lineEntry struct {
	offset int
	file   string
	line   int
}

// callFixup records a CALL instruction whose target operand could not be
// filled in when the instruction was emitted, because the callee's
// code_start is only known once every function has been emitted (functions
// may call each other in either declaration order, including forward and
// mutually-recursive calls).
type callFixup struct {
	operandPos int
	target     *ast.FuncDecl
}

// emitter holds the state threaded through a single Generate call: the
// growing code vector, the string and syscall tables being built alongside
// it, and the line table and call fixups collected as functions are
// visited. It plays the role the teacher's pcomp/fcomp pair as, but is a
// flat linear emitter with label backpatching rather than a CFG of basic
// blocks with jump threading: spec.md 4.7's control-flow lowering table
// already prescribes exact JMP/TJMP/FJMP patterns per construct, so there
// is no block graph to build or optimize — backpatching the handful of
// forward jumps if/while/for actually produce is simpler and sufficient.
type emitter struct {
	fset *token.FileSet

	code  []byte
	lines []lineEntry
	lastLine int
	lastFile string

	strings   []string
	stringIdx map[string]int

	syscalls   []*ast.FuncDecl
	syscallIdx map[*ast.FuncDecl]int

	fixups []callFixup

	curFunc *ast.FuncDecl // enclosing function, for Return's frame_size
}

// Generate compiles progs (already resolved and pre-codegen'd) into a
// Program. optimizer.Optimize may or may not have run over progs first;
// codegen does not care either way, it only requires that the resolver and
// precodegen.Run have already annotated every Decl, Offset and StackSize.
func Generate(fset *token.FileSet, progs []*ast.Program, pre *precodegen.Result) *Program {
	e := &emitter{
		fset:       fset,
		stringIdx:  make(map[string]int),
		syscallIdx: make(map[*ast.FuncDecl]int),
	}
	e.gatherSyscalls(progs)

	for _, fn := range pre.Functions {
		if fn == pre.Init {
			continue // emitted last, see below
		}
		e.genFunc(fn)
	}
	e.genInit(pre.Init, pre.Globals)

	for _, fx := range e.fixups {
		putOperand(e.code[fx.operandPos:], int32(fx.target.CodeStart))
	}

	return e.buildProgram(pre)
}

// gatherSyscalls assigns each distinct syscall referenced anywhere in progs
// a stable index, in first-encounter order (declaration order of the files
// in progs, then source order within a file) — spec.md 4.8's "syscalls
// added to the program's syscall table by name".
func (e *emitter) gatherSyscalls(progs []*ast.Program) {
	var visitor ast.VisitorFunc
	visitor = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return nil
		}
		if call, ok := n.(*ast.CallExpr); ok && call.Decl != nil && call.Decl.IsSyscall {
			if _, ok := e.syscallIdx[call.Decl]; !ok {
				e.syscallIdx[call.Decl] = len(e.syscalls)
				e.syscalls = append(e.syscalls, call.Decl)
			}
		}
		return visitor
	}
	for _, prog := range progs {
		for _, decl := range prog.Decls {
			if fn, ok := decl.(*ast.FuncDecl); ok && fn.Body != nil {
				ast.Walk(visitor, fn.Body)
			}
		}
	}
}

func (e *emitter) pos() int { return len(e.code) }

func (e *emitter) emitOp(op Opcode) {
	e.code = append(e.code, byte(op))
}

func (e *emitter) emitOperand(v int32) {
	var buf [operandSize]byte
	putOperand(buf[:], v)
	e.code = append(e.code, buf[:]...)
}

// emit0 appends a no-operand instruction.
func (e *emitter) emit0(op Opcode) { e.emitOp(op) }

// emit1 appends a single-operand instruction.
func (e *emitter) emit1(op Opcode, a int32) {
	e.emitOp(op)
	e.emitOperand(a)
}

// emit2 appends a two-operand instruction.
func (e *emitter) emit2(op Opcode, a, b int32) {
	e.emitOp(op)
	e.emitOperand(a)
	e.emitOperand(b)
}

// emitJumpPlaceholder emits op with a zero operand and returns the offset
// of that operand, to be filled in later by patchJump once the jump target
// is known (a forward jump).
func (e *emitter) emitJumpPlaceholder(op Opcode) int {
	e.emitOp(op)
	pos := e.pos()
	e.emitOperand(0)
	return pos
}

func (e *emitter) patchJump(operandPos, target int) {
	putOperand(e.code[operandPos:], int32(target))
}

func (e *emitter) internString(s string) int {
	if i, ok := e.stringIdx[s]; ok {
		return i
	}
	i := len(e.strings)
	e.strings = append(e.strings, s)
	e.stringIdx[s] = i
	return i
}

// markLine appends a line-table entry for pos if it resolves to a source
// line distinct from the most recently recorded one, coalescing runs of
// instructions from the same source line into a single row (spec.md 3's
// line_table maps code offset to (file, line), it does not require one
// entry per instruction).
func (e *emitter) markLine(pos token.Pos) {
	if !pos.IsValid() {
		return
	}
	p := e.fset.Position(pos)
	if !p.IsValid() {
		return
	}
	if p.Line == e.lastLine && p.Filename == e.lastFile {
		return
	}
	e.lastLine, e.lastFile = p.Line, p.Filename
	e.lines = append(e.lines, lineEntry{offset: e.pos(), file: p.Filename, line: p.Line})
}

func binOpcode(tok token.Token) Opcode {
	switch tok {
	case token.PLUS:
		return ADD
	case token.MINUS:
		return SUB
	case token.STAR:
		return MUL
	case token.SLASH:
		return DIV
	case token.PERCENT:
		return MOD
	case token.AND:
		return AND
	case token.OR:
		return OR
	case token.EQEQ:
		return EQ
	case token.LT:
		return LT
	case token.GT:
		return GT
	case token.LE:
		return LEQ
	case token.GE:
		return GEQ
	default:
		panic(fmt.Sprintf("compiler: unhandled binary operator %v", tok))
	}
}

// genExpr emits code that evaluates e, leaving exactly one value on the
// stack (spec.md 4.7's expression invariant).
func (e *emitter) genExpr(ex ast.Expr) {
	switch x := ex.(type) {
	case *ast.LitIntExpr:
		e.emit1(NEW_INT, int32(x.Value))

	case *ast.LitFloatExpr:
		e.emit1(NEW_FLT, int32(math.Float32bits(float32(x.Value))))

	case *ast.LitStrExpr:
		e.emit1(NEW_STR, int32(e.internString(x.Value)))

	case *ast.NoneExpr:
		e.emit0(NEW_NONE)

	case *ast.IdentExpr:
		e.genLoad(x.Decl)

	case *ast.BinOpExpr:
		e.genExpr(x.Left)
		e.genExpr(x.Right)
		e.emit0(binOpcode(x.Op))

	case *ast.UnaryOpExpr:
		e.genExpr(x.Right)
		switch x.Op {
		case token.MINUS:
			e.emit0(NEG)
		case token.NOT:
			e.emit0(NOT)
		default:
			panic(fmt.Sprintf("compiler: unhandled unary operator %v", x.Op))
		}

	case *ast.CallExpr:
		e.genCall(x)

	case *ast.DerefExpr:
		e.genExpr(x.Left)
		e.genExpr(x.Index)
		e.emit0(GETA)

	default:
		panic(fmt.Sprintf("compiler: %T cannot appear as a general expression (spec.md 4.3's grammar never produces it here)", ex))
	}
}

func (e *emitter) genLoad(d *ast.VarDecl) {
	switch d.Scope {
	case ast.Global:
		e.emit1(GETG, int32(d.Offset))
	default: // Local, Arg: both live in the current frame
		e.emit1(GETV, int32(d.Offset))
	}
}

func (e *emitter) genStore(d *ast.VarDecl) {
	switch d.Scope {
	case ast.Global:
		e.emit1(SETG, int32(d.Offset))
	default:
		e.emit1(SETV, int32(d.Offset))
	}
}

// genCall emits argument evaluation followed by the appropriate dispatch
// instruction: CALL for a direct call to a user function (target fixed up
// once every function has been emitted), SCALL for a direct call to a
// syscall (index known immediately, gathered up front), or ICALL when the
// callee is not a resolved direct reference (ex.Decl == nil) — an indirect
// call through a function or syscall value produced by some other
// expression, such as the callee of `a[0](1)` or `f()(2)`. No Nano
// expression yields such a value (codegen never emits NEW_FUNC or
// NEW_SCALL, and the resolver rejects a bare function name), so an ICALL
// emitted here always fails at run time with a not-callable error; it is
// still implemented because it is part of spec.md 4.7's normative opcode
// set and the VM/assembler must support it regardless of what this
// particular front end can produce.
func (e *emitter) genCall(call *ast.CallExpr) {
	for _, a := range call.Args {
		e.genExpr(a)
	}
	argc := int32(len(call.Args))

	if call.Decl == nil {
		e.genExpr(call.Callee)
		e.emit1(ICALL, argc)
		return
	}

	if call.Decl.IsSyscall {
		idx := e.syscallIdx[call.Decl]
		e.emit2(SCALL, argc, int32(idx))
		return
	}

	e.emitOp(CALL)
	e.emitOperand(argc)
	targetPos := e.pos()
	e.emitOperand(0)
	e.fixups = append(e.fixups, callFixup{operandPos: targetPos, target: call.Decl})
}

// genBlock emits every statement of b in order.
func (e *emitter) genBlock(b *ast.Block) {
	for _, stmt := range b.Stmts {
		e.genStmt(stmt)
	}
}

func (e *emitter) genStmt(stmt ast.Stmt) {
	start, _ := stmt.Span()
	e.markLine(start)

	switch s := stmt.(type) {
	case *ast.VarDeclStmt:
		e.genVarDecl(s.Decl)

	case *ast.IfStmt:
		e.genExpr(s.Cond)
		fjmp := e.emitJumpPlaceholder(FJMP)
		e.genBlock(s.Then)
		if s.Else != nil {
			jmp := e.emitJumpPlaceholder(JMP)
			e.patchJump(fjmp, e.pos())
			e.genBlock(s.Else)
			e.patchJump(jmp, e.pos())
		} else {
			e.patchJump(fjmp, e.pos())
		}

	case *ast.WhileStmt:
		toCond := e.emitJumpPlaceholder(JMP)
		l0 := e.pos()
		e.genBlock(s.Body)
		e.patchJump(toCond, e.pos())
		e.genExpr(s.Cond)
		e.emit1(TJMP, int32(l0))

	case *ast.ForStmt:
		e.genExpr(s.Start)
		e.genStore(s.LoopVar)
		toCond := e.emitJumpPlaceholder(JMP)
		l0 := e.pos()
		e.genBlock(s.Body)
		e.genLoad(s.LoopVar)
		e.emit1(NEW_INT, 1)
		e.emit0(ADD)
		e.genStore(s.LoopVar)
		e.patchJump(toCond, e.pos())
		e.genLoad(s.LoopVar)
		e.genExpr(s.End)
		e.emit0(LT)
		e.emit1(TJMP, int32(l0))

	case *ast.ReturnStmt:
		if s.Expr != nil {
			e.genExpr(s.Expr)
		} else {
			e.emit0(NEW_NONE)
		}
		e.emit1(RET, int32(len(e.curFunc.Args)+e.curFunc.StackSize))

	case *ast.AssignVarStmt:
		e.genExpr(s.Expr)
		e.genStore(s.Decl)

	case *ast.AssignArrayStmt:
		e.genLoad(s.Decl)
		e.genExpr(s.Index)
		e.genExpr(s.Expr)
		e.emit0(SETA)

	case *ast.AssignMemberStmt:
		panic("compiler: member assignment has no codegen; spec.md 4.3's grammar never produces AssignMemberStmt")

	case *ast.ExprStmt:
		e.genExpr(s.Call)
		e.emit1(POP, 1)

	default:
		panic(fmt.Sprintf("compiler: unhandled statement type %T", stmt))
	}
}

// genVarDecl emits a local variable declaration used as a statement:
// allocating and storing an array, or evaluating and storing a scalar
// initializer. A local with no initializer emits no code: its frame slot
// holds none from the function's LOCALS n prologue, unless an earlier
// declaration sharing the same offset, or an earlier pass through an
// enclosing loop body, has already stored a value into it.
func (e *emitter) genVarDecl(d *ast.VarDecl) {
	if d.IsArray() {
		size := d.Size.(*ast.LitIntExpr).Value
		e.emit1(NEW_ARY, int32(size))
		e.genStore(d)
		if d.ArrayInit != nil {
			for i, item := range d.ArrayInit.Items {
				e.genLoad(d)
				e.emit1(NEW_INT, int32(i))
				e.genExpr(item)
				e.emit0(SETA)
			}
		}
		return
	}
	if d.Expr != nil {
		e.genExpr(d.Expr)
		e.genStore(d)
	}
}

// genFunc emits fn's prologue, body and fallthrough epilogue (spec.md
// 4.7). The epilogue is always appended, never conditioned on whether the
// body's last statement already returns: if it does, that RET already
// transferred control back to the caller and the epilogue bytes following
// it are simply unreachable, which is simpler and always correct — unlike
// trying to prove statically that every path through an arbitrary
// if/while/for nest returns.
func (e *emitter) genFunc(fn *ast.FuncDecl) {
	if fn.IsSyscall {
		return
	}
	prevFunc := e.curFunc
	e.curFunc = fn
	defer func() { e.curFunc = prevFunc }()

	fn.CodeStart = e.pos()
	if fn.StackSize > 0 {
		e.emit1(LOCALS, int32(fn.StackSize))
	}
	if fn.Body != nil {
		e.genBlock(fn.Body)
	}
	e.emit1(NEW_INT, 0)
	e.emit1(RET, int32(len(fn.Args)+fn.StackSize))
	fn.CodeEnd = e.pos()
}

// genInit emits @init: GLOBALS N, then for every global array (initialized
// or not) an allocation stored to its global slot, then the synthesized
// scalar/array-item assignments precodegen.synthesizeInit already built as
// init.Body, then a standard return (spec.md 4.6, 4.7's "@init prologue").
func (e *emitter) genInit(init *ast.FuncDecl, globals []*ast.VarDecl) {
	prevFunc := e.curFunc
	e.curFunc = init
	defer func() { e.curFunc = prevFunc }()

	init.CodeStart = e.pos()

	n := 0
	for _, g := range globals {
		if !g.IsConst {
			n++
		}
	}
	e.emit1(GLOBALS, int32(n))

	for _, g := range globals {
		if g.IsConst || !g.IsArray() {
			continue
		}
		size := g.Size.(*ast.LitIntExpr).Value
		e.emit1(NEW_ARY, int32(size))
		e.genStore(g)
	}

	e.genBlock(init.Body)

	e.emit1(NEW_INT, 0)
	e.emit1(RET, int32(len(init.Args)+init.StackSize))
	init.CodeEnd = e.pos()
}
