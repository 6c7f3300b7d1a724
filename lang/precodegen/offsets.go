package precodegen

import "github.com/mna/nano/lang/ast"

// offsetAssigner assigns frame-relative local offsets block by block,
// grounded on original_source/source/lib/pre_codegen.cpp's pregen_offset_t:
// a stack of per-scope counters where entering a nested block copies the
// enclosing scope's current counter (so two sibling branches, e.g. an if's
// then/else, may reuse the same offsets — only one of them ever runs) while
// stack_size tracks the high-water mark across the whole function.
type offsetAssigner struct {
	offsets   []int
	maxOffset int
}

func (a *offsetAssigner) reset() {
	a.offsets = []int{0}
	a.maxOffset = 0
}

func (a *offsetAssigner) enterBlock() {
	top := a.offsets[len(a.offsets)-1]
	a.offsets = append(a.offsets, top)
}

func (a *offsetAssigner) exitBlock() {
	a.offsets = a.offsets[:len(a.offsets)-1]
}

func (a *offsetAssigner) declareLocal(d *ast.VarDecl) {
	if d.IsConst {
		return
	}
	top := len(a.offsets) - 1
	d.Offset = a.offsets[top]
	a.offsets[top]++
	if a.offsets[top] > a.maxOffset {
		a.maxOffset = a.offsets[top]
	}
}

// assignBlock walks b, opening a nested scope level and declaring every
// local VarDecl and loop variable it reaches — matching the scopes
// spec.md 4.4 defines (function, if, while, for, block).
func (a *offsetAssigner) assignBlock(b *ast.Block) {
	a.enterBlock()
	defer a.exitBlock()
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *ast.VarDeclStmt:
			a.declareLocal(s.Decl)
		case *ast.IfStmt:
			a.assignBlock(s.Then)
			if s.Else != nil {
				a.assignBlock(s.Else)
			}
		case *ast.WhileStmt:
			a.assignBlock(s.Body)
		case *ast.ForStmt:
			a.enterBlock()
			a.declareLocal(s.LoopVar)
			a.assignBlock(s.Body)
			a.exitBlock()
		}
	}
}

// assignFuncOffsets implements spec.md 4.6's offset assignment for a single
// function: arguments receive negative offsets counted from the frame base
// (arg0 gets -N, ..., argN-1 gets -1), locals receive increasing
// non-negative offsets, and StackSize records the maximum live local
// offset reached by any reachable block.
func assignFuncOffsets(fn *ast.FuncDecl) {
	n := len(fn.Args)
	for i, arg := range fn.Args {
		arg.Offset = -(n - i)
	}
	if fn.Body == nil {
		return
	}
	var a offsetAssigner
	a.reset()
	a.assignBlock(fn.Body)
	fn.StackSize = a.maxOffset
}
