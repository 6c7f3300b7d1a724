// Package precodegen implements spec.md 4.6, the pass that runs after the
// resolver and (optional) optimizer and before codegen: @init synthesis,
// local/argument/global offset assignment, and function-table gathering.
// It is grounded on original_source/source/lib/pre_codegen.cpp's two
// visitors, pregen_init_t and pregen_offset_t — ported as plain functions
// over []*ast.Program rather than a visitor object, since neither pass
// needs anything the teacher's Visit/Walk double-dispatch buys it (each
// walks a fixed, small shape: top-level decls, then one function body).
package precodegen

import "github.com/mna/nano/lang/ast"

// Result is the pre-codegen-annotated view of a linked program, ready for
// lang/compiler: every non-const VarDecl and FuncDecl reachable from progs
// now carries its Offset/StackSize, and @init has been synthesized to hold
// global initialization code.
type Result struct {
	// Init is the synthesized @init function (spec.md 4.6). Codegen must
	// compile it like any other function and arrange for the VM to run it
	// once before the program's declared entry point.
	Init *ast.FuncDecl

	// Functions holds every non-syscall FuncDecl across all of progs, plus
	// Init, in the order gathered: declaration order within a file, files in
	// the order they appear in progs. This is the Program function table
	// spec.md 4.6 describes; codegen does not need to re-scan progs' Decls.
	Functions []*ast.FuncDecl

	// Globals holds every global VarDecl (including consts, which carry no
	// offset) across all of progs, in declaration order.
	Globals []*ast.VarDecl
}

// Run performs spec.md 4.6's pre-codegen pass over progs, which must
// already have passed resolver.Resolve (and, optionally, been optimized).
// It mutates the AST in place (assigning Offset/StackSize fields) and
// returns the gathered Result.
func Run(progs []*ast.Program) *Result {
	var globals []*ast.VarDecl
	var funcs []*ast.FuncDecl

	for _, prog := range progs {
		for _, decl := range prog.Decls {
			switch d := decl.(type) {
			case *ast.VarDecl:
				globals = append(globals, d)
			case *ast.FuncDecl:
				if !d.IsSyscall {
					funcs = append(funcs, d)
				}
			}
		}
	}

	assignGlobalOffsets(globals)
	for _, fn := range funcs {
		assignFuncOffsets(fn)
	}

	init := synthesizeInit(globals)
	assignFuncOffsets(init)
	funcs = append(funcs, init)

	return &Result{Init: init, Functions: funcs, Globals: globals}
}

// assignGlobalOffsets implements spec.md 4.6's "globals receive increasing
// global offsets": every non-const global gets the next sequential slot
// index, in declaration order. Consts never reach the VM's global slots —
// the resolver already inlined every use of a const to its literal value.
func assignGlobalOffsets(globals []*ast.VarDecl) {
	offset := 0
	for _, d := range globals {
		if d.IsConst {
			continue
		}
		d.Offset = offset
		offset++
	}
}
