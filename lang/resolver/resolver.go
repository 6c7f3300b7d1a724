// Package resolver implements the semantic passes that run between parsing
// and codegen (spec.md 4.4): scoped declaration annotation, global constant
// folding, const propagation, duplicate-declaration checks, call arity,
// type-usage checks and array-size checks.
package resolver

import (
	"fmt"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/token"
)

// SyscallLookup reports whether name is a host-provided syscall, and if so
// its declared argument count and whether it accepts a variable number of
// arguments. It plays the same role the teacher's resolver gives
// isPredeclared/isUniversal: a caller-supplied name space the resolver
// consults but does not own.
type SyscallLookup func(name string) (argc int, isVarargs bool, ok bool)

// scope is a block-scoped symbol table, chained to its parent.
type scope struct {
	parent *scope
	names  map[string]*ast.VarDecl
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]*ast.VarDecl)}
}

func (s *scope) lookup(name string) *ast.VarDecl {
	for sc := s; sc != nil; sc = sc.parent {
		if d, ok := sc.names[name]; ok {
			return d
		}
	}
	return nil
}

// declareLocal adds name to the innermost scope, reporting
// var_already_exists if it is already declared in that exact scope (shadowing
// an outer scope's name is allowed, spec.md 4.4 pass 4 only forbids
// duplicates "in the same scope").
func (s *scope) declareLocal(r *resolver, d *ast.VarDecl) {
	if _, dup := s.names[d.Name]; dup {
		r.errorKind(d.VarPos, "var_already_exists", fmt.Sprintf("variable %q already declared in this scope", d.Name))
		return
	}
	s.names[d.Name] = d
}

// resolver carries state across a single Resolve call. A resolver is not
// reused across files: each call to Resolve constructs a fresh one.
type resolver struct {
	fset       *token.FileSet
	errors     token.ErrorList
	isSyscall  SyscallLookup
	globals    *scope
	funcs      map[string]*ast.FuncDecl
	syscallDef map[string]*ast.FuncDecl // synthesized FuncDecl per referenced syscall name
}

// Resolve runs all of spec.md 4.4's semantic passes over progs (the parsed
// ASTs of every file reachable from the entry point, after import
// resolution) and reports errors through the returned token.ErrorList. A
// nil error means progs is fully annotated and safe to hand to the
// optimizer and codegen.
func Resolve(fset *token.FileSet, progs []*ast.Program, isSyscall SyscallLookup) error {
	if isSyscall == nil {
		isSyscall = func(string) (int, bool, bool) { return 0, false, false }
	}

	r := &resolver{
		fset:       fset,
		isSyscall:  isSyscall,
		globals:    newScope(nil),
		funcs:      make(map[string]*ast.FuncDecl),
		syscallDef: make(map[string]*ast.FuncDecl),
	}

	r.collectTopLevel(progs)
	for _, prog := range progs {
		r.resolveProgram(prog)
	}

	r.foldGlobalInitializers()
	r.propagateConsts(progs)
	r.checkArity(progs)
	r.checkArraySizes(progs)

	r.errors.Sort()
	return r.errors.Err()
}

// collectTopLevel populates the global variable and function symbol tables
// from every file (spec.md 4.4 pass 1 and pass 4, the declaration half).
// Running it before annotating any function body lets a function call or
// reference a global/function declared later in the same file, or in
// another file altogether (Nano has no forward-declaration requirement).
func (r *resolver) collectTopLevel(progs []*ast.Program) {
	for _, prog := range progs {
		for _, decl := range prog.Decls {
			switch d := decl.(type) {
			case *ast.VarDecl:
				r.globals.declareLocal(r, d)
			case *ast.FuncDecl:
				if _, dup := r.funcs[d.Name]; dup {
					r.errorKind(d.FuncPos, "function_already_exists", fmt.Sprintf("function %q already declared", d.Name))
					continue
				}
				r.funcs[d.Name] = d
			case *ast.ImportDecl:
				// Already followed by the source manager, which loaded the imported
				// file into progs; the node stays in Decls and needs no resolution.
			}
		}
	}
}

func (r *resolver) resolveProgram(prog *ast.Program) {
	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.VarDecl:
			// Global initializers and sizes may reference other globals/consts;
			// resolve their expressions in the global scope.
			r.resolveExprIn(r.globals, d.Expr)
			r.resolveExprIn(r.globals, d.Size)
			if d.ArrayInit != nil {
				for _, it := range d.ArrayInit.Items {
					r.resolveExprIn(r.globals, it)
				}
			}
		case *ast.FuncDecl:
			r.resolveFunc(d)
		}
	}
}

func (r *resolver) resolveFunc(fn *ast.FuncDecl) {
	fnScope := newScope(r.globals)
	for _, arg := range fn.Args {
		fnScope.declareLocal(r, arg)
	}
	if fn.Body != nil {
		r.resolveBlock(fn.Body, fnScope)
	}
}

// resolveBlock opens a new nested scope, matching spec.md 4.4's "scopes open
// on function, if, while, for, and block".
func (r *resolver) resolveBlock(b *ast.Block, parent *scope) {
	sc := newScope(parent)
	for _, stmt := range b.Stmts {
		r.resolveStmt(stmt, sc)
	}
}

func (r *resolver) resolveStmt(stmt ast.Stmt, sc *scope) {
	switch s := stmt.(type) {
	case *ast.VarDeclStmt:
		r.resolveExprIn(sc, s.Decl.Expr)
		r.resolveExprIn(sc, s.Decl.Size)
		if s.Decl.ArrayInit != nil {
			for _, it := range s.Decl.ArrayInit.Items {
				r.resolveExprIn(sc, it)
			}
		}
		s.Decl.Scope = ast.Local
		sc.declareLocal(r, s.Decl)

	case *ast.IfStmt:
		r.resolveExprIn(sc, s.Cond)
		r.resolveBlock(s.Then, sc)
		if s.Else != nil {
			r.resolveBlock(s.Else, sc)
		}

	case *ast.WhileStmt:
		r.resolveExprIn(sc, s.Cond)
		r.resolveBlock(s.Body, sc)

	case *ast.ForStmt:
		r.resolveExprIn(sc, s.Start)
		r.resolveExprIn(sc, s.End)
		forScope := newScope(sc)
		s.LoopVar.Scope = ast.Local
		forScope.declareLocal(r, s.LoopVar)
		for _, inner := range s.Body.Stmts {
			r.resolveStmt(inner, forScope)
		}

	case *ast.ReturnStmt:
		r.resolveExprIn(sc, s.Expr)

	case *ast.AssignVarStmt:
		r.resolveExprIn(sc, s.Expr)
		s.Decl = r.lookupVar(sc, s.NamePos, s.Name)
		if s.Decl != nil {
			if s.Decl.IsConst {
				r.errorKind(s.NamePos, "cant_assign_const", fmt.Sprintf("cannot assign to const %q", s.Name))
			} else if s.Decl.IsArray() {
				r.errorKind(s.NamePos, "ident_is_array_not_var", fmt.Sprintf("%q is an array, cannot assign as scalar", s.Name))
			}
		}

	case *ast.AssignArrayStmt:
		r.resolveExprIn(sc, s.Index)
		r.resolveExprIn(sc, s.Expr)
		s.Decl = r.lookupVar(sc, s.NamePos, s.Name)
		if s.Decl != nil && !s.Decl.IsArray() {
			r.errorKind(s.NamePos, "array_requires_subscript", fmt.Sprintf("%q is not an array", s.Name))
		}

	case *ast.AssignMemberStmt:
		r.resolveExprIn(sc, s.Expr)
		s.Decl = r.lookupVar(sc, s.NamePos, s.Name)

	case *ast.ExprStmt:
		r.resolveExprIn(sc, s.Call)
	}
}

// lookupVar resolves name in sc, reporting unknown_variable if absent.
func (r *resolver) lookupVar(sc *scope, pos token.Pos, name string) *ast.VarDecl {
	d := sc.lookup(name)
	if d == nil {
		r.errorKind(pos, "unknown_variable", fmt.Sprintf("unknown variable %q", name))
	}
	return d
}

func (r *resolver) errorKind(pos token.Pos, kind, msg string) {
	file := r.fset.File(pos)
	var p token.Position
	if file != nil {
		p = file.Position(pos)
	}
	r.errors.Add(p, fmt.Sprintf("%s: %s", kind, msg))
}
