// Package optimizer implements spec.md 4.5's optional AST-level optimization
// pass, run between the resolver and pre-codegen when optimization is
// enabled. It is grounded on the original implementation's opt_post_ret_t
// (original_source/source/lib/optimize.cpp): a single visitor that, for
// every statement list reachable from a function body, drops statements
// after a return and folds constant-foldable subexpressions.
//
// Unlike the resolver's evalConst (which also propagates float values and
// const identifiers to validate global/const declarations), this pass only
// ever sees already-resolved, already-const-propagated trees: every
// remaining foldable expression is therefore a literal combination left
// over from user-written arithmetic, e.g. `x = 2 + 3 * n`'s `2 + 3`
// subexpression. Folding is restricted to integer literals, matching the
// original's int32-only peephole constant folder.
package optimizer

import (
	"fmt"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/token"
)

// opt carries the optimizer's only piece of cross-call state: the file set
// needed to turn a token.Pos into a reportable position, and the errors
// accumulated along the way. A literal division or modulo by zero that
// folding encounters is the one case this pass cannot silently leave
// unfolded and move on from (spec.md 8: "function f() return 1/0 end with
// optimization on -> constant_divide_by_zero"), so Optimize needs the same
// token.ErrorList-returning shape as resolver.Resolve.
type opt struct {
	fset *token.FileSet
	errs token.ErrorList
}

// Optimize runs the optimizer over every function body in progs, in place,
// returning every constant_divide_by_zero it finds along the way. Callers
// only invoke this when optimization is enabled (spec.md 4.5); an
// unoptimized Program is valid input to pre-codegen as-is.
func Optimize(fset *token.FileSet, progs []*ast.Program) error {
	o := &opt{fset: fset}
	for _, prog := range progs {
		for _, decl := range prog.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil {
				continue
			}
			o.optimizeBlock(fn.Body)
		}
	}
	o.errs.Sort()
	return o.errs.Err()
}

func (o *opt) errorKind(pos token.Pos, kind, msg string) {
	file := o.fset.File(pos)
	var p token.Position
	if file != nil {
		p = file.Position(pos)
	}
	o.errs.Add(p, fmt.Sprintf("%s: %s", kind, msg))
}

// optimizeBlock folds and prunes every statement in b, then truncates the
// block at its first Return (the original's simplify_). Nested blocks are
// optimized before pruneIf/pruneWhile decide which branch survives, so a
// branch that is then dropped has still been folded, and a literal
// division by zero inside it is still reported.
func (o *opt) optimizeBlock(b *ast.Block) {
	stmts := make([]ast.Stmt, 0, len(b.Stmts))
	for _, stmt := range b.Stmts {
		stmts = append(stmts, o.optimizeStmt(stmt))
		if _, isReturn := stmt.(*ast.ReturnStmt); isReturn {
			break
		}
	}
	b.Stmts = stmts
}

// optimizeStmt folds every expression reachable from stmt and recurses into
// nested blocks, returning the (possibly pruned) replacement for stmt.
func (o *opt) optimizeStmt(stmt ast.Stmt) ast.Stmt {
	switch s := stmt.(type) {
	case *ast.VarDeclStmt:
		s.Decl.Expr = o.foldExpr(s.Decl.Expr)
		s.Decl.Size = o.foldExpr(s.Decl.Size)
		return s

	case *ast.IfStmt:
		s.Cond = o.foldExpr(s.Cond)
		o.optimizeBlock(s.Then)
		if s.Else != nil {
			o.optimizeBlock(s.Else)
		}
		return pruneIf(s)

	case *ast.WhileStmt:
		s.Cond = o.foldExpr(s.Cond)
		o.optimizeBlock(s.Body)
		return pruneWhile(s)

	case *ast.ForStmt:
		s.Start = o.foldExpr(s.Start)
		s.End = o.foldExpr(s.End)
		o.optimizeBlock(s.Body)
		return s

	case *ast.ReturnStmt:
		s.Expr = o.foldExpr(s.Expr)
		return s

	case *ast.AssignVarStmt:
		s.Expr = o.foldExpr(s.Expr)
		return s

	case *ast.AssignArrayStmt:
		s.Index = o.foldExpr(s.Index)
		s.Expr = o.foldExpr(s.Expr)
		return s

	case *ast.AssignMemberStmt:
		s.Expr = o.foldExpr(s.Expr)
		return s

	case *ast.ExprStmt:
		if ce, ok := o.foldExpr(s.Call).(*ast.CallExpr); ok {
			s.Call = ce
		}
		return s

	default:
		return stmt
	}
}

// litTruth reports whether e is a literal int whose truth value is known,
// matching the VM's integer-truthiness rule (spec.md 4.10: non-zero is
// true). Floats and strings are never pruned on, since the original only
// folds and branches on int32 constants.
func litTruth(e ast.Expr) (nonZero, known bool) {
	lit, ok := e.(*ast.LitIntExpr)
	if !ok {
		return false, false
	}
	return lit.Value != 0, true
}

// pruneIf implements spec.md 4.5's `if (0) T else E -> E` and
// `if (nonzero) T else E -> T`. Pruning to a single surviving block is
// expressed by rewriting s.Cond to a non-zero literal and collapsing the
// dead branch, rather than changing the statement's type, since ast.IfStmt
// is the only conditional statement shape codegen needs to handle.
func pruneIf(s *ast.IfStmt) ast.Stmt {
	nz, known := litTruth(s.Cond)
	if !known {
		return s
	}
	if nz {
		s.Else = nil
	} else {
		s.Then = s.Else
		if s.Then == nil {
			s.Then = &ast.Block{}
		}
		s.Else = nil
	}
	s.Cond = &ast.LitIntExpr{ValPos: s.Cond.(*ast.LitIntExpr).ValPos, Value: 1}
	return s
}

// pruneWhile implements spec.md 4.5's `while (0) body -> empty`. A
// statically-false loop condition means the loop never runs; it is
// rewritten to an empty block under an always-false guard rather than
// removed from the statement list outright, so any holder of the
// *ast.WhileStmt still refers to a node in the tree.
func pruneWhile(s *ast.WhileStmt) ast.Stmt {
	nz, known := litTruth(s.Cond)
	if !known || nz {
		return s
	}
	s.Body = &ast.Block{}
	return s
}
