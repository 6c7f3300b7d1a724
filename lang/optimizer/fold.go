package optimizer

import (
	"fmt"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/token"
)

// foldExpr recursively constant-folds integer-literal BinOp/UnaryOp
// subexpressions of e, returning e unchanged (structurally rewritten, not
// copied) wherever folding does not apply. It never folds across a
// CallExpr's arguments into the call itself and never folds a CallExpr away
// — calls may have side effects the original's "known-safe subset" must not
// touch (spec.md 4.5).
//
// A literal division or modulo by zero is reported as constant_divide_by_zero
// right here rather than left unfolded for the VM to fail on at run time:
// spec.md 8 is explicit that this is a compile-time diagnostic whenever
// optimization is enabled, on the theory that a division whose operands are
// both literals is always reached if its enclosing statement is (the
// optimizer never folds across a CallExpr, so this can never fire on
// something hidden behind a call that happens not to be invoked).
func (o *opt) foldExpr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch ex := e.(type) {
	case *ast.UnaryOpExpr:
		ex.Right = o.foldExpr(ex.Right)
		if lit, ok := ex.Right.(*ast.LitIntExpr); ok {
			if v, ok := foldUnaryInt(ex.Op, lit.Value); ok {
				return &ast.LitIntExpr{ValPos: ex.OpPos, Value: v}
			}
		}
		return ex

	case *ast.BinOpExpr:
		ex.Left = o.foldExpr(ex.Left)
		ex.Right = o.foldExpr(ex.Right)
		left, lok := ex.Left.(*ast.LitIntExpr)
		right, rok := ex.Right.(*ast.LitIntExpr)
		if lok && rok {
			if (ex.Op == token.SLASH || ex.Op == token.PERCENT) && right.Value == 0 {
				word := "division"
				if ex.Op == token.PERCENT {
					word = "modulo"
				}
				o.errorKind(ex.OpPos, "constant_divide_by_zero", fmt.Sprintf("%s by zero in constant expression", word))
				return ex
			}
			if v, ok := foldBinaryInt(ex.Op, left.Value, right.Value); ok {
				return &ast.LitIntExpr{ValPos: ex.OpPos, Value: v}
			}
		}
		return ex

	case *ast.CallExpr:
		for i, a := range ex.Args {
			ex.Args[i] = o.foldExpr(a)
		}
		return ex

	case *ast.ArrayInitExpr:
		for i, it := range ex.Items {
			ex.Items[i] = o.foldExpr(it)
		}
		return ex

	case *ast.DerefExpr:
		ex.Index = o.foldExpr(ex.Index)
		return ex

	default:
		return e
	}
}

func foldUnaryInt(op token.Token, a int64) (int64, bool) {
	switch op {
	case token.MINUS:
		return -a, true
	case token.NOT:
		if a == 0 {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func foldBinaryInt(op token.Token, a, b int64) (int64, bool) {
	switch op {
	case token.PLUS:
		return a + b, true
	case token.MINUS:
		return a - b, true
	case token.STAR:
		return a * b, true
	case token.SLASH:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case token.PERCENT:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case token.AND:
		return boolInt(a != 0 && b != 0), true
	case token.OR:
		return boolInt(a != 0 || b != 0), true
	case token.LT:
		return boolInt(a < b), true
	case token.GT:
		return boolInt(a > b), true
	case token.LE:
		return boolInt(a <= b), true
	case token.GE:
		return boolInt(a >= b), true
	case token.EQEQ:
		return boolInt(a == b), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
