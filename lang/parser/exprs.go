package parser

import (
	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/token"
)

// parseExpr implements:
//
//	Expr -> [`not`] [`-`] Primary (Op Expr)?
//
// via precedence climbing over the table in spec.md 4.3.
func (p *parser) parseExpr() ast.Expr {
	return p.parseBinExpr(0)
}

// parseBinExpr parses an expression where any binary operator it consumes
// must bind tighter than minPrec (precedence climbing / Pratt parsing).
func (p *parser) parseBinExpr(minPrec int) ast.Expr {
	left := p.parseUnaryExpr()

	for token.IsBinaryOp(p.tok) && token.Precedence(p.tok) > minPrec {
		op := p.tok
		opPos := p.val.Pos
		p.advance()
		right := p.parseBinExpr(token.Precedence(op))
		left = &ast.BinOpExpr{Left: left, Op: op, OpPos: opPos, Right: right}
	}
	return left
}

// parseUnaryExpr handles the prefix `not` and unary `-` forms, which
// produce a UnaryOp node (spec.md 4.3).
func (p *parser) parseUnaryExpr() ast.Expr {
	if p.tok == token.NOT || p.tok == token.MINUS {
		op := p.tok
		opPos := p.val.Pos
		p.advance()
		right := p.parseUnaryExpr()
		return &ast.UnaryOpExpr{Op: op, OpPos: opPos, Right: right}
	}
	return p.parsePostfixExpr()
}

// parsePostfixExpr parses a Primary and then any trailing `[` Expr `]` or
// `(` Args `)` suffixes, left-associatively (call sites and subscripts are
// post-fix on any expression, spec.md 4.3).
func (p *parser) parsePostfixExpr() ast.Expr {
	e := p.parsePrimaryExpr()
	for {
		switch p.tok {
		case token.LBRACK:
			lbrack := p.val.Pos
			p.advance()
			idx := p.parseExpr()
			rbrack := p.expect(token.RBRACK)
			e = &ast.DerefExpr{Left: e, Lbrack: lbrack, Index: idx, Rbrack: rbrack}
		case token.LPAREN:
			lparen := p.val.Pos
			p.advance()
			var args []ast.Expr
			if p.tok != token.RPAREN {
				args = p.parseArgList()
			}
			rparen := p.expect(token.RPAREN)
			e = &ast.CallExpr{Callee: e, Lparen: lparen, Args: args, Rparen: rparen}
		default:
			return e
		}
	}
}

func (p *parser) parseArgList() []ast.Expr {
	args := []ast.Expr{p.parseExpr()}
	for p.found(token.COMMA) {
		args = append(args, p.parseExpr())
	}
	return args
}

// parsePrimaryExpr implements:
//
//	Primary -> `(`Expr`)` | IDENT | LITERAL | `none`
func (p *parser) parsePrimaryExpr() ast.Expr {
	switch p.tok {
	case token.LPAREN:
		p.advance()
		e := p.parseExpr()
		p.expect(token.RPAREN)
		return e
	case token.IDENT:
		e := &ast.IdentExpr{NamePos: p.val.Pos, Name: p.val.Raw}
		p.advance()
		return e
	case token.INT:
		e := &ast.LitIntExpr{ValPos: p.val.Pos, Value: p.val.Int}
		p.advance()
		return e
	case token.FLOAT:
		e := &ast.LitFloatExpr{ValPos: p.val.Pos, Value: p.val.Float}
		p.advance()
		return e
	case token.STRING:
		e := &ast.LitStrExpr{ValPos: p.val.Pos, Value: p.val.String}
		p.advance()
		return e
	case token.NONE:
		e := &ast.NoneExpr{NonePos: p.val.Pos}
		p.advance()
		return e
	default:
		p.errorKind(p.val.Pos, "expecting_lit_or_ident", "expected an expression")
		panic(errPanicMode)
	}
}
