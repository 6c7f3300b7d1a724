package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/mna/nano/lang/token"
)

// Printer pretty-prints an AST as an indented tree, one node per line,
// grounded on the teacher's lang/ast Printer (same Walk-driven
// enter/exit-depth-tracking shape), simplified for Nano's much smaller
// grammar: no comment association (Nano's scanner does not preserve
// comments) and no configurable position mode (a node with a valid start
// position is always prefixed with its source line number; a node without
// one gets no prefix).
type Printer struct {
	Output io.Writer
}

// Print walks prog and writes one indented line per node to p.Output.
func (p *Printer) Print(prog *Program, file *token.File) error {
	pp := &printer{w: p.Output, file: file}
	Walk(pp, prog)
	return pp.err
}

type printer struct {
	w     io.Writer
	file  *token.File
	depth int
	err   error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit {
		p.depth--
		return nil
	}
	if p.err != nil {
		return nil
	}

	indent := strings.Repeat("  ", p.depth)
	pos := ""
	if p.file != nil {
		if start, _ := n.Span(); start.IsValid() {
			pos = fmt.Sprintf("%d: ", p.file.Position(start).Line)
		}
	}
	if _, err := fmt.Fprintf(p.w, "%s%s%v\n", indent, pos, n); err != nil {
		p.err = err
		return nil
	}

	p.depth++
	return p
}
