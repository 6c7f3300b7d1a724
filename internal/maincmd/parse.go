package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/nano/internal/source"
	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/scanner"
	"github.com/mna/nano/lang/token"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(stdio, args...)
}

// ParseFiles loads files and their transitive imports (internal/source),
// parses them, and prints each resulting Program as an indented tree.
func ParseFiles(stdio mainer.Stdio, files ...string) error {
	fset := token.NewFileSet()
	mgr := source.NewManager(fset, nil)
	progs, err := mgr.Load(files...)

	printer := ast.Printer{Output: stdio.Stdout}
	for _, prog := range progs {
		if prog == nil {
			continue
		}
		start, _ := prog.Span()
		file := fset.File(start)
		if perr := printer.Print(prog, file); perr != nil {
			fmt.Fprintln(stdio.Stderr, perr)
			return perr
		}
	}
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
	}
	return err
}
