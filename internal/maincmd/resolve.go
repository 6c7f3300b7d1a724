package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/nano/internal/builtins"
	"github.com/mna/nano/internal/source"
	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/optimizer"
	"github.com/mna/nano/lang/resolver"
	"github.com/mna/nano/lang/scanner"
	"github.com/mna/nano/lang/token"
)

func (c *Cmd) Resolve(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ResolveFiles(stdio, c.Optimize, args...)
}

// ResolveFiles loads, parses and resolves files and their transitive
// imports, optionally running the optimizer, then prints the (possibly
// folded) tree.
func ResolveFiles(stdio mainer.Stdio, optimize bool, files ...string) error {
	fset := token.NewFileSet()
	mgr := source.NewManager(fset, nil)
	progs, err := mgr.Load(files...)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}

	if rerr := resolver.Resolve(fset, progs, builtins.Lookup); rerr != nil {
		scanner.PrintError(stdio.Stderr, rerr)
		return rerr
	}

	if optimize {
		if oerr := optimizer.Optimize(fset, progs); oerr != nil {
			scanner.PrintError(stdio.Stderr, oerr)
			return oerr
		}
	}

	printer := ast.Printer{Output: stdio.Stdout}
	for _, prog := range progs {
		start, _ := prog.Span()
		file := fset.File(start)
		if perr := printer.Print(prog, file); perr != nil {
			fmt.Fprintln(stdio.Stderr, perr)
			return perr
		}
	}
	return nil
}
