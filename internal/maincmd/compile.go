package maincmd

import (
	"context"
	"io"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nano/internal/builtins"
	"github.com/mna/nano/internal/source"
	"github.com/mna/nano/lang/compiler"
	"github.com/mna/nano/lang/optimizer"
	"github.com/mna/nano/lang/precodegen"
	"github.com/mna/nano/lang/resolver"
	"github.com/mna/nano/lang/scanner"
	"github.com/mna/nano/lang/token"
)

// buildProgram runs every compile-time phase (spec.md §2's data flow: load,
// parse, resolve, optional optimize, pre-codegen, codegen) over files and
// their transitive imports, returning the resulting bytecode Program.
func buildProgram(stdio mainer.Stdio, optimize bool, files ...string) (*compiler.Program, error) {
	fset := token.NewFileSet()
	mgr := source.NewManager(fset, nil)
	progs, err := mgr.Load(files...)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return nil, err
	}

	if rerr := resolver.Resolve(fset, progs, builtins.Lookup); rerr != nil {
		scanner.PrintError(stdio.Stderr, rerr)
		return nil, rerr
	}

	if optimize {
		if oerr := optimizer.Optimize(fset, progs); oerr != nil {
			scanner.PrintError(stdio.Stderr, oerr)
			return nil, oerr
		}
	}

	pre := precodegen.Run(progs)
	p := compiler.Generate(fset, progs, pre)
	if optimize {
		compiler.Peephole(p)
	}
	return p, nil
}

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	p, err := buildProgram(stdio, c.Optimize, args...)
	if err != nil {
		return err
	}

	var out io.Writer = stdio.Stdout
	if c.Out != "" {
		f, ferr := os.Create(c.Out)
		if ferr != nil {
			return ferr
		}
		defer f.Close()
		out = f
	}
	return p.Save(out)
}
