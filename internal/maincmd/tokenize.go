package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nano/lang/scanner"
	"github.com/mna/nano/lang/token"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(stdio, args...)
}

// TokenizeFiles scans each file independently (tokenize never follows
// imports, unlike the later phases) and prints one "file:line:col: token raw"
// line per token (raw omitted when empty), matching the teacher's tokenize
// command's output shape.
func TokenizeFiles(stdio mainer.Stdio, files ...string) error {
	fset := token.NewFileSet()
	var firstErr error
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		file := fset.AddFile(name, -1, len(src))
		toks, serr := scanner.ScanAll(file, src)
		for _, tv := range toks {
			pos := fset.Position(tv.Value.Pos)
			fmt.Fprintf(stdio.Stdout, "%s: %s", pos, tv.Token)
			if tv.Value.Raw != "" {
				fmt.Fprintf(stdio.Stdout, " %s", tv.Value.Raw)
			}
			fmt.Fprintln(stdio.Stdout)
		}
		if serr != nil {
			scanner.PrintError(stdio.Stderr, serr)
			if firstErr == nil {
				firstErr = serr
			}
		}
	}
	return firstErr
}
