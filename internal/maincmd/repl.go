package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mna/mainer"
	"github.com/mna/nano/internal/builtins"
	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/compiler"
	"github.com/mna/nano/lang/machine"
	"github.com/mna/nano/lang/optimizer"
	"github.com/mna/nano/lang/parser"
	"github.com/mna/nano/lang/precodegen"
	"github.com/mna/nano/lang/resolver"
	"github.com/mna/nano/lang/token"
)

// replFuncName names the synthetic function every REPL line is compiled
// into; "repl" rather than "main" only to keep a stack trace or disasm dump
// unambiguous about where a line came from.
const replFuncName = "repl"

// Repl runs an interactive line-editing front end (SPEC_FULL.md §B): each
// accepted line becomes one statement of a synthetic `function repl()`
// rebuilt and recompiled from scratch on every line, with every
// previously-accepted non-`return` line replayed ahead of it — so a `var`
// declared or a value assigned on one line is still visible on the next.
// A `return <expr>` line is evaluated once against that history and its
// result printed, but never joins the history itself (so returning a value
// does not truncate every line that follows it).
//
// This trades a "real" persistent VM/thread (one Program, one set of
// globals, mutated in place across lines) for a fresh recompile-and-rerun
// per line: Nano's Program is immutable once generated (spec.md 4.8), so
// appending a new global or function to a live Program has no normative
// encoding to target. Recompiling the accumulated source instead stays
// entirely inside the same four-phase pipeline every other command uses,
// at the cost of replaying every line in history on each new line: a
// history line that calls print prints again every time a later line is
// evaluated.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "nano> ",
		Stdin:  io.NopCloser(stdio.Stdin),
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	var history []string
	for {
		line, rerr := rl.Readline()
		switch {
		case errors.Is(rerr, readline.ErrInterrupt):
			continue
		case errors.Is(rerr, io.EOF):
			return nil
		case rerr != nil:
			return rerr
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		isReturn := line == "return" || strings.HasPrefix(line, "return ")

		result, err := evalReplLine(stdio, c.Optimize, history, line, isReturn)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			continue
		}
		if isReturn {
			fmt.Fprintln(stdio.Stdout, result.String())
			continue
		}
		history = append(history, line)
	}
}

// replSource wraps history and line in a single function body, adding a
// trailing `return 0` when line is not itself a return (genFunc would
// otherwise supply one at code offset past end, which is fine too, but an
// explicit one keeps the synthesized source self-contained and readable if
// ever dumped).
func replSource(history []string, line string, isReturn bool) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s()\n", replFuncName)
	for _, h := range history {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	b.WriteString(line)
	b.WriteByte('\n')
	if !isReturn {
		b.WriteString("return 0\n")
	}
	b.WriteString("end\n")
	return []byte(b.String())
}

// evalReplLine compiles replSource(history, line, isReturn) and runs
// replFuncName to completion against a fresh VM, returning its result.
func evalReplLine(stdio mainer.Stdio, optimize bool, history []string, line string, isReturn bool) (machine.Value, error) {
	fset := token.NewFileSet()
	prog, err := parser.ParseSource(fset, "<repl>", replSource(history, line, isReturn))
	if err != nil {
		return machine.Value{}, err
	}
	progs := []*ast.Program{prog}

	if err := resolver.Resolve(fset, progs, builtins.Lookup); err != nil {
		return machine.Value{}, err
	}
	if optimize {
		if err := optimizer.Optimize(fset, progs); err != nil {
			return machine.Value{}, err
		}
	}

	pre := precodegen.Run(progs)
	p := compiler.Generate(fset, progs, pre)

	vm := machine.NewVM(p, 0)
	builtins.Register(vm)
	if err := vm.CallInit(); err != nil {
		return machine.Value{}, err
	}

	th, err := vm.NewCall(replFuncName, nil)
	if err != nil {
		return machine.Value{}, err
	}
	th.UserData = stdio.Stdout
	for !th.Finished() && th.Err() == nil {
		th.Resume(1 << 20)
	}
	if err := th.Err(); err != nil {
		return machine.Value{}, err
	}
	return th.Result(), nil
}
