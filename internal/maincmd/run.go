package maincmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/mainer"
	"github.com/mna/nano/internal/builtins"
	"github.com/mna/nano/lang/machine"
)

// Run compiles files and their imports to a Program, resolves the built-in
// syscalls against a fresh VM, initializes globals via @init, then calls
// main and prints its result the way original_source's driver's
// print_result does ("exit: <value>").
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	p, err := buildProgram(stdio, c.Optimize, args...)
	if err != nil {
		return err
	}

	vm := machine.NewVM(p, 0)
	builtins.Register(vm)

	if err := vm.CallInit(); err != nil {
		fmt.Fprintf(stdio.Stderr, "failed while executing @init: %s\n", err)
		return err
	}

	th, err := vm.NewCall("main", nil)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	th.UserData = stdio.Stdout
	th.MaxCycles = c.MaxCycles
	if err := setBreakpoints(th, c.Break); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	for !th.Finished() && th.Err() == nil {
		th.Resume(1 << 20)
	}
	if err := th.Err(); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	fmt.Fprintf(stdio.Stdout, "exit: %s\n", th.Result())
	return nil
}

// setBreakpoints parses --break flags of the form "file:line" and installs
// them on th before it starts executing (spec.md 4.10's breakpoint set).
func setBreakpoints(th *machine.Thread, specs []string) error {
	for _, spec := range specs {
		file, line, err := parseBreakSpec(spec)
		if err != nil {
			return err
		}
		th.SetBreakpoint(file, line)
	}
	return nil
}

func parseBreakSpec(spec string) (file string, line int, err error) {
	idx := strings.LastIndexByte(spec, ':')
	if idx < 0 {
		return "", 0, fmt.Errorf("invalid --break %q, want file:line", spec)
	}
	file = spec[:idx]
	line, err = strconv.Atoi(spec[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid --break %q: %w", spec, err)
	}
	return file, line, nil
}
