// Package maincmd implements the nano command-line tool: one subcommand per
// compiler phase (tokenize, parse, resolve, compile, disasm) plus run, which
// drives the VM to completion. Grounded on the teacher's
// internal/maincmd.Cmd: reflection-based subcommand dispatch (buildCmds)
// over github.com/mna/mainer's flag parser and Stdio, with the same
// Help/Version/SetArgs/SetFlags/Validate/Main shape.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
)

const binName = "nano"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler, disassembler and VM for the %[1]s scripting language.

The <command> can be one of:
       tokenize                  Run the scanner phase and print the
                                 resulting tokens.
       parse                     Run the parser phase and print the
                                 resulting abstract syntax tree.
       resolve                   Run the resolver phase (and optimizer,
                                 if requested) and print the resolved
                                 abstract syntax tree.
       compile                   Compile to a bytecode Program and write
                                 its binary persisted form to stdout (or
                                 --out).
       disasm                    Print a pseudo-assembly dump of a
                                 compiled Program read from a file.
       run                       Compile and run a program's main
                                 function to completion, printing its
                                 result.
       repl                     Start an interactive line-editing REPL;
                                 takes no file arguments.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --optimize                Run the optimizer between resolve and
                                 codegen (resolve/compile/run).
       --out PATH                Write compile's output to PATH instead
                                 of stdout.
       --max-cycles N            For run, stop with max_cycle_count once
                                 the thread has executed N instructions
                                 (0, the default, means unlimited).
       --break FILE:LINE         For run, set a breakpoint before
                                 starting (repeatable).
       --yaml                    For disasm, print the Program's metadata
                                 (functions, globals, syscalls, strings)
                                 as YAML instead of a pseudo-assembly dump.

More information on the %[1]s repository:
       https://github.com/mna/nano
`, binName)
)

// runEnv mirrors the --max-cycles/--break flags as environment-variable
// overrides (SPEC_FULL.md §A), read with github.com/caarlos0/env/v6 the
// same way the teacher's go.mod carries the dependency transitively but
// never calls it directly; Nano's CLI does the actual env.Parse call.
type runEnv struct {
	MaxCycles uint64   `env:"NANO_MAX_CYCLES"`
	Break     []string `env:"NANO_BREAK" envSeparator:","`
}

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Optimize  bool     `flag:"optimize"`
	Out       string   `flag:"out"`
	MaxCycles uint64   `flag:"max-cycles"`
	Break     []string `flag:"break"`
	YAML      bool     `flag:"yaml"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	if cmdName != "repl" && len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: at least one file must be provided", cmdName)
	}

	var re runEnv
	if err := env.Parse(&re); err == nil {
		if re.MaxCycles != 0 {
			c.MaxCycles = re.MaxCycles
		}
		if len(re.Break) > 0 {
			c.Break = append(c.Break, re.Break...)
		}
	}

	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false, // leaving this here for now in case some flags can use this
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// each command takes care of printing its errors, just return with an error code
		return mainer.Failure
	}
	return mainer.Success
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
