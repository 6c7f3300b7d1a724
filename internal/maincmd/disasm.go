package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nano/lang/compiler"
	"gopkg.in/yaml.v3"
)

// Disasm reads a compiled Program (as written by Compile) from each file
// argument and prints its pseudo-assembly dump (lang/compiler.Dasm),
// spec.md C13's disassembler. With --yaml, it instead prints the Program's
// metadata (version, functions, globals, syscalls, strings) as YAML and
// omits the instruction-level dump; the line table is not included in the
// YAML form. The raw Code blob is opaque outside of Dasm's own
// decoding, so the YAML form exists for tools that want the function/global/
// syscall tables structured rather than for round-tripping bytecode.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, name := range args {
		f, err := os.Open(name)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		p, err := compiler.Load(f)
		f.Close()
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}

		if c.YAML {
			enc := yaml.NewEncoder(stdio.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(programMeta(p)); err != nil {
				fmt.Fprintln(stdio.Stderr, err)
				enc.Close()
				return err
			}
			if err := enc.Close(); err != nil {
				fmt.Fprintln(stdio.Stderr, err)
				return err
			}
			continue
		}

		stdio.Stdout.Write(compiler.Dasm(p))
	}
	return nil
}

// programVar/programFunc/programMeta mirror compiler.Var/Func/Program's
// debug-relevant fields with yaml tags, rather than tagging the compiler
// package's own types: Program.Code (a raw byte slice) has no sensible YAML
// form, so the CLI keeps its own projection instead of growing compiler's
// public API to serve one output mode of one subcommand.
type programVar struct {
	Name   string `yaml:"name"`
	Offset int    `yaml:"offset"`
}

type programFunc struct {
	Name      string       `yaml:"name"`
	CodeStart int          `yaml:"code_start"`
	CodeEnd   int          `yaml:"code_end"`
	Args      []programVar `yaml:"args,omitempty"`
	Locals    []programVar `yaml:"locals,omitempty"`
	IsVarargs bool         `yaml:"is_varargs,omitempty"`
}

type programMetaDoc struct {
	Version      int           `yaml:"version"`
	Functions    []programFunc `yaml:"functions"`
	Globals      []programVar  `yaml:"globals,omitempty"`
	SyscallNames []string      `yaml:"syscalls,omitempty"`
	Strings      []string      `yaml:"strings,omitempty"`
}

func programMeta(p *compiler.Program) programMetaDoc {
	doc := programMetaDoc{
		Version:      p.Version,
		SyscallNames: p.SyscallNames,
		Strings:      p.Strings,
	}
	for _, fn := range p.Functions {
		doc.Functions = append(doc.Functions, programFunc{
			Name:      fn.Name,
			CodeStart: fn.CodeStart,
			CodeEnd:   fn.CodeEnd,
			Args:      programVars(fn.Args),
			Locals:    programVars(fn.Locals),
			IsVarargs: fn.IsVarargs,
		})
	}
	for _, g := range p.Globals {
		doc.Globals = append(doc.Globals, programVar{Name: g.Name, Offset: g.Offset})
	}
	return doc
}

func programVars(vs []compiler.Var) []programVar {
	if len(vs) == 0 {
		return nil
	}
	out := make([]programVar, len(vs))
	for i, v := range vs {
		out[i] = programVar{Name: v.Name, Offset: v.Offset}
	}
	return out
}
