// Package source implements spec.md C1, the source manager: it owns every
// file reachable from a set of entry files by following `import "path"`
// declarations, resolving each path relative to its importer's directory,
// and feeds the fixed set to the parser/resolver/codegen pipeline.
//
// Grounded on the teacher's lang/parser file-loading loop (reading one file
// per command-line argument, one FileSet shared across all of them)
// generalized into a standalone component, since the teacher compiles a
// fixed file list and never follows imports; the queue-until-fixed-point
// algorithm itself is spec.md 4.3's own description of import semantics
// ("the source manager appends the file to its queue and the compile
// driver iterates until all files are lexed and parsed").
package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/parser"
	"github.com/mna/nano/lang/token"
)

// Loader abstracts reading a source file's bytes by path, so tests can
// supply an in-memory implementation without touching the filesystem
// (spec.md §9 Open Question: "File I/O for imports: a small trait/interface
// over load(path) -> bytes").
type Loader interface {
	Load(path string) ([]byte, error)
}

// osLoader reads files from disk via os.ReadFile.
type osLoader struct{}

func (osLoader) Load(path string) ([]byte, error) { return os.ReadFile(path) }

// Manager owns every file reachable from a set of entry points by following
// import declarations. Programs are returned in load order (entry files
// first, then each file's imports as they are discovered), which is also
// the order lang/resolver and lang/compiler expect: spec.md 4.6's @init
// synthesis runs global declarations in file order.
type Manager struct {
	fset   *token.FileSet
	loader Loader

	// seen maps a canonical key (case-insensitive, cleaned path with
	// backslashes turned into forward slashes) to true once the file has
	// been dequeued for loading, so importing
	// the same file twice under different spellings is a no-op (spec.md
	// 4.3: "duplicates (case-insensitive path match, forward/backward
	// slash agnostic) are ignored").
	seen map[string]bool
}

// NewManager creates a Manager that loads files through loader. A nil
// loader reads from the OS filesystem.
func NewManager(fset *token.FileSet, loader Loader) *Manager {
	if loader == nil {
		loader = osLoader{}
	}
	return &Manager{fset: fset, loader: loader, seen: make(map[string]bool)}
}

// canonicalKey normalizes path for the duplicate-import check.
func canonicalKey(path string) string {
	p := filepath.ToSlash(filepath.Clean(strings.ReplaceAll(path, "\\", "/")))
	return strings.ToLower(p)
}

// Load parses every file reachable from entryPaths, following import
// declarations, and returns the resulting *ast.Program list in load order.
// The returned error, if non-nil, aggregates every parse error and every
// bad_import across the whole closure (spec.md 4.3's bad_import kind).
func (m *Manager) Load(entryPaths ...string) ([]*ast.Program, error) {
	var (
		progs []*ast.Program
		errs  token.ErrorList
		queue []string
	)
	for _, p := range entryPaths {
		queue = append(queue, p)
	}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		key := canonicalKey(path)
		if m.seen[key] {
			continue
		}
		m.seen[key] = true

		src, err := m.loader.Load(path)
		if err != nil {
			errs.Add(token.Position{Filename: path}, "bad_import: "+err.Error())
			continue
		}

		prog, perr := parser.ParseSource(m.fset, path, src)
		if perr != nil {
			if el, ok := perr.(token.ErrorList); ok {
				errs = append(errs, el...)
			} else {
				errs.Add(token.Position{Filename: path}, perr.Error())
			}
		}
		progs = append(progs, prog)

		dir := filepath.Dir(path)
		for _, decl := range prog.Decls {
			imp, ok := decl.(*ast.ImportDecl)
			if !ok {
				continue
			}
			resolved := imp.Path
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(dir, resolved)
			}
			if !m.seen[canonicalKey(resolved)] {
				queue = append(queue, resolved)
			}
		}
	}

	errs.Sort()
	return progs, errs.Err()
}
