package source_test

import (
	"errors"
	"testing"

	"github.com/mna/nano/internal/source"
	"github.com/mna/nano/lang/token"
	"github.com/stretchr/testify/require"
)

// memLoader is an in-memory Loader implementation, exercising spec.md §9's
// "small trait/interface over load(path) -> bytes" Open Question.
type memLoader map[string]string

func (m memLoader) Load(path string) ([]byte, error) {
	src, ok := m[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return []byte(src), nil
}

func TestLoadFollowsImports(t *testing.T) {
	files := memLoader{
		"main.nano": "import \"lib.nano\"\nfunction main()\nreturn 1\nend\n",
		"lib.nano":  "function helper()\nreturn 2\nend\n",
	}
	fset := token.NewFileSet()
	mgr := source.NewManager(fset, files)
	progs, err := mgr.Load("main.nano")
	require.NoError(t, err)
	require.Len(t, progs, 2)
	require.Equal(t, "main.nano", progs[0].Name)
	require.Equal(t, "lib.nano", progs[1].Name)
}

func TestLoadDeduplicatesCaseInsensitiveImports(t *testing.T) {
	files := memLoader{
		"main.nano": "import \"lib.nano\"\nimport \"LIB.nano\"\nfunction main()\nreturn 1\nend\n",
		"lib.nano":  "function helper()\nreturn 2\nend\n",
	}
	fset := token.NewFileSet()
	mgr := source.NewManager(fset, files)
	progs, err := mgr.Load("main.nano")
	require.NoError(t, err)
	require.Len(t, progs, 2)
}

func TestLoadReportsBadImport(t *testing.T) {
	files := memLoader{
		"main.nano": "import \"missing.nano\"\nfunction main()\nreturn 1\nend\n",
	}
	fset := token.NewFileSet()
	mgr := source.NewManager(fset, files)
	_, err := mgr.Load("main.nano")
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad_import")
}
