package machine

import "github.com/dolthub/swiss"

// nameIndex maps syscall or function names to their table index,
// backed by a swiss table instead of a plain Go map (grounded on the
// teacher's lang/machine/map.go, which wraps *swiss.Map[Value, Value] for
// Nano's map type — the same dependency repurposed here for a
// string-keyed, append-mostly lookup rather than a user-facing Value type,
// since Nano's Data Model has no map kind). Linking a program against a
// host (VM.Resolve) and finding a function by name (VM.findFunc) both do
// repeated name-to-index lookups over a table that is built once and never
// mutated afterward, which is exactly the shape a swiss table is built to
// serve quickly.
type nameIndex struct {
	m *swiss.Map[string, int]
}

func newNameIndex(names []string) *nameIndex {
	idx := &nameIndex{m: swiss.NewMap[string, int](uint32(len(names)))}
	for i, n := range names {
		idx.m.Put(n, i)
	}
	return idx
}

func (idx *nameIndex) lookup(name string) (int, bool) {
	return idx.m.Get(name)
}
