package machine

// GC is the two-arena copying collector for Array and String values
// (spec.md 4.9). It owns two equal-sized arenas; at any time one is the
// active allocation target ("to"), holding both new allocations and the
// survivors of the previous collection, and the other ("from") is empty
// between collections, since Collect copies survivors into a fresh arena
// that becomes the new "to". Both are
// plain Go slices of *cell: Nano has no business reaching for unsafe
// pointer arithmetic over a raw byte arena when a slice already gives
// bump allocation (append) and the collector already needs per-object
// metadata (kind, length) that a raw byte region would have to re-derive.
//
// The teacher has no analogue for this: Starlark-derived machine.Value is
// a Go interface whose lifetime is left entirely to the host Go runtime's
// GC. Nano's spec is explicit that the VM must own its own collector with
// its own forwarding table (spec.md 4.9, 9's "Smart pointer-shared values
// and a copying GC" note), so this file has no teacher code to adapt —
// it is built directly from the spec's description.
type GC struct {
	spaces  [2]arena
	cur     int // index of the active allocation arena ("to")
	cap     int // capacity of each arena, in cell count
	forward map[*cell]*cell
}

// arena is one bump-allocated region of live cells.
type arena struct {
	cells []*cell
}

// NewGC returns a collector whose two arenas each hold up to capacity
// cells before a collection is triggered.
func NewGC(capacity int) *GC {
	g := &GC{cap: capacity}
	g.spaces[0].cells = make([]*cell, 0, capacity)
	g.spaces[1].cells = make([]*cell, 0, capacity)
	return g
}

func (g *GC) to() *arena   { return &g.spaces[g.cur] }
func (g *GC) from() *arena { return &g.spaces[1-g.cur] }

// NeedsCollect reports whether the active arena has crossed spec.md 4.9's
// 75%-capacity threshold.
func (g *GC) NeedsCollect() bool {
	return len(g.to().cells) > (g.cap*3)/4
}

// NewString allocates a String value. Caller should call NeedsCollect and
// Collect beforehand if a collection is due; NewString does not collect on
// its own, since it has no root set to trace (only the VM, which holds
// every thread and the globals table, can supply that).
func (g *GC) NewString(s string) Value {
	c := &cell{kind: cellString, str: s}
	g.to().cells = append(g.to().cells, c)
	return Value{kind: String, cell: c}
}

// NewArray allocates an Array value of n none-initialized elements.
func (g *GC) NewArray(n int) Value {
	c := &cell{kind: cellArray, elems: make([]Value, n)}
	g.to().cells = append(g.to().cells, c)
	return Value{kind: Array, cell: c}
}

// Collect runs one full collection cycle: every Value reachable from
// roots is retraced into a fresh destination arena (copying the cell it
// points to, recording the forwarding, and recursing over array elements),
// after which the destination becomes the new "to" arena and the
// old "to" is cleared to serve as the next cycle's "from" (spec.md 4.9:
// "After tracing all roots swap from/to and clear the new-from space").
//
// roots is a list of Value slices (thread value stacks, the globals
// table) whose entries are rewritten in place to point at the relocated
// cells. Invariant upheld: once Collect returns, no Value anywhere in
// roots points at a from-space cell; a caller that holds a Value outside
// of roots across a Collect call (in a local variable, say) is holding a
// stale pointer, exactly as spec.md 4.9 warns against.
func (g *GC) Collect(roots ...[]Value) {
	if g.forward == nil {
		g.forward = make(map[*cell]*cell, len(g.to().cells))
	} else {
		clear(g.forward)
	}

	dest := arena{cells: make([]*cell, 0, g.cap)}
	for _, root := range roots {
		for i, v := range root {
			root[i] = g.trace(&dest, v)
		}
	}

	g.spaces[g.cur] = dest
	g.spaces[1-g.cur] = arena{cells: make([]*cell, 0, g.cap)}
}

// trace copies v's cell (if any) into dest, reusing an existing forwarding
// entry if this cell has already been copied this cycle, and recurses
// into array elements.
func (g *GC) trace(dest *arena, v Value) Value {
	if v.cell == nil {
		return v
	}
	if fwd, ok := g.forward[v.cell]; ok {
		return Value{kind: v.kind, num: v.num, cell: fwd}
	}

	var nc *cell
	switch v.cell.kind {
	case cellString:
		nc = &cell{kind: cellString, str: v.cell.str}
	case cellArray:
		nc = &cell{kind: cellArray, elems: make([]Value, len(v.cell.elems))}
	}
	g.forward[v.cell] = nc
	dest.cells = append(dest.cells, nc)

	if v.cell.kind == cellArray {
		for i, e := range v.cell.elems {
			nc.elems[i] = g.trace(dest, e)
		}
	}
	return Value{kind: v.kind, num: v.num, cell: nc}
}
