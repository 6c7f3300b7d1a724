package token

import (
	"fmt"
	"sort"
)

// Error represents a single compile-time diagnostic at a resolved source
// Position. It is modeled directly on go/scanner.Error, the idiomatic shape
// used throughout the scanner/parser/resolver pipeline (spec.md 4.1-4.4),
// but carries this package's own Position rather than go/token's.
type Error struct {
	Pos Position
	Msg string
}

func (e Error) Error() string {
	if e.Pos.Filename != "" || e.Pos.IsValid() {
		return e.Pos.String() + ": " + e.Msg
	}
	return e.Msg
}

// ErrorList is a list of Errors accumulated while lexing, parsing, or
// resolving a program. Its zero value is a ready-to-use, empty list, and
// its Add method is itself valid as a scanner error-handler callback
// (Scanner.Init, parser error reporting).
type ErrorList []Error

// Add appends an Error to the list.
func (l *ErrorList) Add(pos Position, msg string) {
	*l = append(*l, Error{Pos: pos, Msg: msg})
}

// Reset empties the list.
func (l *ErrorList) Reset() { *l = (*l)[0:0] }

// Len, Swap and Less implement sort.Interface, ordering by file, then line,
// then column, then insertion order for ties.
func (l ErrorList) Len() int { return len(l) }
func (l ErrorList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l ErrorList) Less(i, j int) bool {
	e, f := l[i].Pos, l[j].Pos
	if e.Filename != f.Filename {
		return e.Filename < f.Filename
	}
	if e.Line != f.Line {
		return e.Line < f.Line
	}
	return e.Column < f.Column
}

// Sort sorts the list in place by source position.
func (l ErrorList) Sort() { sort.Stable(l) }

// Err returns an error equivalent to this list: nil if the list is empty,
// or the list itself otherwise (whose Error method reports the first error
// and summarizes the count of the rest).
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
}
