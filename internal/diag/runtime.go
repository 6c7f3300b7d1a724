// Package diag holds the runtime thread-error enum (spec.md 6-7): the
// closed set of kinds a Thread may report once its bytecode hits a
// condition the VM refuses to execute through. Compile-time diagnostics
// use token.ErrorList instead (see lang/token/error.go); this package is
// only for errors raised after a Program starts running.
package diag

import "fmt"

// ErrorKind enumerates every runtime failure the VM can report, matching
// spec.md 6's closed list verbatim, including its stable spelling.
type ErrorKind uint8

const (
	Success ErrorKind = iota
	MaxCycleCount
	BadPrepare
	BadGetV
	BadSetV
	BadNumArgs
	BadSyscall
	BadOpcode
	BadSetGlobal
	BadGetGlobal
	BadPop
	BadDivideByZero
	StackOverflow
	StackUnderflow
	BadGlobalsSize
	BadArrayBounds
	BadArrayIndex
	BadArrayObject
	BadTypeOperation
	BadArgument
)

var kindNames = [...]string{
	Success:          "success",
	MaxCycleCount:    "max_cycle_count",
	BadPrepare:       "bad_prepare",
	BadGetV:          "bad_getv",
	BadSetV:          "bad_setv",
	BadNumArgs:       "bad_num_args",
	BadSyscall:       "bad_syscall",
	BadOpcode:        "bad_opcode",
	BadSetGlobal:     "bad_set_global",
	BadGetGlobal:     "bad_get_global",
	BadPop:           "bad_pop",
	BadDivideByZero:  "bad_divide_by_zero",
	StackOverflow:    "stack_overflow",
	StackUnderflow:   "stack_underflow",
	BadGlobalsSize:   "bad_globals_size",
	BadArrayBounds:   "bad_array_bounds",
	BadArrayIndex:    "bad_array_index",
	BadArrayObject:   "bad_array_object",
	BadTypeOperation: "bad_type_operation",
	BadArgument:      "bad_argument",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown_error_kind"
}

// RuntimeError is the sticky error a Thread carries once set (spec.md
// 4.10: "Active error is sticky; once set, no further execution occurs").
// It is modeled on token.Error's shape — a kind/message pair — but kinds
// here come from the closed runtime enum rather than free-form compile
// diagnostics.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
}

func (e *RuntimeError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// New builds a RuntimeError of the given kind with a formatted message.
func New(kind ErrorKind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
