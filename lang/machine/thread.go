package machine

import (
	"github.com/mna/nano/internal/diag"
	"github.com/mna/nano/lang/compiler"
)

// breakpointKey identifies one (file, line) pair a Thread should stop
// before executing, the same shape spec.md 3's Thread state calls
// "breakpoints" (a set of (file, line)).
type breakpointKey struct {
	file string
	line int
}

// Thread is one cooperative, resumable line of execution against a VM's
// Program (spec.md 3's Thread state: "{pc, value_stack, frame_stack, error,
// finished, halted, cycles_elapsed, breakpoints, last_line, user_data}").
// Unlike the teacher's Thread — which drives a single uninterruptible
// RunProgram call per thread, with its own Stdout/Stderr/Stdin, context
// cancellation and goroutine-backed watchdog — a machine.Thread never runs
// on its own goroutine: the host drives it one Resume/StepInst/StepLine
// call at a time, and every field below is plain state a single goroutine
// reads and mutates between calls (spec.md 5: "the only suspension point
// is an instruction boundary").
type Thread struct {
	vm *VM

	stack  []Value
	sp     int
	frames []Frame
	pc     int

	result Value
	err    *diag.RuntimeError

	finished bool
	halted   bool

	cycles    uint64
	MaxCycles uint64 // 0 means unlimited

	breakpoints map[breakpointKey]bool
	lastFile    string
	lastLine    int
	sawLine     bool

	// UserData is never read or written by the VM; it is a place for a host
	// debugger or REPL to stash per-thread state (spec.md 3's user_data).
	UserData any
}

// Result returns the value a finished thread's terminal frame returned.
// It is only meaningful once Finished reports true and Err reports nil.
func (th *Thread) Result() Value { return th.result }

// Err returns the thread's sticky runtime error, or nil if none has been
// set (spec.md 4.10: "Active error is sticky; once set, no further
// execution occurs").
func (th *Thread) Err() error {
	if th.err == nil {
		return nil
	}
	return th.err
}

// Finished reports whether the thread's terminal frame has returned.
func (th *Thread) Finished() bool { return th.finished }

// Halted reports whether a syscall cooperatively suspended the thread
// (spec.md 4.10's halt()). The host must call ClearHalt before the thread
// will execute any further instruction.
func (th *Thread) Halted() bool { return th.halted }

// ClearHalt un-suspends a halted thread, letting the next Resume/StepInst/
// StepLine call execute again.
func (th *Thread) ClearHalt() { th.halted = false }

// Cycles returns the total number of instructions this thread has
// executed so far.
func (th *Thread) Cycles() uint64 { return th.cycles }

// CurrentLine returns the source position of the instruction the thread
// is about to execute, or ok=false if the program carries no line entry
// covering it (an instruction placed before the program's first line
// table entry, such as a LOCALS prologue at offset 0).
func (th *Thread) CurrentLine() (file string, line int, ok bool) {
	return currentLine(th.vm.Program, th.pc)
}

// SetBreakpoint registers a (file, line) pair the thread should stop
// before entering, the next time Resume crosses into it.
func (th *Thread) SetBreakpoint(file string, line int) {
	if th.breakpoints == nil {
		th.breakpoints = make(map[breakpointKey]bool)
	}
	th.breakpoints[breakpointKey{file, line}] = true
}

// ClearBreakpoint removes a previously set breakpoint.
func (th *Thread) ClearBreakpoint(file string, line int) {
	delete(th.breakpoints, breakpointKey{file, line})
}

func (th *Thread) hasBreakpoint(file string, line int) bool {
	return th.breakpoints[breakpointKey{file, line}]
}

// fail sets th's sticky error. Once set, Resume/StepInst/StepLine are all
// no-ops: spec.md 4.10 is explicit that a thread error stops execution for
// good, it is never recovered inside the VM.
func (th *Thread) fail(kind diag.ErrorKind, format string, args ...any) {
	if th.err == nil {
		th.err = diag.New(kind, format, args...)
		th.finished = true
	}
}

// stopped reports whether the thread cannot execute any further
// instruction right now (finished, errored, or halted).
func (th *Thread) stopped() bool {
	return th.finished || th.err != nil || th.halted
}

// push grows the value stack if needed and appends v at the current top.
func (th *Thread) push(v Value) {
	if th.sp == len(th.stack) {
		th.stack = append(th.stack, v)
	} else {
		th.stack[th.sp] = v
	}
	th.sp++
}

// pop removes and returns the value stack's current top. Callers must
// check for underflow themselves (via sp) before calling pop when the
// count being popped comes from untrusted bytecode.
func (th *Thread) pop() Value {
	th.sp--
	v := th.stack[th.sp]
	th.stack[th.sp] = Value{}
	return v
}

// Push appends a value to the thread's operand stack; it exists for host
// syscalls (internal/builtins and embedders) to push their single result,
// per the syscall contract in spec.md 4.10.
func (th *Thread) Push(v Value) { th.push(v) }

// Pop removes and returns the thread's top operand stack value; host
// syscalls use it to consume their argc arguments.
func (th *Thread) Pop() Value { return th.pop() }

// Depth reports the thread's current operand stack height, for a syscall
// that wants to validate argc before popping.
func (th *Thread) Depth() int { return th.sp }

// Fail lets a host syscall raise a thread error directly (spec.md 4.10's
// syscall contract: "may set the thread's error and push none instead").
func (th *Thread) Fail(kind diag.ErrorKind, format string, args ...any) {
	th.fail(kind, format, args...)
}

// GC returns the owning VM's collector, so a syscall that needs to
// allocate a String or Array result can do so directly.
func (th *Thread) GC() *GC { return th.vm.GC }

// CollectIfNeeded runs a full GC cycle if the collector has crossed its
// threshold; a syscall should call this before allocating (spec.md
// 4.10's syscall contract: "may call gc()").
func (th *Thread) CollectIfNeeded() {
	if th.vm.GC.NeedsCollect() {
		th.vm.Collect()
	}
}

// Halt cooperatively suspends the thread (spec.md 4.10's syscall
// contract: "may call halt() to suspend cooperatively"). The instruction
// that triggered it has already completed; the thread simply will not
// advance past it until ClearHalt is called.
func (th *Thread) Halt() { th.halted = true }

// pushCall installs a new frame calling the function whose code begins at
// entryPC, consuming the argc values already sitting at the top of the
// stack as its arguments (spec.md 4.10: "Thread construction takes a
// function, an argument count, and an argument array" — pushCall is the
// same mechanism CALL/ICALL use internally once the callee is resolved).
func (th *Thread) pushCall(entryPC, argc int, terminal bool) {
	base := th.sp - argc
	th.frames = append(th.frames, Frame{
		base:       base,
		returnAddr: th.pc,
		calleeFunc: entryPC,
		terminal:   terminal,
	})
	th.pc = entryPC
}

func (th *Thread) curFrame() *Frame {
	return &th.frames[len(th.frames)-1]
}

// Resume runs up to n instructions, stopping early if the thread
// finishes, errors, is halted by a syscall, or is about to cross into a
// source line carrying a registered breakpoint (spec.md 4.10's resume(n):
// "runs up to n instructions or until the thread finishes, errors, is
// halted, or a breakpoint fires"). A breakpoint always takes precedence
// over the remaining instruction budget, per spec.md 9's Open Questions
// resolution.
func (th *Thread) Resume(n int) {
	for i := 0; i < n; i++ {
		if th.stopped() {
			return
		}
		if th.atBreakpoint() {
			return
		}
		th.step()
	}
}

// atBreakpoint reports whether the thread is about to move onto a new
// source line (relative to last_line) that carries a registered
// breakpoint, updating last_line as a side effect so the same line is not
// re-checked on the very next call (spec.md 3: breakpoints fire "if not
// the last_line").
func (th *Thread) atBreakpoint() bool {
	file, line, ok := currentLine(th.vm.Program, th.pc)
	if !ok {
		return false
	}
	if th.sawLine && file == th.lastFile && line == th.lastLine {
		return false
	}
	atBp := th.hasBreakpoint(file, line)
	th.lastFile, th.lastLine, th.sawLine = file, line, true
	return atBp
}

// StepInst executes exactly one instruction, ignoring breakpoints by
// design (spec.md 9's Open Questions resolution: "step_inst ignores
// breakpoints"). It is the primitive a debugger's "step instruction"
// command drives directly.
func (th *Thread) StepInst() {
	if th.stopped() {
		return
	}
	th.step()
}

// StepLine executes instructions, ignoring breakpoints, until the
// thread's current source line differs from the one it started on, or
// the thread stops for any other reason (spec.md 3's step_line()).
func (th *Thread) StepLine() {
	startFile, startLine, hadLine := currentLine(th.vm.Program, th.pc)
	for {
		if th.stopped() {
			return
		}
		th.step()
		if th.stopped() {
			return
		}
		file, line, ok := currentLine(th.vm.Program, th.pc)
		if !hadLine || !ok || file != startFile || line != startLine {
			return
		}
	}
}

// currentLine finds the line-table row covering pc: the last entry whose
// Offset is <= pc. Program.Lines is built in non-decreasing Offset order
// (codegen.markLine emits rows as it walks statements in emission order,
// and functions are themselves emitted back to back into one growing code
// slice), so a linear scan from the back is correct and a binary search
// would be just as correct; programs are small enough that the simpler
// scan is preferred here.
func currentLine(p *compiler.Program, pc int) (file string, line int, ok bool) {
	lines := p.Lines
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Offset <= pc {
			return lines[i].File, lines[i].Line, true
		}
	}
	return "", 0, false
}
