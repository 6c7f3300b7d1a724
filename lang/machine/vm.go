package machine

import (
	"fmt"

	"github.com/mna/nano/lang/compiler"
	"github.com/mna/nano/lang/precodegen"
)

// DefaultGCCapacity is the default per-arena cell capacity a VM allocates
// its GC with, if the caller does not specify one.
const DefaultGCCapacity = 4096

// SyscallFunc is a host-provided syscall implementation (spec.md 4.10's
// "Syscall contract"): it must pop exactly argc values from th's value
// stack and push exactly one, or set th's error and push none.
type SyscallFunc func(th *Thread, argc int) error

// VM owns a read-only Program, the collector, the globals table and the
// resolved syscall table, and every Thread created against it (spec.md
// 4.10: "The VM owns the program, the GC, and the set of live threads").
// It is the Nano counterpart of the teacher's bare *Thread entry point
// (thread.go's RunProgram): the teacher has no separate VM type because
// Starlark threads carry their own Predeclared map and need no shared GC
// or globals table to coordinate.
type VM struct {
	Program *compiler.Program
	GC      *GC

	// Globals backs every GETG/SETG access. It is reset and sized by the
	// GLOBALS instruction, which spec.md 4.7 says is "only valid in
	// @init" — so Globals is empty until CallInit runs.
	Globals []Value

	// Syscalls is indexed exactly like Program.SyscallNames; a nil entry
	// means that syscall has not yet been resolved by the host.
	Syscalls []SyscallFunc

	// syscallIdx and funcIdx back Resolve and findFunc with a swiss-table
	// lookup instead of a linear scan, since both tables are built once at
	// NewVM time and then looked up repeatedly for the life of the VM (see
	// names.go).
	syscallIdx *nameIndex
	funcIdx    *nameIndex

	threads []*Thread
}

// NewVM creates a VM ready to resolve syscalls and run @init, with a
// collector sized for gcCapacity cells per arena (DefaultGCCapacity if <=
// 0).
func NewVM(p *compiler.Program, gcCapacity int) *VM {
	if gcCapacity <= 0 {
		gcCapacity = DefaultGCCapacity
	}
	funcNames := make([]string, len(p.Functions))
	for i, fn := range p.Functions {
		funcNames[i] = fn.Name
	}
	return &VM{
		Program:    p,
		GC:         NewGC(gcCapacity),
		Syscalls:   make([]SyscallFunc, len(p.SyscallNames)),
		syscallIdx: newNameIndex(p.SyscallNames),
		funcIdx:    newNameIndex(funcNames),
	}
}

// Resolve binds a host callback to every syscall in the program named
// name (spec.md 4.8's syscall_resolve), returning an error if name is not
// referenced anywhere in the program's syscall table.
func (vm *VM) Resolve(name string, fn SyscallFunc) error {
	i, ok := vm.syscallIdx.lookup(name)
	if !ok {
		return fmt.Errorf("machine: program does not reference syscall %q", name)
	}
	vm.Syscalls[i] = fn
	return nil
}

// findFunc returns the index of the named function in the program's
// function table, or -1.
func (vm *VM) findFunc(name string) int {
	if i, ok := vm.funcIdx.lookup(name); ok {
		return i
	}
	return -1
}

// CallInit runs the program's synthesized @init function to completion,
// populating vm.Globals before any user code may run (spec.md 6's "Call
// @init once to initialize globals before any user code").
func (vm *VM) CallInit() error {
	idx := vm.findFunc(precodegen.InitFuncName)
	if idx < 0 {
		return fmt.Errorf("machine: program has no %s function", precodegen.InitFuncName)
	}
	th := vm.NewThread()
	th.pushCall(vm.Program.Functions[idx].CodeStart, 0, true)
	for !th.finished && th.err == nil {
		th.Resume(1 << 20)
	}
	if th.err != nil {
		return th.err
	}
	return nil
}

// NewThread creates a thread bound to vm, registering it so its value
// stack is included as a GC root on every Collect (spec.md 4.10: "Thread
// construction takes a function, an argument count, and an argument
// array").
func (vm *VM) NewThread() *Thread {
	th := &Thread{vm: vm}
	vm.threads = append(vm.threads, th)
	return th
}

// NewCall creates a new thread, pushes a terminal frame calling the named
// function with args, and returns the thread without running it: the
// caller drives it with Resume/StepInst/StepLine (spec.md 4.10: "Thread
// construction takes a function, an argument count, and an argument
// array"). Call is the synchronous convenience wrapper most callers want;
// NewCall exists for hosts that need to interleave execution with their
// own work (a debugger, a cooperative scheduler) from the very first
// instruction.
func (vm *VM) NewCall(funcName string, args []Value) (*Thread, error) {
	idx := vm.findFunc(funcName)
	if idx < 0 {
		return nil, fmt.Errorf("machine: no such function %q", funcName)
	}
	th := vm.NewThread()
	for _, a := range args {
		th.push(a)
	}
	th.pushCall(vm.Program.Functions[idx].CodeStart, len(args), true)
	return th, nil
}

// Call creates a new thread, pushes a terminal frame calling the named
// function with args, and runs it to completion or error.
func (vm *VM) Call(funcName string, args []Value) (Value, error) {
	th, err := vm.NewCall(funcName, args)
	if err != nil {
		return NewNone(), err
	}
	for !th.finished && th.err == nil {
		th.Resume(1 << 20)
	}
	if th.err != nil {
		return NewNone(), th.err
	}
	return th.result, nil
}

// Collect runs a full GC cycle, rooted at every live thread's value stack
// and the globals table (spec.md 4.9, 5: "every live thread contributes
// its stack as a root set on every collection").
func (vm *VM) Collect() {
	roots := make([][]Value, 0, len(vm.threads)+1)
	for _, th := range vm.threads {
		roots = append(roots, th.stack[:th.sp])
	}
	roots = append(roots, vm.Globals)
	vm.GC.Collect(roots...)
}
