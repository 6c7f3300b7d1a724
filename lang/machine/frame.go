package machine

// Frame records one active call on a Thread's call stack (spec.md 3's
// Thread state: "A frame is { sp (base of this frame in the value stack),
// return_address, callee_function_id, terminal }").
//
// base is where CALL left the value stack right after pushing the
// callee's arguments: LOCALS reserves locals starting at base, arguments
// live at negative offsets below it (base+off for off<0), and locals live
// at non-negative offsets (base+off for off>=0) — exactly the offset
// convention precodegen assigns (spec.md 4.6).
type Frame struct {
	base       int // index into the thread's value stack
	returnAddr int // pc to resume in the caller after RET
	calleeFunc int // code offset (Func.CodeStart) of the called function
	terminal   bool
}
