package vm

// Invoke calls a program function from the host. It constructs the
// synthetic HALT-wrapper frame (spec.md §4.2): a call frame with no
// caller of its own, whose single register receives the callee's RET_V
// result and whose bytecode is a single HALT so that a top-level RET_V
// has somewhere to return into.
//
// Invoke recovers from any panic raised while the engine runs (an
// out-of-range Program.Function index, a malformed register window) and
// reports it as TrapUnreachable, matching the defensive boundary
// spec.md §3 asks the host-facing entry point to provide.
func Invoke(f *Fiber, fn FunctionIndex, args []uint64) (result uint64, trap Trap) {
	defer func() {
		if r := recover(); r != nil {
			result, trap = 0, TrapUnreachable
		}
	}()

	target := f.Program.Function(fn)

	if f.callTop+2 >= f.CallStackMax {
		return 0, TrapStackOverflow
	}
	if f.dataTop+int(target.RegisterCount)+1 >= f.DataStackMax {
		return 0, TrapStackOverflow
	}

	wrapperBase := f.dataTop
	f.pushBlock(BlockFrame{StartPointer: 0, InstructionPtr: 0, OutIndex: 0})
	f.pushCall(CallFrame{Function: &haltWrapperFunction, RootBlock: f.blockTop, StackBase: wrapperBase})
	f.dataTop++

	calleeBase := f.dataTop
	start := target.Bytecode.Start(0)
	f.pushBlock(BlockFrame{StartPointer: start, InstructionPtr: start, OutIndex: 0})
	f.pushCall(CallFrame{Function: target, RootBlock: f.blockTop, StackBase: calleeBase})
	for i, a := range args {
		f.DataStack[calleeBase+i] = a
	}
	f.dataTop += int(target.RegisterCount)

	trap = Eval(f)
	if trap != Okay {
		return 0, trap
	}

	result = f.DataStack[wrapperBase]

	f.callTop--
	f.blockTop--
	f.dataTop = wrapperBase

	return result, Okay
}

// haltWrapperFunction is the synthetic root function Invoke pushes below
// every top-level call: one register (the return-value slot) and a
// single-block, single-instruction body that halts.
var haltWrapperFunction = Function{
	ArgCount:      0,
	RegisterCount: 1,
	Bytecode: Bytecode{
		Blocks:       []uint32{0},
		Instructions: []Instruction{EncodeOp(OpHalt)},
	},
}
