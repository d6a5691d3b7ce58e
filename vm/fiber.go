package vm

// BlockFrame is the activation record for one structured block: the
// instruction pointer it restarts at on RE, its current instruction
// pointer, and (for a function-root block only) the caller register that
// receives the eventual return value.
type BlockFrame struct {
	StartPointer   uint32 // instruction-word offset, for RE/RE_NZ restarts
	InstructionPtr uint32 // instruction-word offset, current
	OutIndex       RegisterIndex
}

// CallFrame is the activation record for one function call: the function
// being executed, the index of its root BlockFrame on the block stack,
// and the base index of its register window on the data stack.
type CallFrame struct {
	Function  *Function
	RootBlock int
	StackBase int
}

// Fiber is a self-contained execution context: three preallocated stacks
// (call, block, data/register) plus a reference to the immutable Program
// they execute against. A Fiber is not safe for concurrent use; a host
// that wants to multiplex work runs independent fibers on independent
// goroutines/threads, each owning its own three stacks (spec.md §5).
type Fiber struct {
	Program *Program

	CallStack    []CallFrame
	callTop      int // index of the top-of-stack CallFrame, -1 if empty
	CallStackMax int

	BlockStack    []BlockFrame
	blockTop      int // index of the top-of-stack BlockFrame, -1 if empty
	BlockStackMax int

	DataStack    []uint64
	dataTop      int // index one past the last reserved data cell
	DataStackMax int

	// Trace, when non-nil, receives a structured log entry for every
	// dispatched instruction. See vm/trace.go.
	Trace *Tracer

	// StepMode, when true, makes Eval return after every single
	// dispatched instruction (see trapStepped in vm/trap.go) instead of
	// running to completion. Used by the interactive debugger
	// (vm/repl.go).
	StepMode bool
}

// Reference budget values from spec.md §6.
const (
	DefaultDataStackWords  = (1 << 20) / 8 // 1 MiB of 64-bit cells
	DefaultCallStackFrames = 4096
	DefaultBlockFramesPer  = 256 // block frames per call frame
)

// NewFiber allocates a Fiber with the given preallocated stack capacities.
// Budgets are host-supplied; spec.md §6 suggests 1 MiB of data-stack words,
// 1024-4096 call frames, and callFrames*256 block frames.
func NewFiber(program *Program, dataStackWords, callStackFrames, blockStackFrames int) *Fiber {
	return &Fiber{
		Program:       program,
		CallStack:     make([]CallFrame, callStackFrames),
		callTop:       -1,
		CallStackMax:  callStackFrames,
		BlockStack:    make([]BlockFrame, blockStackFrames),
		blockTop:      -1,
		BlockStackMax: blockStackFrames,
		DataStack:     make([]uint64, dataStackWords),
		dataTop:       0,
		DataStackMax:  dataStackWords,
	}
}

// NewDefaultFiber allocates a Fiber using the reference budgets of
// spec.md §6.
func NewDefaultFiber(program *Program) *Fiber {
	return NewFiber(program, DefaultDataStackWords, DefaultCallStackFrames,
		DefaultCallStackFrames*DefaultBlockFramesPer)
}

func (f *Fiber) pushCall(cf CallFrame) {
	f.callTop++
	f.CallStack[f.callTop] = cf
}

func (f *Fiber) pushBlock(bf BlockFrame) {
	f.blockTop++
	f.BlockStack[f.blockTop] = bf
}

func (f *Fiber) currentCall() *CallFrame   { return &f.CallStack[f.callTop] }
func (f *Fiber) currentBlock() *BlockFrame { return &f.BlockStack[f.blockTop] }

// window returns the register cells belonging to the given call frame.
func (f *Fiber) window(cf *CallFrame) []uint64 {
	return f.DataStack[cf.StackBase : cf.StackBase+int(cf.Function.RegisterCount)]
}
