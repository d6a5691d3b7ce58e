package vm

import "math"

// Eval runs the dispatch engine until the fiber's current call frame
// halts or traps. It is the single hot loop of the engine (spec.md §4.3):
// read the instruction at the current block frame's IP, decode the
// opcode, mutate fiber state, repeat.
//
// Dispatch is a plain switch on the opcode byte rather than label-address
// threading: spec.md §9 explicitly sanctions this as an equally-correct,
// more portable substitute for the original's computed-goto.
//
// cf/fn/bf mirror the top of the call/block stacks, refreshed exactly at
// the points spec.md §4.3 names: CALL_V, TAIL_CALL_V, RET_V, IF_NZ,
// WHEN_NZ (when taken), BLOCK, BR, BR_NZ (when taken), RE, RE_NZ (when
// taken).
func Eval(f *Fiber) Trap {
	cf := f.currentCall()
	fn := cf.Function
	bf := f.currentBlock()

	setContext := func() {
		cf = f.currentCall()
		fn = cf.Function
		bf = f.currentBlock()
	}

	for {
		f.trace(fn, bf)

		instrs := fn.Bytecode.Instructions
		word := instrs[bf.InstructionPtr]
		bf.InstructionPtr++
		op := DecodeOpCode(word)

		switch op {

		case OpHalt:
			return Okay

		case OpUnreachable:
			return TrapUnreachable

		case OpReadGlobal32:
			idx := GlobalIndex(DecodeW0(word))
			dst := RegisterIndex(DecodeW1(word))
			f.setRegU64(cf.StackBase, dst, f.Program.ReadGlobal32(idx))

		case OpReadGlobal64:
			idx := GlobalIndex(DecodeW0(word))
			dst := RegisterIndex(DecodeW1(word))
			f.setRegU64(cf.StackBase, dst, f.Program.ReadGlobal64(idx))

		case OpCopyIm64:
			imm := DecodeIM64(instrs[bf.InstructionPtr])
			bf.InstructionPtr++
			dst := RegisterIndex(DecodeA(word))
			f.setRegU64(cf.StackBase, dst, imm)

		case OpIfNz:
			thenBlock := BlockIndex(DecodeA(word))
			elseBlock := BlockIndex(DecodeB(word))
			cond := RegisterIndex(DecodeC(word))
			chosen := elseBlock
			if f.regNonZero(cf.StackBase, cond) {
				chosen = thenBlock
			}
			start := fn.Bytecode.Start(chosen)
			f.pushBlock(BlockFrame{StartPointer: start, InstructionPtr: start})
			setContext()

		case OpWhenNz:
			block := BlockIndex(DecodeA(word))
			cond := RegisterIndex(DecodeB(word))
			if f.regNonZero(cf.StackBase, cond) {
				start := fn.Bytecode.Start(block)
				f.pushBlock(BlockFrame{StartPointer: start, InstructionPtr: start})
				setContext()
			}

		case OpBlock:
			block := BlockIndex(DecodeA(word))
			start := fn.Bytecode.Start(block)
			f.pushBlock(BlockFrame{StartPointer: start, InstructionPtr: start})
			setContext()

		case OpBr:
			k := int(DecodeA(word))
			f.blockTop -= k + 1
			setContext()

		case OpBrNz:
			k := int(DecodeA(word))
			cond := RegisterIndex(DecodeB(word))
			if f.regNonZero(cf.StackBase, cond) {
				f.blockTop -= k + 1
				setContext()
			}

		case OpRe:
			k := int(DecodeA(word))
			target := &f.BlockStack[f.blockTop-k]
			target.InstructionPtr = target.StartPointer
			setContext()

		case OpReNz:
			k := int(DecodeA(word))
			cond := RegisterIndex(DecodeB(word))
			if f.regNonZero(cf.StackBase, cond) {
				target := &f.BlockStack[f.blockTop-k]
				target.InstructionPtr = target.StartPointer
				setContext()
			}

		case OpFAdd32:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegF32(cf.StackBase, RegisterIndex(z),
				f.regF32(cf.StackBase, RegisterIndex(x))+f.regF32(cf.StackBase, RegisterIndex(y)))

		case OpFAddIm32:
			x := DecodeIM32F(word)
			y, z := DecodeA(word), DecodeB(word)
			f.setRegF32(cf.StackBase, RegisterIndex(z), x+f.regF32(cf.StackBase, RegisterIndex(y)))

		case OpFSub32:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegF32(cf.StackBase, RegisterIndex(z),
				f.regF32(cf.StackBase, RegisterIndex(x))-f.regF32(cf.StackBase, RegisterIndex(y)))

		case OpFSubImA32:
			x := DecodeIM32F(word)
			y, z := DecodeA(word), DecodeB(word)
			f.setRegF32(cf.StackBase, RegisterIndex(z), x-f.regF32(cf.StackBase, RegisterIndex(y)))

		case OpFSubImB32:
			x := DecodeA(word)
			y := DecodeIM32F(word)
			z := DecodeB(word)
			f.setRegF32(cf.StackBase, RegisterIndex(z), f.regF32(cf.StackBase, RegisterIndex(x))-y)

		case OpFAdd64:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegF64(cf.StackBase, RegisterIndex(z),
				f.regF64(cf.StackBase, RegisterIndex(x))+f.regF64(cf.StackBase, RegisterIndex(y)))

		case OpFAddIm64:
			x := DecodeIM64F(instrs[bf.InstructionPtr])
			bf.InstructionPtr++
			y, z := DecodeA(word), DecodeB(word)
			f.setRegF64(cf.StackBase, RegisterIndex(z), x+f.regF64(cf.StackBase, RegisterIndex(y)))

		case OpFSub64:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegF64(cf.StackBase, RegisterIndex(z),
				f.regF64(cf.StackBase, RegisterIndex(x))-f.regF64(cf.StackBase, RegisterIndex(y)))

		case OpFSubImA64:
			x := DecodeIM64F(instrs[bf.InstructionPtr])
			bf.InstructionPtr++
			y, z := DecodeA(word), DecodeB(word)
			f.setRegF64(cf.StackBase, RegisterIndex(z), x-f.regF64(cf.StackBase, RegisterIndex(y)))

		case OpFSubImB64:
			x := DecodeA(word)
			y := DecodeIM64F(instrs[bf.InstructionPtr])
			bf.InstructionPtr++
			z := DecodeB(word)
			f.setRegF64(cf.StackBase, RegisterIndex(z), f.regF64(cf.StackBase, RegisterIndex(x))-y)

		case OpIAdd64:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegU64(cf.StackBase, RegisterIndex(z),
				f.regU64(cf.StackBase, RegisterIndex(x))+f.regU64(cf.StackBase, RegisterIndex(y)))

		case OpISub64:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegU64(cf.StackBase, RegisterIndex(z),
				f.regU64(cf.StackBase, RegisterIndex(x))-f.regU64(cf.StackBase, RegisterIndex(y)))

		case OpFEq32:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z),
				f.regF32(cf.StackBase, RegisterIndex(x)) == f.regF32(cf.StackBase, RegisterIndex(y)))

		case OpFEqIm32:
			x := DecodeIM32F(word)
			y, z := DecodeA(word), DecodeB(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z), x == f.regF32(cf.StackBase, RegisterIndex(y)))

		case OpFLt32:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z),
				f.regF32(cf.StackBase, RegisterIndex(x)) < f.regF32(cf.StackBase, RegisterIndex(y)))

		case OpFLtImA32:
			x := DecodeIM32F(word)
			y, z := DecodeA(word), DecodeB(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z), x < f.regF32(cf.StackBase, RegisterIndex(y)))

		case OpFLtImB32:
			x := DecodeA(word)
			y := DecodeIM32F(word)
			z := DecodeB(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z), f.regF32(cf.StackBase, RegisterIndex(x)) < y)

		case OpFEq64:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z),
				f.regF64(cf.StackBase, RegisterIndex(x)) == f.regF64(cf.StackBase, RegisterIndex(y)))

		case OpFEqIm64:
			x := DecodeIM64F(instrs[bf.InstructionPtr])
			bf.InstructionPtr++
			y, z := DecodeA(word), DecodeB(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z), x == f.regF64(cf.StackBase, RegisterIndex(y)))

		case OpFLt64:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z),
				f.regF64(cf.StackBase, RegisterIndex(x)) < f.regF64(cf.StackBase, RegisterIndex(y)))

		case OpFLtImA64:
			x := DecodeIM64F(instrs[bf.InstructionPtr])
			bf.InstructionPtr++
			y, z := DecodeA(word), DecodeB(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z), x < f.regF64(cf.StackBase, RegisterIndex(y)))

		case OpFLtImB64:
			x := DecodeA(word)
			y := DecodeIM64F(instrs[bf.InstructionPtr])
			bf.InstructionPtr++
			z := DecodeB(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z), f.regF64(cf.StackBase, RegisterIndex(x)) < y)

		case OpSEq64:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z),
				f.regU64(cf.StackBase, RegisterIndex(x)) == f.regU64(cf.StackBase, RegisterIndex(y)))

		case OpSEqIm64:
			x := DecodeIM64(instrs[bf.InstructionPtr])
			bf.InstructionPtr++
			y, z := DecodeA(word), DecodeB(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z), x == f.regU64(cf.StackBase, RegisterIndex(y)))

		case OpSLt64:
			x, y, z := DecodeA(word), DecodeB(word), DecodeC(word)
			f.setRegBool(cf.StackBase, RegisterIndex(z),
				f.regU64(cf.StackBase, RegisterIndex(x)) < f.regU64(cf.StackBase, RegisterIndex(y)))

		case OpCallV:
			fnIdx := FunctionIndex(DecodeW0(word))
			out := RegisterIndex(DecodeW1(word))
			newFn := f.Program.Function(fnIdx)

			if f.callTop+1 >= f.CallStackMax {
				return TrapCallOverflow
			}
			if f.dataTop+int(newFn.RegisterCount) >= f.DataStackMax {
				return TrapStackOverflow
			}

			argCount := int(newFn.ArgCount)
			slots := ArgSlotCount(argCount)
			argRegs := DecodeRegisters(instrs[bf.InstructionPtr:], argCount)
			bf.InstructionPtr += uint32(slots)

			newBase := f.dataTop
			for i, r := range argRegs {
				f.DataStack[newBase+i] = f.regU64(cf.StackBase, r)
			}

			start := newFn.Bytecode.Start(0)
			f.pushBlock(BlockFrame{StartPointer: start, InstructionPtr: start, OutIndex: out})
			f.pushCall(CallFrame{Function: newFn, RootBlock: f.blockTop, StackBase: newBase})
			f.dataTop += int(newFn.RegisterCount)

			setContext()

		case OpTailCallV:
			fnIdx := FunctionIndex(DecodeW0(word))
			newFn := f.Program.Function(fnIdx)

			registerDelta := int(fn.RegisterCount) - int(newFn.RegisterCount)
			if registerDelta < 0 && f.dataTop+int(newFn.RegisterCount)-int(fn.RegisterCount) >= f.DataStackMax {
				return TrapStackOverflow
			}

			argCount := int(newFn.ArgCount)
			slots := ArgSlotCount(argCount)
			argRegs := DecodeRegisters(instrs[bf.InstructionPtr:], argCount)
			bf.InstructionPtr += uint32(slots)

			var scratch [math.MaxUint8 + 1]uint64
			for i, r := range argRegs {
				scratch[i] = f.regU64(cf.StackBase, r)
			}

			newBase := cf.StackBase
			copy(f.DataStack[newBase:newBase+int(newFn.RegisterCount)], scratch[:newFn.RegisterCount])

			start := newFn.Bytecode.Start(0)
			root := &f.BlockStack[cf.RootBlock]
			root.StartPointer = start
			root.InstructionPtr = start
			f.blockTop = cf.RootBlock

			cf.Function = newFn
			f.dataTop += int(newFn.RegisterCount) - int(fn.RegisterCount)

			setContext()

		case OpRetV:
			src := RegisterIndex(DecodeA(word))

			root := &f.BlockStack[cf.RootBlock]
			caller := &f.CallStack[f.callTop-1]
			f.setRegU64(caller.StackBase, root.OutIndex, f.regU64(cf.StackBase, src))

			f.callTop--
			f.blockTop = cf.RootBlock - 1
			f.dataTop = cf.StackBase

			setContext()

		default:
			return TrapUnreachable
		}

		if f.StepMode {
			return trapStepped
		}
	}
}

// EvalStep runs exactly one instruction and returns. It reports Okay if
// that instruction was a HALT, one of the three real traps if the
// instruction faulted, or trapStepped if the fiber is still running.
// f.StepMode is restored to its prior value before EvalStep returns.
func EvalStep(f *Fiber) Trap {
	prev := f.StepMode
	f.StepMode = true
	defer func() { f.StepMode = prev }()
	return Eval(f)
}

// Running reports whether the last EvalStep call left the fiber paused
// mid-execution (as opposed to halted or trapped).
func Running(trap Trap) bool { return trap == trapStepped }

// Position returns the function index and instruction-word offset the
// fiber is currently paused at, for the debugger to render and to test
// breakpoints against. It is only meaningful while the fiber has not
// halted or trapped.
func (f *Fiber) Position() (fn *Function, ip uint32) {
	cf := f.currentCall()
	return cf.Function, f.currentBlock().InstructionPtr
}

func (f *Fiber) regU64(base int, idx RegisterIndex) uint64 {
	return f.DataStack[base+int(idx)]
}

func (f *Fiber) setRegU64(base int, idx RegisterIndex, v uint64) {
	f.DataStack[base+int(idx)] = v
}

func (f *Fiber) regI64(base int, idx RegisterIndex) int64 {
	return int64(f.DataStack[base+int(idx)])
}

func (f *Fiber) regF32(base int, idx RegisterIndex) float32 {
	return math.Float32frombits(uint32(f.DataStack[base+int(idx)]))
}

// setRegF32 overwrites only the low 32 bits of the cell, matching the
// original's `*(float*)cell = v` narrow pointer-cast write; the upper
// bytes are left as whatever they were (spec.md leaves them
// implementation-defined on read).
func (f *Fiber) setRegF32(base int, idx RegisterIndex, v float32) {
	cell := base + int(idx)
	f.DataStack[cell] = (f.DataStack[cell] &^ 0xFFFFFFFF) | uint64(math.Float32bits(v))
}

func (f *Fiber) regF64(base int, idx RegisterIndex) float64 {
	return math.Float64frombits(f.DataStack[base+int(idx)])
}

func (f *Fiber) setRegF64(base int, idx RegisterIndex, v float64) {
	f.DataStack[base+int(idx)] = math.Float64bits(v)
}

// regNonZero reads the low byte of a cell, per spec.md's sub-word read
// convention for boolean conditions.
func (f *Fiber) regNonZero(base int, idx RegisterIndex) bool {
	return byte(f.DataStack[base+int(idx)]) != 0
}

// setRegBool writes a boolean result into the low byte of a cell, leaving
// the remaining bytes as they were (spec.md: "the remaining bytes are
// implementation-defined; callers must read only the low byte").
func (f *Fiber) setRegBool(base int, idx RegisterIndex, v bool) {
	cell := base + int(idx)
	var bit uint64
	if v {
		bit = 1
	}
	f.DataStack[cell] = (f.DataStack[cell] &^ 0xFF) | bit
}
