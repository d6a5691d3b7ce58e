package vm

// Builder assembles one Function's Bytecode a block at a time. It is a
// stand-in for the out-of-scope producer (spec.md §1 places assemblers
// and compilers outside this module's scope) offered so that tests and
// the bundled examples package have a way to construct Program values
// without hand-indexing a []Instruction slice.
//
// It mirrors, one method per instruction shape, the encode_0/encode_a/
// encode_ab/.../encode_im64/encode_registers helper family of
// original_source/main.c's producer side, translated from flat-byte
// encoding into a register/struct based builder.
type Builder struct {
	blocks []uint32
	instrs []Instruction
}

// NewBuilder starts a fresh function body with no blocks yet.
func NewBuilder() *Builder { return &Builder{} }

// Block starts a new block at the current instruction offset and
// returns its index, for use as an operand to IF_NZ/WHEN_NZ/BLOCK or a
// later BR/RE.
func (b *Builder) Block() BlockIndex {
	b.blocks = append(b.blocks, uint32(len(b.instrs)))
	return BlockIndex(len(b.blocks) - 1)
}

func (b *Builder) emit(i Instruction) { b.instrs = append(b.instrs, i) }

// Build finalizes the function body.
func (b *Builder) Build() Bytecode {
	return Bytecode{Blocks: b.blocks, Instructions: b.instrs}
}

func (b *Builder) Halt()        { b.emit(EncodeOp(OpHalt)) }
func (b *Builder) Unreachable() { b.emit(EncodeOp(OpUnreachable)) }

func (b *Builder) ReadGlobal32(idx GlobalIndex, dst RegisterIndex) {
	b.emit(EncodeW0W1(OpReadGlobal32, uint16(idx), uint8(dst)))
}

func (b *Builder) ReadGlobal64(idx GlobalIndex, dst RegisterIndex) {
	b.emit(EncodeW0W1(OpReadGlobal64, uint16(idx), uint8(dst)))
}

func (b *Builder) CopyImU64(dst RegisterIndex, v uint64) {
	b.emit(EncodeA(OpCopyIm64, uint8(dst)))
	b.emit(EncodeIM64(v))
}

func (b *Builder) CopyImF64(dst RegisterIndex, v float64) {
	b.emit(EncodeA(OpCopyIm64, uint8(dst)))
	b.emit(EncodeIM64F(v))
}

func (b *Builder) IfNz(thenBlock, elseBlock BlockIndex, cond RegisterIndex) {
	b.emit(EncodeABC(OpIfNz, uint8(thenBlock), uint8(elseBlock), uint8(cond)))
}

func (b *Builder) WhenNz(block BlockIndex, cond RegisterIndex) {
	b.emit(EncodeAB(OpWhenNz, uint8(block), uint8(cond)))
}

func (b *Builder) PushBlock(block BlockIndex) {
	b.emit(EncodeA(OpBlock, uint8(block)))
}

func (b *Builder) Br(k uint8)                       { b.emit(EncodeA(OpBr, k)) }
func (b *Builder) BrNz(k uint8, cond RegisterIndex)  { b.emit(EncodeAB(OpBrNz, k, uint8(cond))) }
func (b *Builder) Re(k uint8)                        { b.emit(EncodeA(OpRe, k)) }
func (b *Builder) ReNz(k uint8, cond RegisterIndex)   { b.emit(EncodeAB(OpReNz, k, uint8(cond))) }

func (b *Builder) FAdd32(x, y, z RegisterIndex) { b.emit(EncodeABC(OpFAdd32, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) FAddIm32(x float32, y, z RegisterIndex) {
	b.emit(EncodeIM32F(EncodeAB(OpFAddIm32, uint8(y), uint8(z)), x))
}
func (b *Builder) FSub32(x, y, z RegisterIndex) { b.emit(EncodeABC(OpFSub32, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) FSubImA32(x float32, y, z RegisterIndex) {
	b.emit(EncodeIM32F(EncodeAB(OpFSubImA32, uint8(y), uint8(z)), x))
}
func (b *Builder) FSubImB32(x RegisterIndex, y float32, z RegisterIndex) {
	b.emit(EncodeIM32F(EncodeAB(OpFSubImB32, uint8(x), uint8(z)), y))
}

func (b *Builder) FAdd64(x, y, z RegisterIndex) { b.emit(EncodeABC(OpFAdd64, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) FAddIm64(x float64, y, z RegisterIndex) {
	b.emit(EncodeAB(OpFAddIm64, uint8(y), uint8(z)))
	b.emit(EncodeIM64F(x))
}
func (b *Builder) FSub64(x, y, z RegisterIndex) { b.emit(EncodeABC(OpFSub64, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) FSubImA64(x float64, y, z RegisterIndex) {
	b.emit(EncodeAB(OpFSubImA64, uint8(y), uint8(z)))
	b.emit(EncodeIM64F(x))
}
func (b *Builder) FSubImB64(x RegisterIndex, y float64, z RegisterIndex) {
	b.emit(EncodeAB(OpFSubImB64, uint8(x), uint8(z)))
	b.emit(EncodeIM64F(y))
}

func (b *Builder) IAdd64(x, y, z RegisterIndex) { b.emit(EncodeABC(OpIAdd64, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) ISub64(x, y, z RegisterIndex) { b.emit(EncodeABC(OpISub64, uint8(x), uint8(y), uint8(z))) }

func (b *Builder) FEq32(x, y, z RegisterIndex) { b.emit(EncodeABC(OpFEq32, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) FEqIm32(x float32, y, z RegisterIndex) {
	b.emit(EncodeIM32F(EncodeAB(OpFEqIm32, uint8(y), uint8(z)), x))
}
func (b *Builder) FLt32(x, y, z RegisterIndex) { b.emit(EncodeABC(OpFLt32, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) FLtImA32(x float32, y, z RegisterIndex) {
	b.emit(EncodeIM32F(EncodeAB(OpFLtImA32, uint8(y), uint8(z)), x))
}
func (b *Builder) FLtImB32(x RegisterIndex, y float32, z RegisterIndex) {
	b.emit(EncodeIM32F(EncodeAB(OpFLtImB32, uint8(x), uint8(z)), y))
}

func (b *Builder) FEq64(x, y, z RegisterIndex) { b.emit(EncodeABC(OpFEq64, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) FEqIm64(x float64, y, z RegisterIndex) {
	b.emit(EncodeAB(OpFEqIm64, uint8(y), uint8(z)))
	b.emit(EncodeIM64F(x))
}
func (b *Builder) FLt64(x, y, z RegisterIndex) { b.emit(EncodeABC(OpFLt64, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) FLtImA64(x float64, y, z RegisterIndex) {
	b.emit(EncodeAB(OpFLtImA64, uint8(y), uint8(z)))
	b.emit(EncodeIM64F(x))
}
func (b *Builder) FLtImB64(x RegisterIndex, y float64, z RegisterIndex) {
	b.emit(EncodeAB(OpFLtImB64, uint8(x), uint8(z)))
	b.emit(EncodeIM64F(y))
}

func (b *Builder) SEq64(x, y, z RegisterIndex) { b.emit(EncodeABC(OpSEq64, uint8(x), uint8(y), uint8(z))) }
func (b *Builder) SEqIm64(x uint64, y, z RegisterIndex) {
	b.emit(EncodeAB(OpSEqIm64, uint8(y), uint8(z)))
	b.emit(EncodeIM64(x))
}
func (b *Builder) SLt64(x, y, z RegisterIndex) { b.emit(EncodeABC(OpSLt64, uint8(x), uint8(y), uint8(z))) }

// CallV emits a CALL_V with its trailing register-argument words.
func (b *Builder) CallV(fn FunctionIndex, out RegisterIndex, args ...RegisterIndex) {
	b.emit(EncodeW0W1(OpCallV, uint16(fn), uint8(out)))
	b.instrs = EncodeRegisters(b.instrs, args)
}

// TailCallV emits a TAIL_CALL_V with its trailing register-argument words.
func (b *Builder) TailCallV(fn FunctionIndex, args ...RegisterIndex) {
	b.emit(EncodeW0W1(OpTailCallV, uint16(fn), 0))
	b.instrs = EncodeRegisters(b.instrs, args)
}

func (b *Builder) RetV(src RegisterIndex) { b.emit(EncodeA(OpRetV, uint8(src))) }
