package vm

import (
	"fmt"
	"strings"
)

// DebugInfo optionally names functions and their blocks for disassembly
// output, playing the same side-table role as KTStephano-GVM's
// debugSymbols map in vm.go — kept separate from Program so that a
// stripped release build can ship without it.
type DebugInfo struct {
	FunctionNames map[FunctionIndex]string
	BlockNames    map[FunctionIndex]map[BlockIndex]string
}

func (d *DebugInfo) functionName(idx FunctionIndex) string {
	if d != nil {
		if name, ok := d.FunctionNames[idx]; ok {
			return name
		}
	}
	return fmt.Sprintf("fn%d", idx)
}

func (d *DebugInfo) blockName(fn FunctionIndex, b BlockIndex) string {
	if d != nil {
		if names, ok := d.BlockNames[fn]; ok {
			if name, ok := names[b]; ok {
				return name
			}
		}
	}
	return fmt.Sprintf("block%d", b)
}

// Disassemble renders every function of a Program as text, one function
// at a time, blocks visited by a worklist seeded from block 0 and
// extended with every branch target discovered along the way — the
// same traversal original_source/main.c's disas() uses. Each block
// reachable from the entry block is printed once, even if nothing falls
// through into it; blocks unreachable from the entry block are not printed.
func Disassemble(p *Program, info *DebugInfo) string {
	var out strings.Builder
	for fi := range p.Functions {
		idx := FunctionIndex(fi)
		disassembleFunction(&out, p, idx, info)
	}
	return out.String()
}

func disassembleFunction(out *strings.Builder, p *Program, idx FunctionIndex, info *DebugInfo) {
	fn := &p.Functions[idx]
	fmt.Fprintf(out, "function %s(args=%d, registers=%d):\n",
		info.functionName(idx), fn.ArgCount, fn.RegisterCount)

	visited := make([]bool, len(fn.Bytecode.Blocks))
	worklist := []BlockIndex{0}

	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]
		if visited[b] {
			continue
		}
		visited[b] = true

		fmt.Fprintf(out, "  %s:\n", info.blockName(idx, b))
		targets := disassembleBlock(out, p, idx, fn, b, info)
		worklist = append(worklist, targets...)
	}
}

// disassembleBlock prints one block's instructions and returns the block
// indices it can branch to (IF_NZ/WHEN_NZ/BLOCK operands), for the
// worklist to chase.
func disassembleBlock(out *strings.Builder, p *Program, fnIdx FunctionIndex, fn *Function, b BlockIndex, info *DebugInfo) []BlockIndex {
	instrs := fn.Bytecode.Instructions
	ip := fn.Bytecode.Start(b)

	var targets []BlockIndex
	for ip < uint32(len(instrs)) {
		word := instrs[ip]
		op := DecodeOpCode(word)
		startIP := ip
		ip++

		switch op {
		case OpHalt:
			fmt.Fprintf(out, "    %4d HALT\n", startIP)
			return targets
		case OpUnreachable:
			fmt.Fprintf(out, "    %4d UNREACHABLE\n", startIP)
			return targets
		case OpRetV:
			fmt.Fprintf(out, "    %4d RET_V r%d\n", startIP, DecodeA(word))
			return targets

		case OpReadGlobal32:
			fmt.Fprintf(out, "    %4d READ_GLOBAL_32 g%d, r%d\n", startIP, DecodeW0(word), DecodeW1(word))
		case OpReadGlobal64:
			fmt.Fprintf(out, "    %4d READ_GLOBAL_64 g%d, r%d\n", startIP, DecodeW0(word), DecodeW1(word))

		case OpCopyIm64:
			imm := instrs[ip]
			ip++
			fmt.Fprintf(out, "    %4d COPY_IM_64 r%d, #%#016x\n", startIP, DecodeA(word), uint64(imm))

		case OpIfNz:
			then, els := BlockIndex(DecodeA(word)), BlockIndex(DecodeB(word))
			fmt.Fprintf(out, "    %4d IF_NZ %s, %s, r%d\n", startIP,
				info.blockName(fnIdx, then), info.blockName(fnIdx, els), DecodeC(word))
			targets = append(targets, then, els)

		case OpWhenNz:
			blk := BlockIndex(DecodeA(word))
			fmt.Fprintf(out, "    %4d WHEN_NZ %s, r%d\n", startIP, info.blockName(fnIdx, blk), DecodeB(word))
			targets = append(targets, blk)

		case OpBlock:
			blk := BlockIndex(DecodeA(word))
			fmt.Fprintf(out, "    %4d BLOCK %s\n", startIP, info.blockName(fnIdx, blk))
			targets = append(targets, blk)

		case OpBr:
			fmt.Fprintf(out, "    %4d BR %d\n", startIP, DecodeA(word))
			return targets
		case OpBrNz:
			fmt.Fprintf(out, "    %4d BR_NZ %d, r%d\n", startIP, DecodeA(word), DecodeB(word))
		case OpRe:
			fmt.Fprintf(out, "    %4d RE %d\n", startIP, DecodeA(word))
			return targets
		case OpReNz:
			fmt.Fprintf(out, "    %4d RE_NZ %d, r%d\n", startIP, DecodeA(word), DecodeB(word))

		case OpCallV, OpTailCallV:
			calleeIdx := FunctionIndex(DecodeW0(word))
			callee := p.Function(calleeIdx)
			argCount := int(callee.ArgCount)
			slots := ArgSlotCount(argCount)
			args := DecodeRegisters(instrs[ip:], argCount)
			ip += uint32(slots)

			var argStrs []string
			for _, r := range args {
				argStrs = append(argStrs, fmt.Sprintf("r%d", r))
			}
			if op == OpCallV {
				fmt.Fprintf(out, "    %4d CALL_V %s, r%d, (%s)\n", startIP,
					info.functionName(calleeIdx), DecodeW1(word), strings.Join(argStrs, ", "))
			} else {
				fmt.Fprintf(out, "    %4d TAIL_CALL_V %s, (%s)\n", startIP,
					info.functionName(calleeIdx), strings.Join(argStrs, ", "))
				return targets
			}

		default:
			if op.HasIM64() {
				imm := instrs[ip]
				ip++
				fmt.Fprintf(out, "    %4d %s r%d, r%d, #%#016x\n", startIP, op, DecodeA(word), DecodeB(word), uint64(imm))
			} else if op.HasIM32() {
				fmt.Fprintf(out, "    %4d %s r%d, r%d, #%v\n", startIP, op, DecodeA(word), DecodeB(word), DecodeIM32F(word))
			} else {
				fmt.Fprintf(out, "    %4d %s r%d, r%d, r%d\n", startIP, op, DecodeA(word), DecodeB(word), DecodeC(word))
			}
		}
	}
	return targets
}
