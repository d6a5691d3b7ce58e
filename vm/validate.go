package vm

import (
	"errors"
	"fmt"
)

// Validate walks a Program's static structure and reports every
// out-of-range index or malformed shape it can detect without running
// the engine: function/global indices embedded in instructions, the
// block indices of IF_NZ/WHEN_NZ/BLOCK, the register indices of call
// argument lists, and arg counts against register counts. Register
// operands of other instructions and BR/RE depths are not checked.
// spec.md §7.3 leaves producing and
// validating bytecode out of scope for the engine itself but calls out
// that "a production implementation should provide an optional
// validation pass" — this is that pass, run once at load time so a
// malformed Program fails fast instead of tripping Invoke's recover
// boundary mid-execution.
func Validate(p *Program) error {
	var errs []error

	for gi, g := range p.Globals {
		width := uint32(4)
		if g.Kind == Global64 {
			width = 8
		}
		if uint64(g.Offset)+uint64(width) > uint64(len(p.GlobalMemory)) {
			errs = append(errs, fmt.Errorf("global %d: offset %d+%d exceeds memory size %d",
				gi, g.Offset, width, len(p.GlobalMemory)))
		}
	}

	for fi := range p.Functions {
		if err := validateFunction(p, FunctionIndex(fi)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateFunction(p *Program, idx FunctionIndex) error {
	fn := &p.Functions[idx]
	var errs []error

	if fn.ArgCount > fn.RegisterCount {
		errs = append(errs, fmt.Errorf("function %d: arg count %d exceeds register count %d",
			idx, fn.ArgCount, fn.RegisterCount))
	}
	if len(fn.Bytecode.Blocks) == 0 {
		errs = append(errs, fmt.Errorf("function %d: no entry block", idx))
		return errors.Join(errs...)
	}

	instrs := fn.Bytecode.Instructions
	n := uint32(len(instrs))
	for _, start := range fn.Bytecode.Blocks {
		if start >= n {
			errs = append(errs, fmt.Errorf("function %d: block start %d out of range (%d instructions)",
				idx, start, n))
		}
	}

	for ip := uint32(0); ip < n; ip++ {
		word := instrs[ip]
		op := DecodeOpCode(word)
		if op >= opCodeCount {
			errs = append(errs, fmt.Errorf("function %d: instruction %d has invalid opcode %d",
				idx, ip, op))
			continue
		}

		switch op {
		case OpReadGlobal32, OpReadGlobal64:
			gi := GlobalIndex(DecodeW0(word))
			if int(gi) >= len(p.Globals) {
				errs = append(errs, fmt.Errorf("function %d: instruction %d references global %d out of range",
					idx, ip, gi))
			}
		case OpIfNz:
			checkBlockIndex(&errs, idx, ip, fn, DecodeA(word), false)
			checkBlockIndex(&errs, idx, ip, fn, DecodeB(word), false)
		case OpWhenNz, OpBlock:
			checkBlockIndex(&errs, idx, ip, fn, DecodeA(word), false)
		case OpCallV, OpTailCallV:
			callee := FunctionIndex(DecodeW0(word))
			if int(callee) >= len(p.Functions) {
				errs = append(errs, fmt.Errorf("function %d: instruction %d calls function %d out of range",
					idx, ip, callee))
			} else {
				argCount := int(p.Functions[callee].ArgCount)
				slots := ArgSlotCount(argCount)
				if ip+1+uint32(slots) > n {
					errs = append(errs, fmt.Errorf("function %d: instruction %d's argument list runs past end of bytecode",
						idx, ip))
				} else {
					for _, r := range DecodeRegisters(instrs[ip+1:], argCount) {
						if r >= fn.RegisterCount {
							errs = append(errs, fmt.Errorf("function %d: instruction %d passes out-of-range register %d",
								idx, ip, r))
						}
					}
				}
				ip += uint32(slots)
			}
		}

		if op.HasIM64() {
			ip++
		}
	}

	return errors.Join(errs...)
}

func checkBlockIndex(errs *[]error, idx FunctionIndex, ip uint32, fn *Function, b uint8, relative bool) {
	if int(b) >= len(fn.Bytecode.Blocks) {
		*errs = append(*errs, fmt.Errorf("function %d: instruction %d references block %d out of range (%d blocks)",
			idx, ip, b, len(fn.Bytecode.Blocks)))
	}
}
