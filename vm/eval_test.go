package vm_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fibervm/examples"
	"fibervm/vm"
)

// These scenarios are spec.md's testable-properties end-to-end cases.
// The result scenarios are built with the bundled examples package; the
// trap and comparison cases build their programs directly with vm.Builder.

func TestFibonacci32(t *testing.T) {
	program := examples.BuildFibonacciProgram()
	require.NoError(t, vm.Validate(program))

	fiber := vm.NewDefaultFiber(program)
	result, trap := vm.Invoke(fiber, examples.FibonacciFunctionIndex, []uint64{32})

	require.Equal(t, vm.Okay, trap)
	assert.Equal(t, uint64(2178309), result)
}

func TestAckermannTailCallDoesNotOverflowCallStack(t *testing.T) {
	program := examples.BuildAckermannProgram()
	require.NoError(t, vm.Validate(program))

	// Only the outer recursion is tail-called: the inner ack(m, n-1) is a
	// CALL_V, so ack(3, 8) still nests about 2044 call frames deep.
	fiber := vm.NewFiber(program, vm.DefaultDataStackWords, vm.DefaultCallStackFrames,
		vm.DefaultCallStackFrames*vm.DefaultBlockFramesPer)
	args := []uint64{
		uint64(vm.EncodeIM64F(3.0)),
		uint64(vm.EncodeIM64F(8.0)),
	}
	result, trap := vm.Invoke(fiber, examples.AckermannFunctionIndex, args)

	require.Equal(t, vm.Okay, trap)
	assert.Equal(t, 2045.0, math.Float64frombits(result))
}

func TestLoopAckermann(t *testing.T) {
	program := examples.BuildLoopAckermannProgram()
	require.NoError(t, vm.Validate(program))

	fiber := vm.NewDefaultFiber(program)
	args := []uint64{
		uint64(vm.EncodeIM64F(3.0)),
		uint64(vm.EncodeIM64F(8.0)),
	}
	result, trap := vm.Invoke(fiber, examples.LoopAckermannFunctionIndex, args)

	require.Equal(t, vm.Okay, trap)
	assert.Equal(t, 20450.0, math.Float64frombits(result))
}

func TestGlobalReadSum(t *testing.T) {
	program := examples.BuildGlobalSumProgram()
	require.NoError(t, vm.Validate(program))

	fiber := vm.NewDefaultFiber(program)
	result, trap := vm.Invoke(fiber, examples.GlobalSumFunctionIndex, nil)

	require.Equal(t, vm.Okay, trap)
	assert.Equal(t, uint64(3), result)
}

func TestUnreachableTrap(t *testing.T) {
	b := vm.NewBuilder()
	b.Block()
	b.Unreachable()
	program := &vm.Program{Functions: []vm.Function{{ArgCount: 0, RegisterCount: 1, Bytecode: b.Build()}}}

	fiber := vm.NewDefaultFiber(program)
	_, trap := vm.Invoke(fiber, 0, nil)

	assert.Equal(t, vm.TrapUnreachable, trap)
	assert.Equal(t, 1, trap.ExitCode())
}

func TestCallOverflowTrap(t *testing.T) {
	// A function that tail-calls itself forever quickly exhausts a
	// tiny call-stack budget... except TAIL_CALL_V must NOT grow the
	// call stack (that is the whole point of the optimization), so use
	// a non-tail self CALL_V to actually exercise TRAP_CALL_OVERFLOW.
	b := vm.NewBuilder()
	b.Block()
	b.CallV(0, 0)
	b.RetV(0)
	program := &vm.Program{Functions: []vm.Function{{ArgCount: 0, RegisterCount: 1, Bytecode: b.Build()}}}

	fiber := vm.NewFiber(program, vm.DefaultDataStackWords, 8, 8*vm.DefaultBlockFramesPer)
	_, trap := vm.Invoke(fiber, 0, nil)

	assert.Equal(t, vm.TrapCallOverflow, trap)
	assert.Equal(t, 2, trap.ExitCode())
}

func TestSLt64IsUnsignedComparison(t *testing.T) {
	// S_LT_64 compares the raw 64-bit cells as unsigned, matching
	// original_source/main.c's DO_S_LT_64 (stack_base is uint64_t*,
	// not int64_t*). 0xFFFFFFFFFFFFFFFF as int64 is -1, which would
	// sort below 1 under a signed comparison; unsigned it is the
	// largest possible value and must sort above 1.
	b := vm.NewBuilder()
	b.Block()
	b.CopyImU64(0, 0xFFFFFFFFFFFFFFFF)
	b.CopyImU64(1, 1)
	b.SLt64(0, 1, 2)
	b.RetV(2)
	program := &vm.Program{Functions: []vm.Function{{ArgCount: 0, RegisterCount: 3, Bytecode: b.Build()}}}

	fiber := vm.NewDefaultFiber(program)
	result, trap := vm.Invoke(fiber, 0, nil)

	require.Equal(t, vm.Okay, trap)
	assert.Equal(t, uint64(0), result)
}

func TestStackOverflowTrap(t *testing.T) {
	// A function with a huge register count, recursing non-tail,
	// exhausts the data stack long before the call stack.
	b := vm.NewBuilder()
	b.Block()
	b.CallV(0, 0)
	b.RetV(0)
	program := &vm.Program{Functions: []vm.Function{{ArgCount: 0, RegisterCount: 250, Bytecode: b.Build()}}}

	fiber := vm.NewFiber(program, 1000, 4096, 4096*vm.DefaultBlockFramesPer)
	_, trap := vm.Invoke(fiber, 0, nil)

	assert.Equal(t, vm.TrapStackOverflow, trap)
	assert.Equal(t, 3, trap.ExitCode())
}
