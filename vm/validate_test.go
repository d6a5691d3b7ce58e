package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedProgram(t *testing.T) {
	b := NewBuilder()
	b.Block()
	b.RetV(0)
	p := &Program{Functions: []Function{{ArgCount: 0, RegisterCount: 1, Bytecode: b.Build()}}}

	assert.NoError(t, Validate(p))
}

func TestValidateRejectsOutOfRangeGlobal(t *testing.T) {
	b := NewBuilder()
	b.Block()
	b.ReadGlobal64(5, 0)
	b.RetV(0)
	p := &Program{Functions: []Function{{ArgCount: 0, RegisterCount: 1, Bytecode: b.Build()}}}

	err := Validate(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global 5")
}

func TestValidateRejectsOutOfRangeBlock(t *testing.T) {
	b := NewBuilder()
	b.Block()
	b.WhenNz(9, 0)
	b.RetV(0)
	p := &Program{Functions: []Function{{ArgCount: 0, RegisterCount: 1, Bytecode: b.Build()}}}

	err := Validate(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block 9")
}

func TestValidateRejectsArgCountExceedingRegisters(t *testing.T) {
	b := NewBuilder()
	b.Block()
	b.RetV(0)
	p := &Program{Functions: []Function{{ArgCount: 3, RegisterCount: 2, Bytecode: b.Build()}}}

	err := Validate(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arg count")
}

func TestValidateRejectsOutOfRangeCallTarget(t *testing.T) {
	b := NewBuilder()
	b.Block()
	b.CallV(99, 0)
	b.RetV(0)
	p := &Program{Functions: []Function{{ArgCount: 0, RegisterCount: 1, Bytecode: b.Build()}}}

	err := Validate(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function 99")
}

func TestValidateGlobalMemoryBounds(t *testing.T) {
	p := &Program{
		Globals:      []GlobalSlot{{Offset: 10, Kind: Global64}},
		GlobalMemory: make([]byte, 12),
	}
	err := Validate(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds memory size")
}
