package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisassembleVisitsEveryBlockOnce(t *testing.T) {
	b := NewBuilder()
	b.Block() // block 0
	b.IfNz(1, 2, 0)

	b.Block() // block 1
	b.RetV(0)

	b.Block() // block 2
	b.RetV(0)

	p := &Program{Functions: []Function{{ArgCount: 1, RegisterCount: 1, Bytecode: b.Build()}}}

	out := Disassemble(p, nil)
	assert.Equal(t, 1, strings.Count(out, "block0:"))
	assert.Equal(t, 1, strings.Count(out, "block1:"))
	assert.Equal(t, 1, strings.Count(out, "block2:"))
	assert.Contains(t, out, "IF_NZ")
	assert.Contains(t, out, "RET_V")
}

func TestDisassembleUsesDebugInfoNames(t *testing.T) {
	b := NewBuilder()
	b.Block()
	b.RetV(0)
	p := &Program{Functions: []Function{{ArgCount: 0, RegisterCount: 1, Bytecode: b.Build()}}}

	info := &DebugInfo{FunctionNames: map[FunctionIndex]string{0: "answer"}}
	out := Disassemble(p, info)
	assert.Contains(t, out, "answer(")
}

func TestDisassembleStopsAtHalt(t *testing.T) {
	b := NewBuilder()
	b.Block()
	b.Halt()
	p := &Program{Functions: []Function{{ArgCount: 0, RegisterCount: 1, Bytecode: b.Build()}}}

	out := Disassemble(p, nil)
	assert.Contains(t, out, "HALT")
}
