package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadGlobal32ZeroExtends(t *testing.T) {
	mem := make([]byte, 4)
	mem[0], mem[1], mem[2], mem[3] = 0xff, 0xff, 0xff, 0xff
	p := &Program{Globals: []GlobalSlot{{Offset: 0, Kind: Global32}}, GlobalMemory: mem}

	got := p.ReadGlobal32(0)
	assert.Equal(t, uint64(0xffffffff), got, "upper 32 bits must be zero, not sign-extended")
}

func TestReadGlobal64RoundTrip(t *testing.T) {
	mem := make([]byte, 8)
	want := uint64(0x0102030405060708)
	for i := 0; i < 8; i++ {
		mem[i] = byte(want >> (8 * i))
	}
	p := &Program{Globals: []GlobalSlot{{Offset: 0, Kind: Global64}}, GlobalMemory: mem}

	assert.Equal(t, want, p.ReadGlobal64(0))
}

func TestBytecodeStart(t *testing.T) {
	b := Bytecode{Blocks: []uint32{0, 5, 12}}
	assert.Equal(t, uint32(0), b.Start(0))
	assert.Equal(t, uint32(5), b.Start(1))
	assert.Equal(t, uint32(12), b.Start(2))
}
