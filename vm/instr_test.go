package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeOpCode(t *testing.T) {
	for op := OpHalt; op < opCodeCount; op++ {
		i := EncodeOp(op)
		assert.Equal(t, op, DecodeOpCode(i), "opcode %s round-trip", op)
	}
}

func TestEncodeDecodeABC(t *testing.T) {
	i := EncodeABC(OpFAdd64, 7, 42, 200)
	assert.Equal(t, OpFAdd64, DecodeOpCode(i))
	assert.Equal(t, uint8(7), DecodeA(i))
	assert.Equal(t, uint8(42), DecodeB(i))
	assert.Equal(t, uint8(200), DecodeC(i))
}

func TestEncodeDecodeW0W1(t *testing.T) {
	i := EncodeW0W1(OpCallV, 1234, 9)
	assert.Equal(t, OpCallV, DecodeOpCode(i))
	assert.Equal(t, uint16(1234), DecodeW0(i))
	assert.Equal(t, uint8(9), DecodeW1(i))
}

func TestEncodeDecodeIM32Float(t *testing.T) {
	base := EncodeAB(OpFAddIm32, 1, 2)
	i := EncodeIM32F(base, 3.5)
	assert.Equal(t, float32(3.5), DecodeIM32F(i))
	assert.Equal(t, uint8(1), DecodeA(i))
	assert.Equal(t, uint8(2), DecodeB(i))
}

func TestEncodeDecodeIM64(t *testing.T) {
	i := EncodeIM64(0xdeadbeefcafebabe)
	assert.Equal(t, uint64(0xdeadbeefcafebabe), DecodeIM64(i))

	f := EncodeIM64F(2.71828)
	assert.Equal(t, 2.71828, DecodeIM64F(f))
}

func TestArgSlotCount(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 7: 1, 8: 1, 9: 2, 16: 2, 17: 3}
	for n, want := range cases {
		assert.Equal(t, want, ArgSlotCount(n), "n=%d", n)
	}
}

func TestEncodeDecodeRegisters(t *testing.T) {
	indices := []RegisterIndex{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	buf := EncodeRegisters(nil, indices)
	require.Len(t, buf, ArgSlotCount(len(indices)))

	decoded := DecodeRegisters(buf, len(indices))
	assert.Equal(t, indices, decoded)
}

func TestEncodeDecodeRegistersEmpty(t *testing.T) {
	buf := EncodeRegisters(nil, nil)
	assert.Empty(t, buf)
	assert.Empty(t, DecodeRegisters(buf, 0))
}
