package disasm

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evmdis/internal/opcode"
)

func TestDecodeNextPush(t *testing.T) {
	t.Parallel()

	t.Run("push1", func(t *testing.T) {
		t.Parallel()

		c := NewCursor([]byte{0x60, 0xab})
		inst := DecodeNext(c)
		assert.Equal(t, opcode.PUSH1, inst.Op)
		assert.Equal(t, []byte{0xab}, inst.Operand)
		assert.True(t, c.Empty())
	})

	t.Run("push32", func(t *testing.T) {
		t.Parallel()

		operand := make([]byte, 32)
		for i := range operand {
			operand[i] = byte(i)
		}
		code := append([]byte{0x7f}, operand...)

		c := NewCursor(code)
		inst := DecodeNext(c)
		assert.Equal(t, opcode.PUSH32, inst.Op)
		assert.Equal(t, operand, inst.Operand)
		assert.True(t, c.Empty())
	})

	t.Run("push leaves following bytes", func(t *testing.T) {
		t.Parallel()

		c := NewCursor([]byte{0x61, 0x01, 0x02, 0x01})
		inst := DecodeNext(c)
		assert.Equal(t, opcode.PUSH2, inst.Op)
		assert.Equal(t, []byte{0x01, 0x02}, inst.Operand)
		assert.Equal(t, 1, c.Len())
		assert.Equal(t, 3, c.Offset())

		next := DecodeNext(c)
		assert.Equal(t, opcode.ADD, next.Op)
		assert.Empty(t, next.Operand)
	})
}

func TestDecodeNextTruncated(t *testing.T) {
	t.Parallel()

	c := NewCursor([]byte{0x61})
	inst := DecodeNext(c)
	assert.Equal(t, opcode.PUSH2, inst.Op)
	assert.Empty(t, inst.Operand)
	assert.True(t, c.Empty())

	c = NewCursor([]byte{0x61, 0x05})
	inst = DecodeNext(c)
	assert.Equal(t, opcode.PUSH2, inst.Op)
	assert.Equal(t, []byte{0x05}, inst.Operand)
	assert.True(t, c.Empty())
}

func TestDecodeNextNonPush(t *testing.T) {
	t.Parallel()

	for _, op := range []opcode.Opcode{opcode.ADD, opcode.JUMP, opcode.STOP, opcode.DUP1, opcode.LOG2} {
		c := NewCursor([]byte{byte(op), 0x60, 0xff, 0x7f})
		inst := DecodeNext(c)
		assert.Equal(t, op, inst.Op)
		assert.Empty(t, inst.Operand, op.String())
		assert.Equal(t, 1, c.Offset(), op.String())
	}

	c := NewCursor([]byte{0x0c, 0x60, 0x01})
	inst := DecodeNext(c)
	assert.Equal(t, opcode.INVALID, inst.Op)
	assert.Empty(t, inst.Operand)
	assert.Equal(t, 1, c.Offset())
}

func TestDecodeNextEmptyCursor(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		DecodeNext(NewCursor(nil))
	})
}

func TestDecodeNextOperandIsCopied(t *testing.T) {
	t.Parallel()

	code := []byte{0x60, 0x01}
	inst := DecodeNext(NewCursor(code))
	code[1] = 0xff
	assert.Equal(t, []byte{0x01}, inst.Operand)
}

func TestInstructionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ADD", Instruction{Op: opcode.ADD}.String())
	assert.Equal(t, "PUSH2 0xdead", Instruction{Op: opcode.PUSH2, Operand: []byte{0xde, 0xad}}.String())
	assert.Equal(t, "PUSH2", Instruction{Op: opcode.PUSH2}.String())
	assert.Equal(t, "INVALID", Instruction{Op: opcode.INVALID}.String())
}

func TestDecode(t *testing.T) {
	t.Parallel()

	// PUSH1 0x80 PUSH1 0x40 MSTORE CALLVALUE DUP1 ISZERO PUSH2 0x0010 JUMPI
	code := []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0x34, 0x80, 0x15, 0x61, 0x00, 0x10, 0x57}

	stream := Decode(code)
	require.Len(t, stream, 8)

	var rendered []string
	var pcs []int
	for _, inst := range stream {
		rendered = append(rendered, inst.String())
		pcs = append(pcs, inst.PC)
	}
	assert.Equal(t,
		[]string{
			"PUSH1 0x80",
			"PUSH1 0x40",
			"MSTORE",
			"CALLVALUE",
			"DUP1",
			"ISZERO",
			"PUSH2 0x0010",
			"JUMPI",
		},
		rendered,
	)
	assert.Equal(t, []int{0, 2, 4, 5, 6, 7, 8, 11}, pcs)
	assert.Equal(t, len(code), stream.Size())

	i, ok := stream.Find(8)
	require.True(t, ok)
	assert.Equal(t, opcode.PUSH2, stream[i].Op)

	i, ok = stream.Find(10)
	require.True(t, ok)
	assert.Equal(t, 8, stream[i].PC)

	i, ok = stream.Find(0)
	require.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = stream.Find(len(code))
	assert.False(t, ok)
	_, ok = stream.Find(-1)
	assert.False(t, ok)
}

func TestDecodeEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Decode(nil))
	assert.Empty(t, Decode([]byte{}))
}

func TestDecodePartitionsStream(t *testing.T) {
	t.Parallel()

	properties := gopter.NewProperties(nil)

	properties.Property("every byte is consumed exactly once", prop.ForAll(
		func(code []byte) bool {
			stream := Decode(code)
			if stream.Size() != len(code) {
				return false
			}
			pc := 0
			for _, inst := range stream {
				if inst.PC != pc {
					return false
				}
				if code[pc] != byte(inst.Op) && inst.Op != opcode.INVALID {
					return false
				}
				pc += inst.Size()
			}
			return pc == len(code)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("only a trailing push is short", prop.ForAll(
		func(code []byte) bool {
			stream := Decode(code)
			for i, inst := range stream {
				width := inst.Op.PushWidth()
				if width == 0 && len(inst.Operand) != 0 {
					return false
				}
				if len(inst.Operand) < width && i != len(stream)-1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
