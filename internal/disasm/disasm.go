// Package disasm decodes EVM bytecode into instructions.
//
// Decoding is a tokenization step only: each call consumes one opcode byte
// and, for the push family, up to the declared number of operand bytes.
package disasm

import (
	"encoding/hex"
	"sort"

	"evmdis/internal/opcode"
)

// Instruction is a decoded opcode with its immediate operand. The operand is
// empty for every opcode outside the push family and may be shorter than the
// declared width when the code ended mid-push.
type Instruction struct {
	Op      opcode.Opcode
	Operand []byte
}

// String renders the mnemonic followed by the operand as 0x-prefixed
// lowercase hex, e.g. "PUSH2 0xdead". Instructions without an operand render
// as the bare mnemonic.
func (i Instruction) String() string {
	if len(i.Operand) == 0 {
		return i.Op.String()
	}
	return i.Op.String() + " 0x" + hex.EncodeToString(i.Operand)
}

// Size is the number of code bytes the instruction was decoded from.
func (i Instruction) Size() int {
	return 1 + len(i.Operand)
}

// Cursor is the undecoded suffix of a code buffer. The buffer is never
// modified; only the read position advances.
type Cursor struct {
	code []byte
	pos  int
}

// NewCursor returns a cursor positioned at the start of code.
func NewCursor(code []byte) *Cursor {
	return &Cursor{code: code}
}

// Len returns the number of bytes not yet consumed.
func (c *Cursor) Len() int {
	return len(c.code) - c.pos
}

// Empty reports whether every byte has been consumed.
func (c *Cursor) Empty() bool {
	return c.pos >= len(c.code)
}

// Offset returns the position of the next byte within the code buffer.
func (c *Cursor) Offset() int {
	return c.pos
}

// take removes up to n bytes from the front and returns a copy of them.
func (c *Cursor) take(n int) []byte {
	if rest := c.Len(); n > rest {
		n = rest
	}
	out := make([]byte, n)
	copy(out, c.code[c.pos:c.pos+n])
	c.pos += n
	return out
}

// DecodeNext consumes one instruction from the front of c.
//
// The cursor must not be empty; callers loop on Empty. A push whose operand
// runs past the end of the code takes the bytes that remain and reports no
// error.
func DecodeNext(c *Cursor) Instruction {
	if c.Empty() {
		panic("disasm: decode on exhausted cursor")
	}

	op := opcode.Classify(c.code[c.pos])
	c.pos++

	inst := Instruction{Op: op}
	if width := op.PushWidth(); width > 0 {
		inst.Operand = c.take(width)
	}
	return inst
}

// Inst is an instruction located at its program counter.
type Inst struct {
	PC int
	Instruction
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Decode decodes code until it is exhausted.
func Decode(code []byte) Stream {
	stream := make(Stream, 0, len(code)/2+1)
	c := NewCursor(code)
	for !c.Empty() {
		pc := c.Offset()
		stream = append(stream, Inst{PC: pc, Instruction: DecodeNext(c)})
	}
	return stream
}

// Size is the number of code bytes covered by the stream.
func (s Stream) Size() int {
	n := 0
	for _, inst := range s {
		n += inst.Size()
	}
	return n
}

// Find returns the index of the instruction whose bytes cover pc.
func (s Stream) Find(pc int) (int, bool) {
	i := sort.Search(len(s), func(i int) bool {
		return s[i].PC > pc
	}) - 1
	if i < 0 || pc >= s[i].PC+s[i].Size() {
		return 0, false
	}
	return i, true
}
