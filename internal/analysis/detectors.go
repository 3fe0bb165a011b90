package analysis

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"evmdis/internal/opcode"
)

// InvalidDetector reports bytes with no assigned mnemonic.
type InvalidDetector struct{}

func (InvalidDetector) Detect(in Input, findings []Finding) []Finding {
	for _, inst := range in.Stream {
		if inst.Op != opcode.INVALID {
			continue
		}
		findings = append(findings, Finding{
			PC:      inst.PC,
			Kind:    KindInvalid,
			Message: fmt.Sprintf("invalid opcode 0x%02x", in.Code[inst.PC]),
			Metadata: map[string]any{
				"byte": in.Code[inst.PC],
			},
		})
	}
	return findings
}

// TruncatedPushDetector reports a push whose operand ran past the end of the
// code. Only the last instruction of a stream can be truncated.
type TruncatedPushDetector struct{}

func (TruncatedPushDetector) Detect(in Input, findings []Finding) []Finding {
	if len(in.Stream) == 0 {
		return findings
	}
	last := in.Stream[len(in.Stream)-1]
	width := last.Op.PushWidth()
	if len(last.Operand) >= width {
		return findings
	}
	return append(findings, Finding{
		PC:      last.PC,
		Kind:    KindTruncated,
		Message: fmt.Sprintf("%s operand truncated: %d of %d bytes", last.Op, len(last.Operand), width),
		Metadata: map[string]any{
			"want": width,
			"got":  len(last.Operand),
		},
	})
}

// SelectorDetector finds 4-byte function selectors in a dispatcher: a PUSH4
// whose value is compared with EQ within Window instructions.
type SelectorDetector struct {
	Window int
}

func (d SelectorDetector) Detect(in Input, findings []Finding) []Finding {
	seen := make(map[string]bool)
	for i, inst := range in.Stream {
		if inst.Op != opcode.PUSH4 || len(inst.Operand) != 4 {
			continue
		}
		if !d.comparedAfter(in, i) {
			continue
		}
		selector := "0x" + hex.EncodeToString(inst.Operand)
		if seen[selector] {
			continue
		}
		seen[selector] = true
		findings = append(findings, Finding{
			PC:      inst.PC,
			Kind:    KindSelector,
			Message: "selector " + selector,
			Metadata: map[string]any{
				"selector": selector,
			},
		})
	}
	return findings
}

func (d SelectorDetector) comparedAfter(in Input, i int) bool {
	end := i + d.Window
	if end >= len(in.Stream) {
		end = len(in.Stream) - 1
	}
	for j := i + 1; j <= end; j++ {
		switch op := in.Stream[j].Op; {
		case op == opcode.EQ:
			return true
		case op == opcode.JUMPI, op == opcode.JUMP, op.IsPush():
			return false
		}
	}
	return false
}

// StringDetector reports push operands that read as printable ASCII.
// Trailing zero padding, as left-aligned short strings carry, is ignored.
type StringDetector struct {
	MinLen int
}

func (d StringDetector) Detect(in Input, findings []Finding) []Finding {
	for _, inst := range in.Stream {
		if len(inst.Operand) == 0 {
			continue
		}
		text := bytes.TrimRight(inst.Operand, "\x00")
		if len(text) < d.MinLen || !isPrintableASCII(text) {
			continue
		}
		findings = append(findings, Finding{
			PC:      inst.PC,
			Kind:    KindString,
			Message: fmt.Sprintf("%q", text),
			Metadata: map[string]any{
				"string": string(text),
			},
		})
	}
	return findings
}

func isPrintableASCII(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
