package analysis

import (
	"sort"

	"evmdis/internal/disasm"
	"evmdis/internal/opcode"
)

// OpCount is the number of occurrences of one mnemonic.
type OpCount struct {
	Op    string `json:"op" yaml:"op"`
	Count int    `json:"count" yaml:"count"`
}

// Stats summarises a decoded stream.
type Stats struct {
	Instructions int       `json:"instructions" yaml:"instructions"`
	Bytes        int       `json:"bytes" yaml:"bytes"`
	Push         int       `json:"push" yaml:"push"`
	Dup          int       `json:"dup" yaml:"dup"`
	Swap         int       `json:"swap" yaml:"swap"`
	Log          int       `json:"log" yaml:"log"`
	Invalid      int       `json:"invalid" yaml:"invalid"`
	Truncated    bool      `json:"truncated" yaml:"truncated"`
	Histogram    []OpCount `json:"histogram" yaml:"histogram"`
}

// Collect computes statistics for stream. The histogram is ordered by count,
// highest first, with ties broken by mnemonic.
func Collect(stream disasm.Stream) Stats {
	st := Stats{
		Instructions: len(stream),
		Bytes:        stream.Size(),
	}

	counts := make(map[opcode.Opcode]int)
	for i, inst := range stream {
		counts[inst.Op]++
		switch {
		case inst.Op.IsPush():
			st.Push++
			if i == len(stream)-1 && len(inst.Operand) < inst.Op.PushWidth() {
				st.Truncated = true
			}
		case inst.Op.IsDup():
			st.Dup++
		case inst.Op.IsSwap():
			st.Swap++
		case inst.Op.IsLog():
			st.Log++
		case inst.Op == opcode.INVALID:
			st.Invalid++
		}
	}

	st.Histogram = make([]OpCount, 0, len(counts))
	for op, n := range counts {
		st.Histogram = append(st.Histogram, OpCount{Op: op.String(), Count: n})
	}
	sort.Slice(st.Histogram, func(i, j int) bool {
		a, b := st.Histogram[i], st.Histogram[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Op < b.Op
	})
	return st
}

// Count returns the number of occurrences of op.
func (st Stats) Count(op opcode.Opcode) int {
	name := op.String()
	for _, c := range st.Histogram {
		if c.Op == name {
			return c.Count
		}
	}
	return 0
}
