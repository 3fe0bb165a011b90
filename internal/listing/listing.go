// Package listing renders decoded programs as text, JSON, YAML and markdown.
package listing

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"evmdis/internal/analysis"
	"evmdis/internal/disasm"
	"evmdis/internal/ui/colorize"
)

// annotationColumn is where "; comment" starts on annotated lines.
const annotationColumn = 40

// Options control text rendering.
type Options struct {
	Offsets  bool // prefix lines with the program counter
	Annotate bool // append findings as comments
	Color    bool // highlight with the listing lexer
}

// Line formats one instruction. pc is ignored unless opts.Offsets is set.
func Line(inst disasm.Inst, notes []string, opts Options) string {
	var sb strings.Builder
	if opts.Offsets {
		fmt.Fprintf(&sb, "%06x  ", inst.PC)
	}
	sb.WriteString(inst.String())
	if opts.Annotate && len(notes) > 0 {
		if pad := annotationColumn - sb.Len(); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString("; ")
		sb.WriteString(strings.Join(notes, ", "))
	}
	return sb.String()
}

// Lines formats every instruction of stream, one entry per instruction.
func Lines(stream disasm.Stream, findings []analysis.Finding, opts Options) []string {
	notes := Notes(stream, findings)
	lines := make([]string, len(stream))
	for i, inst := range stream {
		lines[i] = Line(inst, notes[i], opts)
		if opts.Color {
			lines[i] = colorize.Line(lines[i])
		}
	}
	return lines
}

// Notes maps instruction indices to the messages of the findings that fall
// within them. Findings past the end of the stream go to the last
// instruction.
func Notes(stream disasm.Stream, findings []analysis.Finding) map[int][]string {
	notes := make(map[int][]string)
	if len(stream) == 0 {
		return notes
	}
	for _, f := range findings {
		i, ok := stream.Find(f.PC)
		if !ok {
			i = len(stream) - 1
		}
		notes[i] = append(notes[i], f.Message)
	}
	return notes
}

// Text writes the listing of stream to w.
func Text(w io.Writer, stream disasm.Stream, findings []analysis.Finding, opts Options) error {
	bw := bufio.NewWriter(w)
	for _, line := range Lines(stream, findings, opts) {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
