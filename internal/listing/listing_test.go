package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evmdis/internal/analysis"
	"evmdis/internal/disasm"
	"evmdis/internal/loader"
)

// DUP1 PUSH4 0xa9059cbb EQ PUSH2 0x0030 JUMPI STOP 0x0c
const sample = "0x8063a9059cbb1461003057000c"

func decodeSample(t *testing.T) (*loader.Program, disasm.Stream, []analysis.Finding) {
	t.Helper()

	prog, err := loader.ParseProgramHex("sample", sample)
	require.NoError(t, err)
	stream := disasm.Decode(prog.Code)
	chain, err := analysis.ByName([]string{"selectors", "invalid"})
	require.NoError(t, err)
	return prog, stream, chain.Detect(analysis.Input{Code: prog.Code, Stream: stream}, nil)
}

func assertText(t *testing.T, expected, actual string) {
	t.Helper()

	if expected != actual {
		t.Errorf("listing mismatch:\n%s", diff.LineDiff(expected, actual))
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	_, stream, findings := decodeSample(t)

	expected := strings.Join([]string{
		"000000  DUP1",
		fmt.Sprintf("%-40s%s", "000001  PUSH4 0xa9059cbb", "; selector 0xa9059cbb"),
		"000006  EQ",
		"000007  PUSH2 0x0030",
		"00000a  JUMPI",
		"00000b  STOP",
		fmt.Sprintf("%-40s%s", "00000c  INVALID", "; invalid opcode 0x0c"),
	}, "\n") + "\n"

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, stream, findings, Options{Offsets: true, Annotate: true}))
	assertText(t, expected, buf.String())
}

func TestTextPlain(t *testing.T) {
	t.Parallel()

	_, stream, findings := decodeSample(t)

	expected := "DUP1\nPUSH4 0xa9059cbb\nEQ\nPUSH2 0x0030\nJUMPI\nSTOP\nINVALID\n"

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, stream, findings, Options{}))
	assertText(t, expected, buf.String())
}

func TestLineLongInstruction(t *testing.T) {
	t.Parallel()

	operand := bytes.Repeat([]byte{0xff}, 32)
	inst := disasm.Inst{PC: 0, Instruction: disasm.Instruction{Op: 0x7f, Operand: operand}}
	line := Line(inst, []string{"note"}, Options{Offsets: true, Annotate: true})
	assert.True(t, strings.HasSuffix(line, "0x"+strings.Repeat("ff", 32)+" ; note"))
}

func TestNotesInsideOperand(t *testing.T) {
	t.Parallel()

	stream := disasm.Decode([]byte{0x61, 0x00, 0x01, 0x00})
	notes := Notes(stream, []analysis.Finding{
		{PC: 2, Message: "inside push"},
		{PC: 3, Message: "at stop"},
		{PC: 99, Message: "past end"},
	})
	assert.Equal(t, []string{"inside push"}, notes[0])
	assert.Equal(t, []string{"at stop", "past end"}, notes[1])

	assert.Empty(t, Notes(nil, []analysis.Finding{{PC: 0, Message: "x"}}))
}

func TestJSON(t *testing.T) {
	t.Parallel()

	prog, stream, findings := decodeSample(t)
	doc := NewDocument(prog, stream, findings, nil)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, doc))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "sample", decoded["name"])
	assert.Equal(t, "hex", decoded["format"])
	assert.Equal(t, prog.Digest, decoded["digest"])
	assert.EqualValues(t, 13, decoded["size"])
	assert.NotContains(t, decoded, "stats")

	instructions := decoded["instructions"].([]any)
	require.Len(t, instructions, 7)
	push := instructions[1].(map[string]any)
	assert.EqualValues(t, 1, push["pc"])
	assert.Equal(t, "PUSH4", push["op"])
	assert.Equal(t, "0xa9059cbb", push["operand"])
	assert.NotContains(t, instructions[0].(map[string]any), "operand")

	found := decoded["findings"].([]any)
	require.Len(t, found, 2)
	assert.Equal(t, "selector", found[0].(map[string]any)["kind"])
}

func TestYAML(t *testing.T) {
	t.Parallel()

	prog, stream, findings := decodeSample(t)
	stats := analysis.Collect(stream)
	doc := NewDocument(prog, stream, findings, &stats)

	var buf bytes.Buffer
	require.NoError(t, YAML(&buf, doc))
	assert.Contains(t, buf.String(), "name: sample")

	var decoded Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, doc.Instructions, decoded.Instructions)
	require.NotNil(t, decoded.Stats)
	assert.Equal(t, 7, decoded.Stats.Instructions)
	assert.Equal(t, 1, decoded.Stats.Invalid)
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	prog, stream, findings := decodeSample(t)
	md := Markdown(prog, stream, findings, analysis.Collect(stream), false)

	assert.True(t, strings.HasPrefix(md, "# evmdis\n"))
	assert.Contains(t, md, "; sample (hex)")
	assert.Contains(t, md, "; 13 B, 7 instructions")
	assert.Contains(t, md, "| `000001` | selector | selector 0xa9059cbb |")
	assert.Contains(t, md, "| PUSH4 | 1 |")
	assert.Contains(t, md, "- **Jump destinations**: 0\n")
	assert.Contains(t, md, "- **Calls**: 0\n")
	assert.NotContains(t, md, "```evm")

	md = Markdown(prog, stream, findings, analysis.Collect(stream), true)
	assert.Contains(t, md, "```evm\n000000  DUP1\n")
}

func TestMarkdownCounts(t *testing.T) {
	t.Parallel()

	// JUMPDEST CALL JUMPDEST STATICCALL DELEGATECALL STOP
	prog, err := loader.ParseProgramHex("calls", "0x5bf15bfaf400")
	require.NoError(t, err)
	stream := disasm.Decode(prog.Code)

	md := Markdown(prog, stream, nil, analysis.Collect(stream), false)
	assert.Contains(t, md, "- **Jump destinations**: 2\n")
	assert.Contains(t, md, "- **Calls**: 3\n")
	assert.NotContains(t, md, "## Findings")
}
