package listing

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"evmdis/internal/analysis"
	"evmdis/internal/disasm"
	"evmdis/internal/loader"
	"evmdis/internal/opcode"
)

// TopOpcodes is how many histogram rows the summary shows.
const TopOpcodes = 10

var callOpcodes = []opcode.Opcode{opcode.CALL, opcode.CALLCODE, opcode.DELEGATECALL, opcode.STATICCALL}

// Markdown renders a summary of prog. With withListing the full listing is
// appended as an evm code block.
func Markdown(prog *loader.Program, stream disasm.Stream, findings []analysis.Finding, stats analysis.Stats, withListing bool) string {
	var sb strings.Builder

	sb.WriteString("# evmdis\n\n```\n")
	fmt.Fprintf(&sb, "; %s (%s)\n", prog.Name, prog.Format)
	fmt.Fprintf(&sb, "; %s\n", prog.Digest)
	fmt.Fprintf(&sb, "; %s, %s instructions\n", humanize.Bytes(uint64(len(prog.Code))), humanize.Comma(int64(stats.Instructions)))
	sb.WriteString("```\n\n")

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Push**: %d\n", stats.Push)
	fmt.Fprintf(&sb, "- **Dup**: %d\n", stats.Dup)
	fmt.Fprintf(&sb, "- **Swap**: %d\n", stats.Swap)
	fmt.Fprintf(&sb, "- **Log**: %d\n", stats.Log)
	fmt.Fprintf(&sb, "- **Invalid**: %d\n", stats.Invalid)
	fmt.Fprintf(&sb, "- **Jump destinations**: %d\n", stats.Count(opcode.JUMPDEST))
	calls := 0
	for _, op := range callOpcodes {
		calls += stats.Count(op)
	}
	fmt.Fprintf(&sb, "- **Calls**: %d\n", calls)
	if stats.Truncated {
		sb.WriteString("- **Truncated**: trailing push operand is short\n")
	}

	if len(findings) > 0 {
		sb.WriteString("\n## Findings\n\n")
		sb.WriteString("| PC | Kind | Message |\n|---:|---|---|\n")
		for _, f := range findings {
			fmt.Fprintf(&sb, "| `%06x` | %s | %s |\n", f.PC, f.Kind, escapeCell(f.Message))
		}
	}

	if len(stats.Histogram) > 0 {
		sb.WriteString("\n## Opcodes\n\n")
		sb.WriteString("| Op | Count |\n|---|---:|\n")
		for i, c := range stats.Histogram {
			if i == TopOpcodes {
				break
			}
			fmt.Fprintf(&sb, "| %s | %d |\n", c.Op, c.Count)
		}
	}

	if withListing {
		sb.WriteString("\n## Listing\n\n```evm\n")
		for _, line := range Lines(stream, findings, Options{Offsets: true, Annotate: true}) {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteString("```\n")
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
