package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"evmdis/internal/analysis"
	"evmdis/internal/disasm"
	"evmdis/internal/opcode"
)

var statCmd = &cobra.Command{
	Use:   "stat [file|-]",
	Short: "Print an opcode histogram",
	Example: `
# Most used opcodes of a contract
evmdis stat Token.json

# Count only calls
evmdis stat --only CALL,DELEGATECALL,STATICCALL code.hex
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetStringSlice("only")
		inlineHex, _ := cmd.Flags().GetBool("hex")
		return runStat(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], inlineHex, only)
	},
}

func init() {
	statCmd.Flags().StringSlice("only", nil, "Restrict the histogram to these mnemonics")
	statCmd.Flags().Bool("hex", false, "Treat the argument as inline hex bytecode")

	rootCmd.AddCommand(statCmd)
}

func runStat(stdin io.Reader, out io.Writer, arg string, inlineHex bool, only []string) error {
	var filter map[string]bool
	if len(only) > 0 {
		filter = make(map[string]bool, len(only))
		for _, name := range only {
			op, ok := opcode.Lookup(strings.ToUpper(name))
			if !ok {
				return fmt.Errorf("unknown opcode %q", name)
			}
			filter[op.String()] = true
		}
	}

	prog, err := loadProgram(stdin, arg, inlineHex)
	if err != nil {
		return err
	}
	stats := analysis.Collect(disasm.Decode(prog.Code))

	fmt.Fprintf(out, "%s: %s, %s instructions\n",
		prog.Name, humanize.Bytes(uint64(stats.Bytes)), humanize.Comma(int64(stats.Instructions)))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, c := range stats.Histogram {
		if filter != nil && !filter[c.Op] {
			continue
		}
		share := 0.0
		if stats.Instructions > 0 {
			share = 100 * float64(c.Count) / float64(stats.Instructions)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t\n", c.Op, humanize.Comma(int64(c.Count)), share)
	}
	return tw.Flush()
}
