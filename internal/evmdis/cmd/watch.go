package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"evmdis/internal/analysis"
	"evmdis/internal/disasm"
	"evmdis/internal/listing"
	"evmdis/internal/loader"
)

type watchOptions struct {
	listing  listing.Options
	detector *analysis.DetectorChain
}

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Disassemble hex programs as they are appended to a file",
	Long: `Follow a file and disassemble each line of hex bytecode appended to it.
Blank lines and lines starting with # are ignored.`,
	Example: `
# Follow a trace of deployed code
evmdis watch deployments.log

# Replay the whole file first
evmdis watch --from-start deployments.log
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStart, _ := cmd.Flags().GetBool("from-start")
		annotate, _ := cmd.Flags().GetBool("annotate")

		cfg := tail.Config{
			Follow:    true,
			ReOpen:    true,
			MustExist: true,
			Logger:    tail.DiscardingLogger,
		}
		if !fromStart {
			cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
		}
		t, err := tail.TailFile(args[0], cfg)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", args[0], err)
		}
		defer t.Cleanup()
		defer t.Stop()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts := watchOptions{listing: listing.Options{Offsets: true, Annotate: annotate}}
		if annotate {
			opts.detector, _ = analysis.ByName(nil)
		}
		slog.Info("Watching", "file", args[0])
		return watchLoop(ctx, t.Lines, cmd.OutOrStdout(), opts)
	},
}

func init() {
	watchCmd.Flags().Bool("from-start", false, "Read the file from the beginning")
	watchCmd.Flags().BoolP("annotate", "a", true, "Annotate listings with detector findings")

	rootCmd.AddCommand(watchCmd)
}

// watchLoop prints a listing for every program line received until lines is
// closed or ctx is done.
func watchLoop(ctx context.Context, lines <-chan *tail.Line, out io.Writer, opts watchOptions) error {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				return fmt.Errorf("watch: %w", line.Err)
			}
			text := strings.TrimSpace(line.Text)
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}

			n++
			name := fmt.Sprintf("program %d", n)
			prog, err := loader.ParseProgramHex(name, text)
			if err != nil {
				slog.Warn("Skipping line", "program", n, "error", err)
				continue
			}
			stream := disasm.Decode(prog.Code)
			var findings []analysis.Finding
			if opts.detector != nil {
				findings = opts.detector.Detect(analysis.Input{Code: prog.Code, Stream: stream}, nil)
			}

			fmt.Fprintf(out, "; %s  %d bytes  sha256:%s\n", name, len(prog.Code), prog.Digest)
			if err := listing.Text(out, stream, findings, opts.listing); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
	}
}
