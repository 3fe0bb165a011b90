package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"evmdis/internal/analysis"
	"evmdis/internal/config"
	"evmdis/internal/disasm"
	"evmdis/internal/loader"
)

// batchExtensions are the file types picked up when walking a directory.
var batchExtensions = []string{".hex", ".bin", ".evm", ".json"}

type batchOptions struct {
	recursive bool
	quiet     bool
	strict    bool
	workers   int
}

var batchCmd = &cobra.Command{
	Use:   "batch [path...]",
	Short: "Disassemble many programs and summarize them",
	Long: `Decode every program given on the command line and print one summary row each.
Directories are scanned for .hex, .bin, .evm and .json files.`,
	Example: `
# Summarize every artifact of a build
evmdis batch -r ./out

# Quiet run that fails if any program is malformed
evmdis batch -q --strict a.hex b.hex
  `,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		opts := batchOptions{workers: cfg.Workers, strict: cfg.Strict}
		opts.recursive, _ = cmd.Flags().GetBool("recursive")
		opts.quiet, _ = cmd.Flags().GetBool("quiet")
		if cmd.Flags().Changed("strict") {
			opts.strict, _ = cmd.Flags().GetBool("strict")
		}
		if cmd.Flags().Changed("workers") {
			opts.workers, _ = cmd.Flags().GetInt("workers")
		}

		return runBatch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
	},
}

func init() {
	batchCmd.Flags().BoolP("recursive", "r", false, "Search recursively in subdirectories")
	batchCmd.Flags().BoolP("quiet", "q", false, "Hide progress bar")
	batchCmd.Flags().Bool("strict", false, "Exit non-zero if any program has invalid opcodes or a truncated push")
	batchCmd.Flags().IntP("workers", "w", 0, "Parallel decoders (0 means one per file)")

	rootCmd.AddCommand(batchCmd)
}

// collectPaths expands directories in args to the program files they hold.
func collectPaths(args []string, recursive bool) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path: %w", err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Warn("Error accessing path", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				if !recursive && path != arg {
					return filepath.SkipDir
				}
				return nil
			}
			if slices.Contains(batchExtensions, strings.ToLower(filepath.Ext(path))) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory: %w", err)
		}
	}
	return paths, nil
}

func runBatch(ctx context.Context, out, errOut io.Writer, args []string, opts batchOptions) error {
	paths, err := collectPaths(args, opts.recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no programs found")
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetWriter(errOut),
		progressbar.OptionSetDescription("loading"),
		progressbar.OptionSetVisibility(!opts.quiet),
		progressbar.OptionClearOnFinish(),
	)

	progs := make([]*loader.Program, 0, len(paths))
	for _, path := range paths {
		prog, err := loader.Load(path)
		_ = bar.Add(1)
		if err != nil {
			slog.Warn("Skipping program", "path", path, "error", err)
			continue
		}
		progs = append(progs, prog)
	}
	_ = bar.Finish()
	if len(progs) == 0 {
		return fmt.Errorf("none of %d file(s) could be loaded", len(paths))
	}

	codes := make([][]byte, len(progs))
	for i, p := range progs {
		codes[i] = p.Code
	}
	streams, err := disasm.DecodeBatch(ctx, codes, opts.workers)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMAT\tSIZE\tINSTRUCTIONS\tINVALID\tTRUNCATED\tDIGEST")
	failed := 0
	for i, prog := range progs {
		stats := analysis.Collect(streams[i])
		truncated := "no"
		if stats.Truncated {
			truncated = "yes"
		}
		if stats.Invalid > 0 || stats.Truncated {
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			prog.Name,
			prog.Format,
			humanize.Bytes(uint64(len(prog.Code))),
			humanize.Comma(int64(stats.Instructions)),
			stats.Invalid,
			truncated,
			prog.Digest[:12])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if opts.strict && failed > 0 {
		return fmt.Errorf("%w: %d of %d program(s) are malformed", ErrStrict, failed, len(progs))
	}
	return nil
}
