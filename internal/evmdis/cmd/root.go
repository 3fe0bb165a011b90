package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"evmdis/internal/analysis"
	"evmdis/internal/config"
	"evmdis/internal/disasm"
	evmlog "evmdis/internal/evmdis/log"
	"evmdis/internal/evmdis/styles"
	"evmdis/internal/listing"
	"evmdis/internal/loader"
	"evmdis/internal/logging"
)

// ErrStrict is returned when --strict is set and the program has invalid
// opcodes or a truncated push.
var ErrStrict = errors.New("strict check failed")

var logger *logging.LoggerCloser

// options are the resolved settings of one disassembly run.
type options struct {
	cfg   config.Config
	noTUI bool
	hex   bool
	color bool
}

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./evmdis.toml or $XDG_CONFIG_HOME/evmdis/evmdis.toml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Print the listing without the TUI")
	rootCmd.Flags().StringP("format", "o", "text", "Output format: text, json, yaml or markdown")
	rootCmd.Flags().Bool("strict", false, "Exit non-zero on invalid opcodes or a truncated push")
	rootCmd.Flags().BoolP("annotate", "a", true, "Annotate the listing with detector findings")
	rootCmd.Flags().Bool("offsets", true, "Prefix listing lines with the program counter")
	rootCmd.Flags().Bool("no-color", false, "Disable highlighting")
	rootCmd.Flags().StringSlice("detectors", nil, "Detectors to run (default all)")
	rootCmd.Flags().Bool("hex", false, "Treat the argument as inline hex bytecode")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")
}

var rootCmd = &cobra.Command{
	Use:   "evmdis [file|-]",
	Short: "EVM bytecode disassembler",
	Long: `evmdis decodes EVM bytecode into a listing of instructions.
Input may be hex text, a compiler JSON artifact, or raw bytes; "-" reads stdin.
On a terminal the listing opens in an interactive viewer.`,
	Example: `
# Browse a contract's runtime code
evmdis ./out/Token.json

# Disassemble inline hex without the viewer
evmdis --hex -n 0x6080604052

# Machine-readable output, failing on malformed code
evmdis -o json --strict code.hex
  `,
	Args: cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := ResolveCwd(cmd); err != nil {
			return err
		}
		flag, _ := cmd.Flags().GetBool("debug")
		path, _ := cmd.Flags().GetString("config")
		debug, err := debugEnabled(flag, path)
		if err != nil {
			return err
		}
		if logger == nil {
			logger = logging.NewLogger()
			atexit.Register(func() { _ = logger.Close() })
		}
		evmlog.Setup(logger, debug)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Setup CPU profiling if requested
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		// Setup memory profiling if requested
		memprofile, _ := cmd.Flags().GetString("memprofile")
		if memprofile != "" {
			defer func() {
				f, err := os.Create(memprofile)
				if err != nil {
					slog.Error("Could not create memory profile", "error", err)
					return
				}
				defer f.Close()
				if err := pprof.WriteHeapProfile(f); err != nil {
					slog.Error("Could not write memory profile", "error", err)
				}
			}()
		}

		opts, err := resolveOptions(cmd)
		if err != nil {
			return err
		}

		// The viewer and highlighting only apply to a text listing on a terminal
		tty := opts.cfg.Format == "text" && term.IsTerminal(os.Stdout.Fd())
		if !tty {
			opts.noTUI = true
		}
		opts.color = tty && opts.cfg.Color

		return runDisasm(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args[0], opts)
	},
}

// debugEnabled reports whether debug logging was asked for by the --debug
// flag, EVMDIS_LOG_LEVEL or the config file.
func debugEnabled(flag bool, configPath string) (bool, error) {
	if flag || logging.IsDebug() {
		return true, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return false, err
	}
	return cfg.Debug, nil
}

// resolveOptions loads the config file and applies explicitly set flags on
// top of it.
func resolveOptions(cmd *cobra.Command) (options, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return options{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("strict") {
		cfg.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("annotate") {
		cfg.Annotate, _ = flags.GetBool("annotate")
	}
	if flags.Changed("offsets") {
		cfg.Offsets, _ = flags.GetBool("offsets")
	}
	if flags.Changed("no-color") {
		noColor, _ := flags.GetBool("no-color")
		cfg.Color = !noColor
	}
	if flags.Changed("detectors") {
		cfg.Detectors, _ = flags.GetStringSlice("detectors")
	}
	if err := cfg.Validate(); err != nil {
		return options{}, err
	}

	opts := options{cfg: cfg}
	opts.noTUI, _ = flags.GetBool("no-tui")
	opts.hex, _ = flags.GetBool("hex")
	return opts, nil
}

// loadProgram reads the program named by arg: inline hex, stdin for "-", or
// a file path.
func loadProgram(stdin io.Reader, arg string, inlineHex bool) (*loader.Program, error) {
	switch {
	case inlineHex:
		return loader.ParseProgramHex("inline", arg)
	case arg == "-":
		if f, ok := stdin.(*os.File); ok && term.IsTerminal(f.Fd()) {
			return nil, fmt.Errorf("no bytecode piped on stdin")
		}
		return loader.Read("stdin", stdin)
	default:
		return loader.Load(arg)
	}
}

func runDisasm(ctx context.Context, stdin io.Reader, out io.Writer, arg string, opts options) error {
	prog, err := loadProgram(stdin, arg, opts.hex)
	if err != nil {
		return err
	}
	slog.Debug("Loaded program", "name", prog.Name, "format", prog.Format, "size", len(prog.Code))

	chain, err := analysis.ByName(opts.cfg.Detectors)
	if err != nil {
		return err
	}

	if !opts.noTUI {
		program := tea.NewProgram(
			NewModel(prog, chain, opts.cfg, opts.color),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return strictCheck(prog, disasm.Decode(prog.Code), opts.cfg.Strict)
	}

	stream := disasm.Decode(prog.Code)
	in := analysis.Input{Code: prog.Code, Stream: stream}

	var findings []analysis.Finding
	if opts.cfg.Annotate {
		findings = chain.Detect(in, nil)
	}

	if err := render(out, prog, stream, findings, opts); err != nil {
		return err
	}
	return strictCheck(prog, stream, opts.cfg.Strict)
}

func render(out io.Writer, prog *loader.Program, stream disasm.Stream, findings []analysis.Finding, opts options) error {
	switch opts.cfg.Format {
	case "json":
		stats := analysis.Collect(stream)
		return listing.JSON(out, listing.NewDocument(prog, stream, findings, &stats))
	case "yaml":
		stats := analysis.Collect(stream)
		return listing.YAML(out, listing.NewDocument(prog, stream, findings, &stats))
	case "markdown":
		md := listing.Markdown(prog, stream, findings, analysis.Collect(stream), true)
		_, err := io.WriteString(out, md)
		return err
	default:
		return listing.Text(out, stream, findings, listing.Options{
			Offsets:  opts.cfg.Offsets,
			Annotate: opts.cfg.Annotate,
			Color:    opts.color,
		})
	}
}

// strictCheck reports invalid opcodes and a truncated trailing push as an
// error when strict is set.
func strictCheck(prog *loader.Program, stream disasm.Stream, strict bool) error {
	if !strict {
		return nil
	}
	chain := analysis.NewDetectorChain(analysis.InvalidDetector{}, analysis.TruncatedPushDetector{})
	problems := chain.Detect(analysis.Input{Code: prog.Code, Stream: stream}, nil)
	for _, p := range problems {
		slog.Warn("Strict check", "file", prog.Name, "pc", fmt.Sprintf("0x%x", p.PC), "problem", p.Message)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s has %d problem(s)", ErrStrict, prog.Name, len(problems))
	}
	return nil
}

func Execute() {
	// Check if --no-tui is present, or if output is being piped,
	// to bypass fang's styled output
	noTUI := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" {
			noTUI = true
			break
		}
	}

	if !noTUI && !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
	}

	var err error
	if noTUI {
		err = rootCmd.Execute()
	} else {
		err = fang.Execute(
			context.Background(),
			rootCmd,
			fang.WithNotifySignal(os.Interrupt),
		)
	}
	if err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %w", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return cwd, nil
}

// renderSummary renders the markdown summary for a terminal of the given
// width.
func renderSummary(prog *loader.Program, stream disasm.Stream, findings []analysis.Finding, width int, color bool) string {
	md := listing.Markdown(prog, stream, findings, analysis.Collect(stream), false)
	return styles.RenderMarkdown(md, width, color)
}
