// Package colorize highlights EVM disassembly for terminals.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
)

// NoColorEnv disables colouring when set to any non-empty value.
const NoColorEnv = "EVMDIS_NO_COLOR"

// Enabled reports whether output should be coloured.
func Enabled() bool {
	return os.Getenv(NoColorEnv) == ""
}

// getStyle returns the listing style with fallbacks
func getStyle() *chroma.Style {
	candidates := []string{"evm-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	// Try high-color first, then fallback
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Listing highlights a complete multi-line listing.
func Listing(code string) (string, error) {
	if !Enabled() {
		return code, nil
	}

	iterator, err := EVM.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getStyle(), iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// Line highlights a single listing line. Errors leave the line unchanged.
func Line(line string) string {
	colored, err := Listing(line)
	if err != nil {
		return line
	}
	return colored
}
