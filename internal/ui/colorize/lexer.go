package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// EVM tokenizes disassembly listings: an offset column, a mnemonic, an
// optional 0x operand and a ; comment.
var EVM = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:      "EVM",
		Aliases:   []string{"evm", "evmasm"},
		Filenames: []string{"*.evm"},
		MimeTypes: []string{"text/x-evm"},
	},
	func() chroma.Rules {
		return chroma.Rules{
			"root": {
				{Pattern: `;.*`, Type: chroma.Comment},
				{Pattern: `0x[0-9a-fA-F]+`, Type: chroma.LiteralNumberHex},
				{Pattern: `\b[0-9a-f]{4,}\b`, Type: chroma.NameLabel},
				{Pattern: `\bINVALID\b`, Type: chroma.Error},
				{Pattern: `\b(JUMP|JUMPI|JUMPDEST|STOP|RETURN|REVERT|SELFDESTRUCT)\b`, Type: chroma.KeywordReserved},
				{Pattern: `\bPUSH\d+\b`, Type: chroma.KeywordPseudo},
				{Pattern: `\b[A-Z][A-Z0-9]*\b`, Type: chroma.Keyword},
				{Pattern: `\s+`, Type: chroma.TextWhitespace},
				{Pattern: `.`, Type: chroma.Text},
			},
		}
	},
))
