package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

func init() {
	// Register our custom disassembly style on package initialization
	_ = EVMDark
}

// EVMDark is the style for EVM listings.
var EVMDark = styles.Register(chroma.MustNewStyle("evm-dark", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",
	chroma.TextWhitespace: "#FFFFFF",
	chroma.Background:     "bg:#1e1e1e",
	chroma.Comment:        "#6A9955", // annotations in green

	chroma.Keyword:         "#FFFFFF",      // plain mnemonics
	chroma.KeywordPseudo:   "#7C9C9D",      // pushes in teal
	chroma.KeywordReserved: "bold #FFD700", // control flow in gold
	chroma.Error:           "bold #F44747",

	chroma.NameLabel:        "#4F4F4F", // offsets in gray
	chroma.LiteralNumberHex: "#FF5F87", // operands in pink
}))
