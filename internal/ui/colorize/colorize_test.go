package colorize

import (
	"strings"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerRegistered(t *testing.T) {
	assert.NotNil(t, lexers.Get("evm"))
	assert.NotNil(t, lexers.Match("contract.evm"))
}

func TestLexerTokens(t *testing.T) {
	iterator, err := EVM.Tokenise(nil, "000008  PUSH2 0x0010  ; selector 0xa9059cbb\n00000b  JUMPI\n00000c  INVALID\n")
	require.NoError(t, err)

	types := map[string]chroma.TokenType{}
	for _, tok := range iterator.Tokens() {
		types[tok.Value] = tok.Type
	}

	assert.Equal(t, chroma.NameLabel, types["000008"])
	assert.Equal(t, chroma.KeywordPseudo, types["PUSH2"])
	assert.Equal(t, chroma.LiteralNumberHex, types["0x0010"])
	assert.Equal(t, chroma.Comment, types["; selector 0xa9059cbb"])
	assert.Equal(t, chroma.KeywordReserved, types["JUMPI"])
	assert.Equal(t, chroma.Error, types["INVALID"])
}

func TestColorDisabled(t *testing.T) {
	t.Setenv(NoColorEnv, "1")

	line := "000000  ADD"
	assert.False(t, Enabled())
	assert.Equal(t, line, Line(line))
}

func TestColorEnabled(t *testing.T) {
	t.Setenv(NoColorEnv, "")

	line := "000000  PUSH1 0x80"
	colored := Line(line)
	assert.NotEqual(t, line, colored)
	assert.Contains(t, colored, "\x1b[")
	assert.Equal(t, line, stripANSI(colored))
}

func stripANSI(s string) string {
	var sb strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			inEscape = r != 'm'
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
