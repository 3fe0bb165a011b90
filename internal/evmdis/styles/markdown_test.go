package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evmdis/internal/ui/colorize"
)

const summary = "# evmdis\n\n- **Push**: 2\n\n```evm\n000000  PUSH1 0x01\n```\n"

func TestRenderMarkdownPlain(t *testing.T) {
	t.Setenv(colorize.NoColorEnv, "")

	assert.Equal(t, summary, RenderMarkdown(summary, 80, false))
}

func TestRenderMarkdownNoColorEnv(t *testing.T) {
	t.Setenv(colorize.NoColorEnv, "1")

	assert.Equal(t, summary, RenderMarkdown(summary, 80, true))
}

func TestRenderMarkdown(t *testing.T) {
	t.Setenv(colorize.NoColorEnv, "")

	out := RenderMarkdown(summary, 80, true)
	assert.NotEqual(t, summary, out)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "PUSH1")
	assert.False(t, strings.Contains(out, "```"))
}

func TestGetMarkdownRenderer(t *testing.T) {
	r, err := GetMarkdownRenderer(40)
	require.NoError(t, err)

	out, err := r.Render("**bold**")
	require.NoError(t, err)
	assert.Contains(t, out, "bold")
}
