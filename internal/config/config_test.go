package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
format = "yaml"
strict = true
offsets = false
detectors = ["selectors", "metadata"]
workers = 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Format)
	assert.True(t, cfg.Strict)
	assert.False(t, cfg.Offsets)
	assert.Equal(t, []string{"selectors", "metadata"}, cfg.Detectors)
	assert.Equal(t, 4, cfg.Workers)

	// untouched keys keep their defaults
	assert.True(t, cfg.Color)
	assert.True(t, cfg.Annotate)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, `format = "html"`))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Load(writeConfig(t, `workers = -1`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `format = `))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSearch(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	xdg := filepath.Join(dir, "xdg", "evmdis")
	require.NoError(t, os.MkdirAll(xdg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, FileName), []byte(`format = "json"`), 0o644))

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)

	require.NoError(t, os.WriteFile(FileName, []byte(`format = "markdown"`), 0o644))
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.Format)
}

func TestDefaultValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
