// Package config loads evmdis settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up in the working directory and in
// $XDG_CONFIG_HOME/evmdis.
const FileName = "evmdis.toml"

var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the accepted values of Config.Format.
var Formats = []string{"text", "json", "yaml", "markdown"}

// Config represents configuration for evmdis
type Config struct {
	Debug     bool     `toml:"debug" json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	Format    string   `toml:"format" json:"format" jsonschema:"title=Format,description=Listing output format,enum=text,enum=json,enum=yaml,enum=markdown,default=text"`
	Color     bool     `toml:"color" json:"color" jsonschema:"title=Color,description=Highlight listings on terminals,default=true"`
	Strict    bool     `toml:"strict" json:"strict" jsonschema:"title=Strict,description=Fail on invalid opcodes and truncated push operands"`
	Annotate  bool     `toml:"annotate" json:"annotate" jsonschema:"title=Annotate,description=Run detectors and annotate the listing,default=true"`
	Offsets   bool     `toml:"offsets" json:"offsets" jsonschema:"title=Offsets,description=Prefix listing lines with the program counter,default=true"`
	Detectors []string `toml:"detectors" json:"detectors,omitempty" jsonschema:"title=Detectors,description=Detectors to run; empty runs all,enum=invalid,enum=truncated,enum=selectors,enum=strings,enum=metadata"`
	Workers   int      `toml:"workers" json:"workers" jsonschema:"title=Workers,description=Parallel decoders in batch mode; 0 means one per file,minimum=0"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{
		Format:   "text",
		Color:    true,
		Annotate: true,
		Offsets:  true,
	}
}

// Validate checks field values.
func (c Config) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("%w %q", ErrUnknownFormat, c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// SearchPaths returns the locations probed when no explicit file is given.
func SearchPaths() []string {
	paths := []string{FileName}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		}
	}
	if dir != "" {
		paths = append(paths, filepath.Join(dir, "evmdis", FileName))
	}
	return paths
}

// Load reads the config at path over the defaults. With an empty path the
// SearchPaths are tried in order and a missing file is not an error.
func Load(path string) (Config, error) {
	if path != "" {
		return loadFile(path)
	}
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}
	return Default(), nil
}

func loadFile(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("Unknown config key", "file", path, "key", key.String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	slog.Debug("Loaded config", "file", path)
	return cfg, nil
}
