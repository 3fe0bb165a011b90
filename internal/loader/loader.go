// Package loader reads EVM programs from files, readers, and inline hex, and
// normalises them to raw code bytes.
package loader

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

var (
	ErrEmptyProgram = errors.New("empty program")
	ErrBadHex       = errors.New("malformed hex")
)

// Format is the on-disk encoding a program was read from.
type Format string

const (
	FormatHex  Format = "hex"
	FormatJSON Format = "json"
	FormatRaw  Format = "raw"
)

// Program is loaded bytecode together with where it came from.
type Program struct {
	Name   string
	Format Format
	Code   []byte
	Digest string // sha256 of Code, lowercase hex
}

// artifactFields are the JSON keys probed for bytecode, in order of
// preference. Runtime code comes first since that is what is deployed.
var artifactFields = []string{"deployedBytecode", "runtimeBytecode", "bytecode", "code"}

// Load reads and parses the program at path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return Parse(path, data)
}

// Read parses a program from r.
func Read(name string, r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Parse(name, data)
}

// Parse detects the format of data and decodes it. JSON artifacts are tried
// first, then hex text; anything else is taken as raw bytecode.
func Parse(name string, data []byte) (*Program, error) {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		code, ok, err := parseArtifact(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if ok {
			return newProgram(name, FormatJSON, code)
		}
	}

	if code, err := ParseHex(string(trimmed)); err == nil {
		return newProgram(name, FormatHex, code)
	}

	return newProgram(name, FormatRaw, data)
}

// ParseProgramHex parses s strictly as hex text.
func ParseProgramHex(name, s string) (*Program, error) {
	code, err := ParseHex(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return newProgram(name, FormatHex, code)
}

// ParseHex decodes hex text with an optional 0x prefix. Whitespace anywhere
// in s is ignored and digits may be either case.
func ParseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrBadHex, len(s))
	}
	code, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHex, err)
	}
	return code, nil
}

// parseArtifact extracts code from a JSON artifact. ok is false when data is
// not a JSON object at all.
func parseArtifact(data []byte) ([]byte, bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false, nil
	}

	for _, key := range artifactFields {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		text, ok := artifactText(raw)
		if !ok || strings.TrimSpace(strings.TrimPrefix(text, "0x")) == "" {
			continue
		}
		code, err := ParseHex(text)
		if err != nil {
			return nil, true, fmt.Errorf("field %q: %w", key, err)
		}
		return code, true, nil
	}
	return nil, true, fmt.Errorf("%w: artifact has no bytecode field", ErrEmptyProgram)
}

// artifactText accepts either a plain string or an object carrying the code
// under "object", as emitted by solc's standard JSON output.
func artifactText(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Object != "" {
		return obj.Object, true
	}
	return "", false
}

func newProgram(name string, format Format, code []byte) (*Program, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyProgram)
	}
	sum := sha256.Sum256(code)
	return &Program{
		Name:   name,
		Format: format,
		Code:   code,
		Digest: hex.EncodeToString(sum[:]),
	}, nil
}
