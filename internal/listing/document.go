package listing

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"evmdis/internal/analysis"
	"evmdis/internal/disasm"
	"evmdis/internal/loader"
)

// Document is the machine-readable form of a disassembly.
type Document struct {
	Name         string          `json:"name" yaml:"name"`
	Format       string          `json:"format" yaml:"format"`
	Digest       string          `json:"digest" yaml:"digest"`
	Size         int             `json:"size" yaml:"size"`
	Instructions []Entry         `json:"instructions" yaml:"instructions"`
	Findings     []FindingEntry  `json:"findings,omitempty" yaml:"findings,omitempty"`
	Stats        *analysis.Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Entry is one instruction of a Document.
type Entry struct {
	PC      int    `json:"pc" yaml:"pc"`
	Op      string `json:"op" yaml:"op"`
	Operand string `json:"operand,omitempty" yaml:"operand,omitempty"`
}

// FindingEntry is one detector finding of a Document.
type FindingEntry struct {
	PC      int            `json:"pc" yaml:"pc"`
	Kind    string         `json:"kind" yaml:"kind"`
	Message string         `json:"message" yaml:"message"`
	Data    map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// NewDocument assembles a Document. stats may be nil.
func NewDocument(prog *loader.Program, stream disasm.Stream, findings []analysis.Finding, stats *analysis.Stats) Document {
	doc := Document{
		Name:         prog.Name,
		Format:       string(prog.Format),
		Digest:       prog.Digest,
		Size:         len(prog.Code),
		Instructions: make([]Entry, len(stream)),
		Stats:        stats,
	}
	for i, inst := range stream {
		doc.Instructions[i] = Entry{PC: inst.PC, Op: inst.Op.String()}
		if len(inst.Operand) > 0 {
			doc.Instructions[i].Operand = "0x" + hex.EncodeToString(inst.Operand)
		}
	}
	for _, f := range findings {
		doc.Findings = append(doc.Findings, FindingEntry{
			PC:      f.PC,
			Kind:    string(f.Kind),
			Message: f.Message,
			Data:    f.Metadata,
		})
	}
	return doc
}

// JSON writes doc as indented JSON.
func JSON(w io.Writer, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// YAML writes doc as YAML.
func YAML(w io.Writer, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}
