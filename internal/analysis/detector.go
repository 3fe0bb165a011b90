// Package analysis runs detectors over decoded EVM bytecode and collects
// statistics about it.
package analysis

import (
	"fmt"

	"evmdis/internal/disasm"
)

// Kind names the detector that produced a finding.
type Kind string

const (
	KindInvalid   Kind = "invalid"
	KindTruncated Kind = "truncated"
	KindSelector  Kind = "selector"
	KindString    Kind = "string"
	KindMetadata  Kind = "metadata"
)

// Finding is something a detector noticed at a program counter.
type Finding struct {
	PC       int
	Kind     Kind
	Message  string
	Metadata map[string]any
}

// Input is the program a detector inspects: the code and its decoding.
type Input struct {
	Code   []byte
	Stream disasm.Stream
}

// Detector inspects a decoded program.
type Detector interface {
	// Detect appends its findings to findings and returns the result.
	Detect(in Input, findings []Finding) []Finding
}

// DetectorChain runs multiple detectors in sequence
type DetectorChain struct {
	detectors []Detector
}

// NewDetectorChain creates a new detector chain
func NewDetectorChain(detectors ...Detector) *DetectorChain {
	return &DetectorChain{
		detectors: detectors,
	}
}

// Detect runs all detectors in sequence
func (dc *DetectorChain) Detect(in Input, findings []Finding) []Finding {
	result := findings
	for _, detector := range dc.detectors {
		result = detector.Detect(in, result)
	}
	return result
}

// Len returns the number of detectors in the chain.
func (dc *DetectorChain) Len() int {
	return len(dc.detectors)
}

// DefaultDetectors lists the detectors run when none are configured.
var DefaultDetectors = []string{"invalid", "truncated", "selectors", "strings", "metadata"}

// ByName builds a chain from detector names. An empty list selects
// DefaultDetectors.
func ByName(names []string) (*DetectorChain, error) {
	if len(names) == 0 {
		names = DefaultDetectors
	}
	detectors := make([]Detector, 0, len(names))
	for _, name := range names {
		switch name {
		case "invalid":
			detectors = append(detectors, InvalidDetector{})
		case "truncated":
			detectors = append(detectors, TruncatedPushDetector{})
		case "selectors":
			detectors = append(detectors, SelectorDetector{Window: SelectorWindow})
		case "strings":
			detectors = append(detectors, StringDetector{MinLen: MinStringLength})
		case "metadata":
			detectors = append(detectors, MetadataDetector{})
		default:
			return nil, fmt.Errorf("unknown detector %q", name)
		}
	}
	return NewDetectorChain(detectors...), nil
}

// ByPC groups findings by program counter, preserving their order.
func ByPC(findings []Finding) map[int][]Finding {
	m := make(map[int][]Finding, len(findings))
	for _, f := range findings {
		m[f.PC] = append(m[f.PC], f)
	}
	return m
}
