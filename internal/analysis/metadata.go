package analysis

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

var ErrNoMetadata = errors.New("no compiler metadata")

// Metadata is the CBOR trailer solc and vyper append to runtime code:
// a CBOR map followed by its length as a big-endian uint16.
type Metadata struct {
	Offset       int // start of the CBOR map within the code
	Length       int // length of the CBOR map
	IPFS         string
	Bzzr0        string
	Bzzr1        string
	Solc         string
	Experimental bool
}

// metadataKeys are the map keys of which at least one must be present for a
// trailer to be accepted.
var metadataKeys = []string{"ipfs", "bzzr0", "bzzr1", "solc", "experimental"}

// ParseMetadata decodes the metadata trailer at the end of code.
func ParseMetadata(code []byte) (*Metadata, error) {
	if len(code) < metadataLengthSize {
		return nil, ErrNoMetadata
	}
	n := int(binary.BigEndian.Uint16(code[len(code)-metadataLengthSize:]))
	start := len(code) - metadataLengthSize - n
	if n == 0 || start < 0 {
		return nil, ErrNoMetadata
	}

	var fields map[string]any
	if err := cbor.Unmarshal(code[start:start+n], &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	known := false
	for _, key := range metadataKeys {
		if _, ok := fields[key]; ok {
			known = true
			break
		}
	}
	if !known {
		return nil, ErrNoMetadata
	}

	md := &Metadata{Offset: start, Length: n}
	md.IPFS = hashField(fields["ipfs"])
	md.Bzzr0 = hashField(fields["bzzr0"])
	md.Bzzr1 = hashField(fields["bzzr1"])
	md.Solc = versionField(fields["solc"])
	md.Experimental, _ = fields["experimental"].(bool)
	return md, nil
}

// String summarises the trailer for annotations.
func (md *Metadata) String() string {
	var parts []string
	if md.Solc != "" {
		parts = append(parts, "solc "+md.Solc)
	}
	if md.IPFS != "" {
		parts = append(parts, "ipfs "+md.IPFS)
	}
	if md.Bzzr0 != "" {
		parts = append(parts, "bzzr0 "+md.Bzzr0)
	}
	if md.Bzzr1 != "" {
		parts = append(parts, "bzzr1 "+md.Bzzr1)
	}
	if md.Experimental {
		parts = append(parts, "experimental")
	}
	if len(parts) == 0 {
		return "metadata"
	}
	return "metadata: " + strings.Join(parts, ", ")
}

func hashField(v any) string {
	b, ok := v.([]byte)
	if !ok {
		return ""
	}
	return "0x" + hex.EncodeToString(b)
}

// versionField accepts the packed three-byte form solc emits for releases
// and the plain string it uses for prereleases.
func versionField(v any) string {
	switch v := v.(type) {
	case []byte:
		if len(v) == 3 {
			return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
		}
		return "0x" + hex.EncodeToString(v)
	case string:
		return v
	}
	return ""
}

// MetadataDetector reports the compiler metadata trailer, if any.
type MetadataDetector struct{}

func (MetadataDetector) Detect(in Input, findings []Finding) []Finding {
	md, err := ParseMetadata(in.Code)
	if err != nil {
		return findings
	}
	meta := map[string]any{
		"offset": md.Offset,
		"length": md.Length,
	}
	if md.Solc != "" {
		meta["solc"] = md.Solc
	}
	if md.IPFS != "" {
		meta["ipfs"] = md.IPFS
	}
	return append(findings, Finding{
		PC:       md.Offset,
		Kind:     KindMetadata,
		Message:  md.String(),
		Metadata: meta,
	})
}
