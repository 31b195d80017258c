// SPDX-License-Identifier: MPL-2.0

// Package stamp replaces placeholder build-identifier markers in generated
// code with the identifier of the current pass.
//
// The host compares the identifiers embedded in companion artifacts at load
// time, so every marker written during one pass must carry the same value.
package stamp

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Marker is the literal placeholder the bundling step leaves untouched.
const Marker = "__BUILDID__"

// Stamper substitutes Marker with a single identifier.
type Stamper struct {
	id string
}

// NewBuildID returns a fresh identifier: 32 lowercase hex characters.
func NewBuildID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// New returns a Stamper that writes id for every marker.
func New(id string) *Stamper {
	return &Stamper{id: id}
}

// ID returns the identifier this Stamper writes.
func (s *Stamper) ID() string { return s.id }

// Stamp replaces every marker in code. Text without markers is returned unchanged.
func (s *Stamper) Stamp(code string) string {
	return strings.ReplaceAll(code, Marker, s.id)
}

// StampBytes is Stamp for byte slices.
func (s *Stamper) StampBytes(code []byte) []byte {
	return []byte(s.Stamp(string(code)))
}

// StampReader reads all of r and returns the stamped content.
func (s *Stamper) StampReader(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read generated code: %w", err)
	}
	return s.StampBytes(data), nil
}

// Count returns the number of markers in code.
func Count(code string) int {
	return strings.Count(code, Marker)
}
