// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type (
	// Metafile is esbuild's build metadata.
	Metafile struct {
		Inputs  map[string]MetafileInput  `json:"inputs"`
		Outputs map[string]MetafileOutput `json:"outputs"`
	}

	// MetafileInput is one source file seen by the build.
	MetafileInput struct {
		Bytes   int              `json:"bytes"`
		Imports []MetafileImport `json:"imports"`
		Format  string           `json:"format,omitempty"`
	}

	// MetafileImport is one import edge.
	MetafileImport struct {
		Path     string `json:"path"`
		Kind     string `json:"kind"`
		External bool   `json:"external,omitempty"`
		Original string `json:"original,omitempty"`
	}

	// MetafileOutput is one produced file.
	MetafileOutput struct {
		Bytes      int                          `json:"bytes"`
		Inputs     map[string]MetafileInputSize `json:"inputs"`
		Imports    []MetafileImport             `json:"imports"`
		EntryPoint string                       `json:"entryPoint,omitempty"`
	}

	// MetafileInputSize is the share of one input in an output.
	MetafileInputSize struct {
		BytesInOutput int `json:"bytesInOutput"`
	}
)

// parseMetafile decodes esbuild's metafile JSON.
func parseMetafile(raw string) (*Metafile, error) {
	var m Metafile
	if raw == "" {
		return &m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("parse metafile: %w", err)
	}
	return &m, nil
}

// stats summarizes the JavaScript outputs of a metafile.
func (m *Metafile) stats() Stats {
	var s Stats
	seen := make(map[string]struct{})
	for name, out := range m.Outputs {
		if strings.HasSuffix(name, ".map") {
			continue
		}
		s.OutputBytes += out.Bytes
		s.Inputs += len(out.Inputs)
		for _, imp := range out.Imports {
			if !imp.External {
				continue
			}
			if _, ok := seen[imp.Path]; !ok {
				seen[imp.Path] = struct{}{}
				s.Externals = append(s.Externals, imp.Path)
			}
		}
	}
	slices.Sort(s.Externals)
	return s
}
