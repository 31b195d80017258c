// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
)

// Output formats of the show/dump commands.
const (
	formatCUE  = "cue"
	formatJSON = "json"
	formatTOML = "toml"
)

// writeFormatted writes v as JSON or TOML, or cue as-is for the CUE format.
func writeFormatted(w io.Writer, format string, v any, cue []byte) error {
	switch format {
	case formatCUE:
		_, err := w.Write(cue)
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(v)
	default:
		return usageError(fmt.Errorf("unknown format %q (valid: cue, json, toml)", format))
	}
}
