// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents validated against an embedded schema.
//
// Both the build manifest and the user configuration follow the same flow:
//
//  1. Compile the embedded schema and look up its root definition
//  2. Compile the user document and unify it with that definition
//  3. Validate, then decode into a Go value
//
// # Usage
//
//	//go:embed schema.cue
//	var schema []byte
//
//	res, err := cueutil.Decode[Manifest](schema, data, "#Manifest",
//	    cueutil.WithFilename("hostpack.manifest.cue"),
//	)
//	if err != nil {
//	    return nil, err // *cueutil.Error with one Issue per failing field
//	}
//	return res.Value, nil
package cueutil
