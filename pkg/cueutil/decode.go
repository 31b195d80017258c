// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Result holds a decoded document.
type Result[T any] struct {
	// Value is the decoded Go value.
	Value *T
	// Unified is the schema-unified CUE value, for callers that need to
	// inspect fields the Go type does not carry.
	Unified cue.Value
}

// Decode validates data against the definition def of schema and decodes it
// into a T. Schema defaults apply to fields the document leaves out.
func Decode[T any](schema, data []byte, def string, opts ...Option) (*Result[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	unified, err := unify(schema, data, def, o)
	if err != nil {
		return nil, err
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &Result[T]{Value: &out, Unified: unified}, nil
}

// DecodeMap is Decode into a generic map, for merging into a key/value store.
func DecodeMap(schema, data []byte, def string, opts ...Option) (map[string]any, error) {
	res, err := Decode[map[string]any](schema, data, def, opts...)
	if err != nil {
		return nil, err
	}
	return *res.Value, nil
}

func unify(schema, data []byte, def string, o options) (cue.Value, error) {
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema, cue.Filename("schema.cue"))
	if err := schemaValue.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("internal error: compile schema: %w", err)
	}
	root := schemaValue.LookupPath(cue.ParsePath(def))
	if err := root.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s: %w", def, err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(o.filename))
	if err := doc.Err(); err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}

	u := root.Unify(doc)
	if err := u.Validate(cue.Concrete(o.concrete)); err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}
	return u, nil
}
