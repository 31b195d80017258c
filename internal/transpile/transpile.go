// SPDX-License-Identifier: MPL-2.0

// Package transpile turns the source tree into the intermediate tree the
// linking bundle reads from.
package transpile

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCompile is the sentinel error wrapped by CompileError.
var ErrCompile = errors.New("transpile failed")

type (
	// Request describes one transpile run.
	Request struct {
		// SourceRoot is the tree to transpile.
		SourceRoot string
		// SettingsPath is the compiler settings file (tsconfig). Optional.
		SettingsPath string
		// OutDir receives the transpiled tree, mirroring SourceRoot's layout.
		OutDir string
	}

	// Transpiler produces the intermediate tree.
	Transpiler interface {
		Transpile(ctx context.Context, req Request) error
	}

	// CompileError reports a failed transpile with its diagnostics.
	// It wraps ErrCompile for errors.Is() compatibility.
	CompileError struct {
		// Tool names the transpiler that failed.
		Tool string
		// Diagnostics are the individual compiler messages.
		Diagnostics []string
		// Err is an underlying cause, if any.
		Err error
	}
)

// Error implements the error interface for CompileError.
func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: transpile failed", e.Tool)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n  ")
		b.WriteString(d)
	}
	return b.String()
}

// Unwrap returns ErrCompile and the underlying cause.
func (e *CompileError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompile}
	}
	return []error{ErrCompile, e.Err}
}

// Func adapts a function to the Transpiler interface.
type Func func(ctx context.Context, req Request) error

// Transpile implements Transpiler.
func (f Func) Transpile(ctx context.Context, req Request) error { return f(ctx, req) }
