// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrInvalidDocument is the sentinel error wrapped by Error.
var ErrInvalidDocument = errors.New("invalid CUE document")

type (
	// Issue is one validation failure inside a document.
	Issue struct {
		// Path is the JSON-style path to the field, e.g. "bundles[2].output".
		Path string
		// Message describes the failure.
		Message string
	}

	// Error reports every issue found in one document.
	// It wraps ErrInvalidDocument for errors.Is() compatibility.
	Error struct {
		File   string
		Issues []Issue
	}
)

// Error implements the error interface.
func (e *Error) Error() string {
	lines := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Path != "" {
			lines = append(lines, is.Path+": "+is.Message)
		} else {
			lines = append(lines, is.Message)
		}
	}
	if len(lines) == 1 {
		return fmt.Sprintf("%s: %s", e.File, lines[0])
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.File, strings.Join(lines, "\n  "))
}

// Unwrap returns ErrInvalidDocument for errors.Is() compatibility.
func (e *Error) Unwrap() error { return ErrInvalidDocument }

// FormatError converts a CUE error into an *Error with one Issue per
// underlying CUE error. Non-CUE errors are wrapped with the file name.
func FormatError(err error, file string) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", file, err)
	}

	out := &Error{File: file}
	for _, e := range errs {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		// CUE repeats the path at the front of some messages.
		if path != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		out.Issues = append(out.Issues, Issue{Path: path, Message: msg})
	}
	return out
}

// formatPath turns CUE's flat selector list into JSON-path notation:
// ["bundles", "0", "output"] becomes "bundles[0].output".
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize rejects documents larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, file string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", file, len(data), maxSize)
	}
	return nil
}
