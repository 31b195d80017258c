// SPDX-License-Identifier: MPL-2.0

// Package asset copies opaque, platform-specific auxiliary files into the
// output tree.
//
// Each Task names a glob pattern that must resolve to exactly one file under
// its source root. Zero or several matches is a data-integrity failure: the
// copier never guesses which match was meant and writes nothing.
package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hostpack/hostpack/internal/artifact"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrResolution is the sentinel error wrapped by ResolutionError.
	ErrResolution = errors.New("asset resolution failed")
	// ErrInvalidPattern is returned for a malformed glob pattern.
	ErrInvalidPattern = errors.New("invalid asset pattern")
)

type (
	// Task describes one asset copy.
	Task struct {
		// Name identifies the task in logs and errors.
		Name string
		// Pattern is a doublestar glob, relative to SourceRoot, using "/" separators.
		Pattern string
		// SourceRoot is the directory Pattern is resolved against.
		SourceRoot string
		// Destination is the absolute output path.
		Destination string
	}

	// ResolutionError is returned when a pattern does not match exactly one file.
	// It wraps ErrResolution for errors.Is() compatibility.
	ResolutionError struct {
		Task    Task
		Matches []string
	}

	// Copier resolves and copies asset tasks.
	Copier struct {
		Writer artifact.Writer
	}
)

// ValidatePattern reports whether pattern is a well-formed glob.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" || !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	return nil
}

// Resolve returns the single file matched by t, as an absolute path.
func Resolve(t Task) (string, error) {
	if err := ValidatePattern(t.Pattern); err != nil {
		return "", err
	}
	matches, err := doublestar.Glob(os.DirFS(t.SourceRoot), t.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", &artifact.FilesystemError{Op: "glob", Path: filepath.Join(t.SourceRoot, t.Pattern), Err: err}
	}
	if len(matches) != 1 {
		return "", &ResolutionError{Task: t, Matches: matches}
	}
	return filepath.Join(t.SourceRoot, filepath.FromSlash(matches[0])), nil
}

// Copy resolves t and copies the matched file verbatim to t.Destination,
// keeping its permission bits.
func (c Copier) Copy(t Task) (*artifact.Artifact, error) {
	src, err := Resolve(t)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, &artifact.FilesystemError{Op: "stat", Path: src, Err: err}
	}
	content, err := os.ReadFile(src)
	if err != nil {
		return nil, &artifact.FilesystemError{Op: "read", Path: src, Err: err}
	}

	a := &artifact.Artifact{
		Path:    t.Destination,
		Content: content,
		Mode:    info.Mode().Perm(),
	}
	if err := c.Writer.Write(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Error implements the error interface for ResolutionError.
func (e *ResolutionError) Error() string {
	where := filepath.Join(e.Task.SourceRoot, e.Task.Pattern)
	switch len(e.Matches) {
	case 0:
		return fmt.Sprintf("asset %q: pattern %s matched no files (want exactly 1)", e.Task.Name, where)
	default:
		return fmt.Sprintf("asset %q: pattern %s matched %d files (want exactly 1): %s",
			e.Task.Name, where, len(e.Matches), strings.Join(e.Matches, ", "))
	}
}

// Unwrap returns ErrResolution for errors.Is() compatibility.
func (e *ResolutionError) Unwrap() error { return ErrResolution }
