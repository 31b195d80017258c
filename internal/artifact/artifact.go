// SPDX-License-Identifier: MPL-2.0

// Package artifact writes finished output files.
//
// An Artifact is owned by the job that produced it until it is written; once
// written it is not touched again for the rest of the pass. With atomic
// writes enabled the content is written to a temporary file in the
// destination directory and renamed into place, so readers never observe a
// half-written artifact.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// DefaultFileMode is the mode used when an Artifact does not specify one.
	DefaultFileMode fs.FileMode = 0o644
	// dirMode is the mode for directories created on the way to an artifact.
	dirMode fs.FileMode = 0o755
)

// ErrFilesystem is the sentinel error wrapped by FilesystemError.
var ErrFilesystem = errors.New("filesystem error")

type (
	// Artifact is the on-disk result of one job.
	Artifact struct {
		// Path is the absolute output path.
		Path string
		// Content is the exact bytes to write.
		Content []byte
		// BuildID is the identifier stamped into Content, if any.
		BuildID string
		// Mode is the file mode; zero means DefaultFileMode.
		Mode fs.FileMode
	}

	// Writer publishes artifacts to disk.
	Writer struct {
		// Atomic enables write-to-temp-then-rename.
		Atomic bool
	}

	// FilesystemError reports a failed read, write, copy or delete.
	// It wraps ErrFilesystem for errors.Is() compatibility.
	FilesystemError struct {
		Op   string
		Path string
		Err  error
	}
)

// Write publishes a to a.Path, creating intermediate directories.
func (w Writer) Write(a *Artifact) error {
	if a.Path == "" {
		return &FilesystemError{Op: "write", Path: a.Path, Err: errors.New("artifact path is empty")}
	}
	mode := a.Mode
	if mode == 0 {
		mode = DefaultFileMode
	}

	dir := filepath.Dir(a.Path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	if !w.Atomic {
		if err := os.WriteFile(a.Path, a.Content, mode); err != nil {
			return &FilesystemError{Op: "write", Path: a.Path, Err: err}
		}
		// WriteFile only applies mode on create.
		if err := os.Chmod(a.Path, mode); err != nil {
			return &FilesystemError{Op: "chmod", Path: a.Path, Err: err}
		}
		return nil
	}

	return writeAtomic(dir, a.Path, a.Content, mode)
}

func writeAtomic(dir, path string, content []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &FilesystemError{Op: "create temp", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName) // best-effort cleanup on error path
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return &FilesystemError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &FilesystemError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &FilesystemError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return &FilesystemError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &FilesystemError{Op: "rename", Path: path, Err: err}
	}
	committed = true
	return nil
}

// Error implements the error interface for FilesystemError.
func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns both ErrFilesystem and the underlying cause so callers can
// match either with errors.Is().
func (e *FilesystemError) Unwrap() []error { return []error{ErrFilesystem, e.Err} }
