// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFilesystemPath_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path FilesystemPath
		want bool
	}{
		{"absolute path", FilesystemPath("/usr/bin/bash"), true},
		{"relative path", FilesystemPath("hostpack.manifest.cue"), true},
		{"windows style", FilesystemPath("C:\\Program Files\\app.exe"), true},
		{"path with spaces", FilesystemPath("/path/to/my file.txt"), true},
		{"dot path", FilesystemPath("."), true},
		{"empty is invalid", FilesystemPath(""), false},
		{"whitespace only is invalid", FilesystemPath("   "), false},
		{"tab only is invalid", FilesystemPath("\t"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.path.Validate()
			if (err == nil) != tt.want {
				t.Fatalf("FilesystemPath(%q).Validate() error = %v, wantValid %v", tt.path, err, tt.want)
			}
			if tt.want {
				return
			}
			if !errors.Is(err, ErrInvalidFilesystemPath) {
				t.Errorf("error should wrap ErrInvalidFilesystemPath, got: %v", err)
			}
			var fpErr *InvalidFilesystemPathError
			if !errors.As(err, &fpErr) {
				t.Errorf("error should be *InvalidFilesystemPathError, got: %T", err)
			}
		})
	}
}

func TestFilesystemPath_Resolve(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	other := t.TempDir()
	tests := []struct {
		path FilesystemPath
		want string
	}{
		{"", base},
		{"src", filepath.Join(base, "src")},
		{FilesystemPath(filepath.Join(other, "x", "..", "y")), filepath.Join(other, "y")},
	}
	for _, tt := range tests {
		if got := tt.path.Resolve(base); got != tt.want {
			t.Errorf("FilesystemPath(%q).Resolve() = %q, want %q", tt.path, got, tt.want)
		}
	}
}
