// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"slices"
	"testing"
)

func TestWriteTreeAndListFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	WriteTree(t, root, map[string]string{
		"b.txt":        "b",
		"nested/a.js":  "a",
		"nested/x/y.z": "",
	})

	got := ListFiles(t, root)
	want := []string{"b.txt", "nested/a.js", "nested/x/y.z"}
	if !slices.Equal(got, want) {
		t.Errorf("ListFiles() = %v, want %v", got, want)
	}
	if c := ReadFile(t, filepath.Join(root, "nested", "a.js")); c != "a" {
		t.Errorf("ReadFile() = %q, want %q", c, "a")
	}
}

func TestListFiles_MissingRoot(t *testing.T) {
	t.Parallel()

	if got := ListFiles(t, filepath.Join(t.TempDir(), "absent")); len(got) != 0 {
		t.Errorf("ListFiles(missing) = %v, want empty", got)
	}
}
