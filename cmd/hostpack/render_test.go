// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hostpack/hostpack/internal/app/build"
	"github.com/hostpack/hostpack/internal/artifact"
	"github.com/hostpack/hostpack/internal/asset"
	"github.com/hostpack/hostpack/internal/engine"
	"github.com/hostpack/hostpack/internal/issue"
	"github.com/hostpack/hostpack/internal/manifest"
	"github.com/hostpack/hostpack/internal/policy"
	"github.com/hostpack/hostpack/internal/transpile"
)

func TestIssueFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"nil", nil, 0},
		{"zero matches", &asset.ResolutionError{Task: asset.Task{Name: "xdg-open"}}, issue.AssetNotFoundId},
		{"several matches", &asset.ResolutionError{Matches: []string{"a", "b"}}, issue.AssetAmbiguousId},
		{"compile", fmt.Errorf("pass: %w", &transpile.CompileError{Tool: "shell"}), issue.TranspileFailedId},
		{"builtin", &engine.BundleError{Job: "a.js", Messages: []engine.Message{{Text: `host built-in "fs" cannot be embedded and is not allowlisted by policy "p"`}}}, issue.BuiltinNotAllowlistedId},
		{"unresolved", &engine.BundleError{Job: "a.js", Messages: []engine.Message{{Text: `Could not resolve "lodash"`}}}, issue.ImportNotAllowlistedId},
		{"other bundle error", &engine.BundleError{Job: "a.js", Messages: []engine.Message{{Text: "Unexpected end of file"}}}, 0},
		{"manifest", &manifest.InvalidManifestError{Source: "m", FieldErrors: []error{errors.New("x")}}, issue.ManifestInvalidId},
		{"filesystem", &artifact.FilesystemError{Op: "write", Path: "/x", Err: errors.New("denied")}, issue.OutputNotWritableId},
		{"unrelated", errors.New("boom"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := issueFor(tt.err); got != tt.want {
				t.Errorf("issueFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	t.Run("plain error gets a topic hint", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		renderError(&buf, &asset.ResolutionError{Task: asset.Task{Name: "xdg-open", Pattern: "xdg-open"}}, false)
		if !strings.Contains(buf.String(), "hostpack explain asset-not-found") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("actionable error without issue", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := issue.NewErrorContext().
			WithOperation("write artifact").
			WithSuggestion("Check permissions").
			Wrap(&artifact.FilesystemError{Op: "write", Path: "/x", Err: errors.New("denied")}).
			BuildError()
		renderError(&buf, err, true)
		out := buf.String()
		for _, want := range []string{"failed to write artifact", "• Check permissions", "output-not-writable", "Error chain:"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})
}

func TestRenderPass(t *testing.T) {
	t.Parallel()

	plan := &manifest.Plan{Name: "demo"}
	res := &build.PassResult{
		State:    build.StateAborted,
		BuildID:  "0123456789abcdef0123456789abcdef",
		Duration: 1500 * time.Millisecond,
		Outcomes: []build.JobOutcome{
			{Name: "index.js", Kind: build.KindBundle, Strategy: policy.StrategyLinking, Duration: 40 * time.Millisecond,
				Stats: engine.Stats{OutputBytes: 2048, Externals: []string{"fs", "os"}}},
			{Name: "xdg-open", Kind: build.KindAsset, Err: &asset.ResolutionError{Task: asset.Task{Name: "xdg-open", Pattern: "xdg-open"}}},
		},
	}

	var buf bytes.Buffer
	renderPass(&buf, plan, res, true)
	out := buf.String()
	for _, want := range []string{
		"Build demo", "0123456789abcdef0123456789abcdef",
		"✓ index.js", "linking", "2.0 KB", "external: fs, os",
		"✗ xdg-open", "asset", "failed", "matched no files",
		"Aborted after 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPassError(t *testing.T) {
	t.Parallel()

	first := &asset.ResolutionError{Task: asset.Task{Name: "xdg-open"}}
	res := &build.PassResult{
		State: build.StateAborted,
		Err:   first,
		Outcomes: []build.JobOutcome{
			{Name: "a.js"}, {Name: "xdg-open", Err: first}, {Name: "b.js"},
		},
	}
	err := passError(&manifest.Plan{Name: "demo"}, res)

	if !strings.Contains(err.Error(), "1 of 3 jobs failed") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, asset.ErrResolution) {
		t.Error("pass error does not wrap the first failure")
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.AssetNotFoundId {
		t.Errorf("issue = %v, want asset-not-found", ae)
	}
	if code := exitCodeFor(err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		0:           "0 B",
		1023:        "1023 B",
		1536:        "1.5 KB",
		3 * 1 << 20: "3.0 MB",
	}
	for n, want := range tests {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
