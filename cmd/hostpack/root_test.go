// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/hostpack/hostpack/internal/config"
	"github.com/hostpack/hostpack/internal/manifest"
	"github.com/hostpack/hostpack/internal/transpile"
	"github.com/hostpack/hostpack/pkg/cueutil"
	"github.com/hostpack/hostpack/pkg/types"

	"github.com/charmbracelet/fang"
)

// runCLI executes the command tree with args against fresh buffers and an
// empty user config directory. Not safe for parallel tests: the config
// directory override and the default slog logger are process-wide.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	config.SetConfigDirOverride(t.TempDir())
	t.Cleanup(config.Reset)

	var out, errOut bytes.Buffer
	app := NewApp(Dependencies{Stdout: &out, Stderr: &errOut})
	root := NewRootCommand(app)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// exitCode extracts the exit code carried by err.
func exitCode(t *testing.T, err error) types.ExitCode {
	t.Helper()
	if err == nil {
		return types.ExitOK
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error %v (%T) is not an *ExitError", err, err)
	}
	return exitErr.Code
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"nil", nil, types.ExitOK},
		{"invalid manifest", &manifest.InvalidManifestError{Source: "m.cue", FieldErrors: []error{errors.New("x")}}, types.ExitUsage},
		{"invalid config", &config.InvalidConfigError{FieldErrors: []error{errors.New("x")}}, types.ExitUsage},
		{"schema violation", fmt.Errorf("load: %w", cueutil.ErrInvalidDocument), types.ExitUsage},
		{"usage", usageError(errors.New("bad flag")), types.ExitUsage},
		{"transpile", &transpile.CompileError{Tool: "esbuild"}, types.ExitFailure},
		{"other", os.ErrPermission, types.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	_, stderr, err := runCLI(t, "--log-level", "loud", "explain")
	if err == nil {
		t.Fatal("expected an error for an invalid log level")
	}
	if !errors.Is(err, errUsage) || !errors.Is(err, config.ErrInvalidLogLevel) {
		t.Errorf("error = %v, want usage error wrapping ErrInvalidLogLevel", err)
	}
	if !strings.Contains(stderr, "invalid log level") {
		t.Errorf("stderr = %q, want the log level error", stderr)
	}
}

func TestHandleError_SkipsExitError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handleError(&buf, fang.Styles{}, &ExitError{Code: types.ExitFailure, Err: errors.New("already shown")})
	if buf.Len() != 0 {
		t.Errorf("handleError printed %q for an ExitError", buf.String())
	}
}
