// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/hostpack/hostpack/internal/issue"
	"github.com/hostpack/hostpack/internal/testutil"
	"github.com/hostpack/hostpack/pkg/cueutil"
	"github.com/hostpack/hostpack/pkg/types"
)

// load runs the provider against an empty config dir and the given base dir.
func load(t *testing.T, opts LoadOptions) (*Loaded, error) {
	t.Helper()
	if opts.ConfigDirPath == "" {
		opts.ConfigDirPath = types.FilesystemPath(t.TempDir())
	}
	if opts.BaseDir == "" {
		opts.BaseDir = types.FilesystemPath(t.TempDir())
	}
	return NewProvider().Load(context.Background(), opts)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.LogLevel != LogLevelInfo {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto || cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
	if cfg.Build.Transpiler != TranspilerEsbuild {
		t.Errorf("Transpiler = %q, want esbuild", cfg.Build.Transpiler)
	}
	if !cfg.Build.AtomicWrites {
		t.Error("AtomicWrites should default to true")
	}
	if cfg.Build.KeepIntermediate || cfg.Build.MaxParallel != 0 {
		t.Errorf("Build = %+v", cfg.Build)
	}
	if cfg.Watch.Debounce() != 500*time.Millisecond {
		t.Errorf("Debounce() = %v, want 500ms", cfg.Watch.Debounce())
	}
	if ok, errs := cfg.IsValid(); !ok {
		t.Errorf("DefaultConfig().IsValid() = %v", errs)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if want := filepath.Join(xdg, AppName); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}

	SetConfigDirOverride("/override")
	t.Cleanup(Reset)
	if dir, _ := ConfigDir(); dir != "/override" {
		t.Errorf("ConfigDir() with override = %q", dir)
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	got, err := load(t, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Path != "" {
		t.Errorf("Path = %q, want empty", got.Path)
	}
	if got.Config.Build.Transpiler != TranspilerEsbuild || !got.Config.Build.AtomicWrites {
		t.Errorf("Config = %+v, want defaults", got.Config)
	}
}

func TestLoad_UserFileBeatsLocalFile(t *testing.T) {
	t.Parallel()

	cfgDir := t.TempDir()
	base := t.TempDir()
	testutil.WriteTree(t, cfgDir, map[string]string{"config.cue": "build: max_parallel: 3\n"})
	testutil.WriteTree(t, base, map[string]string{LocalFileName: "build: max_parallel: 7\n"})

	got, err := load(t, LoadOptions{ConfigDirPath: types.FilesystemPath(cfgDir), BaseDir: types.FilesystemPath(base)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Config.Build.MaxParallel != 3 {
		t.Errorf("MaxParallel = %d, want 3", got.Config.Build.MaxParallel)
	}
	if got.Path != filepath.Join(cfgDir, "config.cue") {
		t.Errorf("Path = %q", got.Path)
	}
}

func TestLoad_LocalFile(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	testutil.WriteTree(t, base, map[string]string{LocalFileName: `
log_level: "debug"
build: {
	transpiler:        "shell"
	transpile_command: "tsc -p $HOSTPACK_SETTINGS --outDir $HOSTPACK_OUT_DIR"
	atomic_writes:     false
}
watch: ignore: ["dist/**"]
`})

	got, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(base)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg := got.Config
	if cfg.LogLevel != LogLevelDebug || cfg.Build.Transpiler != TranspilerShell || cfg.Build.AtomicWrites {
		t.Errorf("Config = %+v", cfg)
	}
	if len(cfg.Watch.Ignore) != 1 || cfg.Watch.Ignore[0] != "dist/**" {
		t.Errorf("Watch.Ignore = %v", cfg.Watch.Ignore)
	}
	// Unset fields keep their defaults.
	if cfg.Watch.DebounceMS != 500 || cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.cue")
	testutil.WriteTree(t, dir, map[string]string{"custom.cue": "ui: verbose: true\n"})

	got, err := load(t, LoadOptions{ConfigFilePath: types.FilesystemPath(path)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Config.UI.Verbose || got.Path != path {
		t.Errorf("Load() = %+v / %q", got.Config.UI, got.Path)
	}

	_, err = load(t, LoadOptions{ConfigFilePath: types.FilesystemPath(filepath.Join(dir, "missing.cue"))})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("missing file error = %v, want *issue.ActionableError", err)
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown field", content: "colour: true\n", want: "colour"},
		{name: "bad enum", content: "build: transpiler: \"tsc\"\n", want: "build.transpiler"},
		{name: "negative parallelism", content: "build: max_parallel: -1\n", want: "build.max_parallel"},
		{name: "zero debounce", content: "watch: debounce_ms: 0\n", want: "watch.debounce_ms"},
		{name: "syntax error", content: "build: {\n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			base := t.TempDir()
			testutil.WriteTree(t, base, map[string]string{LocalFileName: tt.content})
			_, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(base)})
			if err == nil {
				t.Fatal("Load() accepted an invalid file")
			}
			if !errors.Is(err, cueutil.ErrInvalidDocument) {
				t.Errorf("error = %v, want ErrInvalidDocument in chain", err)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad_ShellTranspilerNeedsCommand(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	testutil.WriteTree(t, base, map[string]string{LocalFileName: "build: transpiler: \"shell\"\n"})
	_, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(base)})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "transpile_command") {
		t.Errorf("error = %v", err)
	}
}

// Environment overrides are process-wide, so these tests do not run in parallel.
func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOSTPACK_BUILD_MAX_PARALLEL", "4")
	t.Setenv("HOSTPACK_BUILD_ATOMIC_WRITES", "false")
	t.Setenv("HOSTPACK_LOG_LEVEL", "warn")

	base := t.TempDir()
	testutil.WriteTree(t, base, map[string]string{LocalFileName: "build: max_parallel: 2\n"})

	got, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(base)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Config.Build.MaxParallel != 4 {
		t.Errorf("MaxParallel = %d, want env value 4", got.Config.Build.MaxParallel)
	}
	if got.Config.Build.AtomicWrites {
		t.Error("AtomicWrites should be overridden to false")
	}
	if got.Config.LogLevel != LogLevelWarn {
		t.Errorf("LogLevel = %q, want warn", got.Config.LogLevel)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("HOSTPACK_UI_COLOR_SCHEME", "neon")

	_, err := load(t, LoadOptions{})
	if !errors.Is(err, ErrInvalidColorScheme) {
		t.Errorf("Load() error = %v, want ErrInvalidColorScheme", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoadOptions_Validate(t *testing.T) {
	t.Parallel()

	if err := (LoadOptions{}).Validate(); err != nil {
		t.Errorf("empty LoadOptions should be valid, got %v", err)
	}
	err := LoadOptions{ConfigFilePath: "   ", BaseDir: "\t"}.Validate()
	if !errors.Is(err, ErrInvalidLoadOptions) {
		t.Fatalf("Validate() error = %v, want ErrInvalidLoadOptions", err)
	}
	var loadErr *InvalidLoadOptionsError
	if !errors.As(err, &loadErr) || len(loadErr.FieldErrors) != 2 {
		t.Errorf("FieldErrors = %v, want 2", loadErr)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Build.Transpiler = TranspilerShell
	cfg.Build.TranspileCommand = "npx tsc -p \"$HOSTPACK_SETTINGS\""
	cfg.Build.MaxParallel = 2
	cfg.Watch.Ignore = []string{"dist/**", "**/*.map"}

	base := t.TempDir()
	testutil.WriteTree(t, base, map[string]string{LocalFileName: GenerateCUE(cfg)})
	got, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(base)})
	if err != nil {
		t.Fatalf("generated file does not load: %v\n%s", err, GenerateCUE(cfg))
	}
	if got.Config.Build.TranspileCommand != cfg.Build.TranspileCommand || got.Config.Build.MaxParallel != 2 {
		t.Errorf("Build = %+v", got.Config.Build)
	}
	if len(got.Config.Watch.Ignore) != 2 {
		t.Errorf("Watch.Ignore = %v", got.Config.Watch.Ignore)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}
	if !strings.Contains(testutil.ReadFile(t, path), "atomic_writes:     true") {
		t.Errorf("unexpected content:\n%s", testutil.ReadFile(t, path))
	}

	// An existing file is left alone.
	if err := os.WriteFile(path, []byte("log_level: \"error\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ReadFile(t, path); got != "log_level: \"error\"\n" {
		t.Errorf("existing file overwritten: %q", got)
	}
}

func TestLogLevel_Slog(t *testing.T) {
	t.Parallel()

	if LogLevelDebug.Slog().String() != "DEBUG" || LogLevel("bogus").Slog().String() != "INFO" {
		t.Error("unexpected slog mapping")
	}
	if ok, errs := LogLevel("trace").IsValid(); ok || !errors.Is(errs[0], ErrInvalidLogLevel) {
		t.Errorf("IsValid(trace) = %v, %v", ok, errs)
	}
}
