// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// LogLevelDebug logs everything, including state transitions.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// TranspilerEsbuild transforms sources in-process.
	TranspilerEsbuild TranspilerKind = "esbuild"
	// TranspilerShell runs build.transpile_command.
	TranspilerShell TranspilerKind = "shell"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidTranspiler is returned when a TranspilerKind value is not recognized.
	ErrInvalidTranspiler = errors.New("invalid transpiler")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of log records emitted.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// TranspilerKind selects the transpile step implementation.
	TranspilerKind string

	// InvalidTranspilerError is returned when a TranspilerKind value is not recognized.
	InvalidTranspilerError struct {
		Value TranspilerKind
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// LogLevel is the minimum level logged to stderr.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level" toml:"log_level"`
		// UI configures terminal output.
		UI UIConfig `json:"ui" mapstructure:"ui" toml:"ui"`
		// Build configures build passes.
		Build BuildConfig `json:"build" mapstructure:"build" toml:"build"`
		// Watch configures watch mode.
		Watch WatchConfig `json:"watch" mapstructure:"watch" toml:"watch"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables verbose output and debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose" toml:"verbose"`
		// ColorScheme sets the color scheme.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
	}

	// BuildConfig configures build passes.
	BuildConfig struct {
		// Transpiler selects the transpile step.
		Transpiler TranspilerKind `json:"transpiler" mapstructure:"transpiler" toml:"transpiler"`
		// TranspileCommand is the shell command run by the shell transpiler.
		TranspileCommand string `json:"transpile_command,omitempty" mapstructure:"transpile_command" toml:"transpile_command,omitempty"`
		// AtomicWrites publishes each artifact through a temp file and rename.
		AtomicWrites bool `json:"atomic_writes" mapstructure:"atomic_writes" toml:"atomic_writes"`
		// KeepIntermediate keeps the transpiled tree after a successful pass.
		KeepIntermediate bool `json:"keep_intermediate" mapstructure:"keep_intermediate" toml:"keep_intermediate"`
		// MaxParallel bounds concurrent jobs; 0 means unbounded.
		MaxParallel int `json:"max_parallel" mapstructure:"max_parallel" toml:"max_parallel"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// DebounceMS is the quiet period in milliseconds before a rebuild.
		DebounceMS int `json:"debounce_ms" mapstructure:"debounce_ms" toml:"debounce_ms"`
		// Ignore lists extra doublestar patterns that never trigger a rebuild.
		Ignore []string `json:"ignore,omitempty" mapstructure:"ignore" toml:"ignore,omitempty"`
	}
)

// DefaultConfig returns the configuration used when no file sets a value.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: LogLevelInfo,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
		Build: BuildConfig{
			Transpiler:   TranspilerEsbuild,
			AtomicWrites: true,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

// Debounce returns the watch quiet period as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Slog maps the level onto slog. Unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid returns whether the ColorScheme is one of the defined schemes.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid returns whether the TranspilerKind is one of the defined kinds.
func (k TranspilerKind) IsValid() (bool, []error) {
	switch k {
	case TranspilerEsbuild, TranspilerShell:
		return true, nil
	default:
		return false, []error{&InvalidTranspilerError{Value: k}}
	}
}

// Error implements the error interface for InvalidTranspilerError.
func (e *InvalidTranspilerError) Error() string {
	return fmt.Sprintf("invalid transpiler %q (valid: esbuild, shell)", e.Value)
}

// Unwrap returns ErrInvalidTranspiler for errors.Is() compatibility.
func (e *InvalidTranspilerError) Unwrap() error { return ErrInvalidTranspiler }

// IsValid checks the cross-field constraints the CUE schema cannot see
// after environment overrides have been applied.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if ok, fieldErrs := c.LogLevel.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if ok, fieldErrs := c.UI.ColorScheme.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if ok, fieldErrs := c.Build.Transpiler.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if c.Build.Transpiler == TranspilerShell && strings.TrimSpace(c.Build.TranspileCommand) == "" {
		errs = append(errs, errors.New("build.transpile_command is required when build.transpiler is \"shell\""))
	}
	if c.Build.MaxParallel < 0 {
		errs = append(errs, fmt.Errorf("build.max_parallel must be >= 0, got %d", c.Build.MaxParallel))
	}
	if c.Watch.DebounceMS <= 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms must be > 0, got %d", c.Watch.DebounceMS))
	}
	for _, p := range c.Watch.Ignore {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("watch.ignore: invalid pattern %q", p))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and the field errors, so errors.Is
// matches both the sentinel and a specific field failure.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
