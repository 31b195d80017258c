// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hostpack/hostpack/internal/config"
	"github.com/hostpack/hostpack/pkg/types"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "hostpack",
		Short: "Bundle the Node host runtime package",
		Long: TitleStyle.Render("hostpack") + SubtitleStyle.Render(" - bundle the Node host runtime package") + `

hostpack compiles the host package sources once, then builds every bundle
and copies every asset concurrently. Each bundle classifies its imports
against an externalization policy: relative paths are bundled, aliases are
rewritten, allowlisted host modules stay external and everything else is
embedded. The main artifact is stamped with a fresh build identifier.

` + SubtitleStyle.Render("Examples:") + `
  hostpack build                       Run one build pass
  hostpack build --watch               Rebuild whenever sources change
  hostpack classify lodash @sys fs     Show how imports are treated
  hostpack manifest show               Print the built-in manifest
  hostpack explain asset-not-found     Read a remediation guide`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.initLogging(app.flags.logLevel)
		},
	}

	root.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/hostpack/config.cue)")
	root.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output and debug logging")
	root.PersistentFlags().StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.AddCommand(
		newBuildCommand(app),
		newClassifyCommand(app),
		newManifestCommand(app),
		newConfigCommand(app),
		newExplainCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		// Errors that bypass App.fail come from argument and flag parsing.
		os.Exit(int(types.ExitUsage))
	}
}

// handleError prints errors fang receives, except ExitErrors, which were
// rendered by the command that returned them.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// prepare loads configuration for a command working in baseDir and
// re-installs the logger with the configured level.
func (a *App) prepare(cmd *cobra.Command, baseDir string) (*config.Config, error) {
	loaded, err := a.loadConfig(cmd.Context(), baseDir)
	if err != nil {
		return nil, err
	}
	if loaded.Path != "" {
		slog.Debug("configuration loaded", "path", loaded.Path)
	}
	level := a.flags.logLevel
	if level == "" {
		level = string(loaded.Config.LogLevel)
	}
	if err := a.initLogging(level); err != nil {
		return nil, err
	}
	return loaded.Config, nil
}

// initLogging installs a charmbracelet/log logger as the slog default.
// --verbose forces debug; an empty level means info.
func (a *App) initLogging(level string) error {
	if a.verbose() {
		level = string(config.LogLevelDebug)
	}
	if level == "" {
		level = string(config.LogLevelInfo)
	}
	if ok, errs := config.LogLevel(level).IsValid(); !ok {
		return usageError(errs[0])
	}
	slog.SetDefault(slog.New(newLogHandler(a.stderr, config.LogLevel(level))))
	return nil
}

// newLogHandler returns a charmbracelet/log logger used as an slog handler.
func newLogHandler(w io.Writer, level config.LogLevel) *log.Logger {
	lvl, err := log.ParseLevel(string(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          "hostpack",
		Level:           lvl,
		ReportTimestamp: lvl == log.DebugLevel,
	})
}

// usageError wraps err so it maps to the usage exit code.
func usageError(err error) error {
	return fmt.Errorf("%w: %w", errUsage, err)
}
