// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hostpack/hostpack/internal/config"
	"github.com/hostpack/hostpack/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `hostpack config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage hostpack configuration",
		Long: `Manage hostpack configuration.

Configuration is read from the first of:
  - the file given with --config
  - the user config file:
      Linux: ~/.config/hostpack/config.cue
      macOS: ~/Library/Application Support/hostpack/config.cue
      Windows: %APPDATA%\hostpack\config.cue
  - hostpack.cue in the working directory

Environment variables prefixed with HOSTPACK_ override file values,
for example HOSTPACK_BUILD_MAX_PARALLEL=4.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.showConfig(cmd); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default user configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return app.fail(cmd, issue.NewErrorContext().
					WithOperation("create config").
					WithIssue(issue.ConfigLoadFailedId).
					Wrap(err).
					BuildError())
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.UserConfigPath()
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", filepath.Dir(path))
			fmt.Fprintf(app.stdout, "Config file: %s\n", path)
			fmt.Fprintf(app.stdout, "Project file: %s\n", config.LocalFileName)
			return nil
		},
	})

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.currentConfig(cmd)
			if err != nil {
				return app.fail(cmd, err)
			}
			if err := writeFormatted(app.stdout, format, cfg, []byte(config.GenerateCUE(cfg))); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
	dumpCmd.Flags().StringVarP(&format, "format", "f", formatCUE, "output format: cue, json, toml")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

// currentConfig loads configuration for the working directory.
func (a *App) currentConfig(cmd *cobra.Command) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return a.prepare(cmd, wd)
}

func (a *App) showConfig(cmd *cobra.Command) error {
	cfg, err := a.currentConfig(cmd)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("load config").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := a.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if a.loaded.Path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), a.loaded.Path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("log_level"), valueStyle.Render(string(cfg.LogLevel)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("build"))
	fmt.Fprintf(w, "  transpiler: %s\n", valueStyle.Render(string(cfg.Build.Transpiler)))
	if cfg.Build.TranspileCommand != "" {
		fmt.Fprintf(w, "  transpile_command: %s\n", valueStyle.Render(cfg.Build.TranspileCommand))
	}
	fmt.Fprintf(w, "  atomic_writes: %s\n", valueStyle.Render(fmt.Sprint(cfg.Build.AtomicWrites)))
	fmt.Fprintf(w, "  keep_intermediate: %s\n", valueStyle.Render(fmt.Sprint(cfg.Build.KeepIntermediate)))
	parallel := fmt.Sprint(cfg.Build.MaxParallel)
	if cfg.Build.MaxParallel == 0 {
		parallel += SubtitleStyle.Render(" (unbounded)")
	}
	fmt.Fprintf(w, "  max_parallel: %s\n", valueStyle.Render(parallel))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("watch"))
	fmt.Fprintf(w, "  debounce_ms: %s\n", valueStyle.Render(fmt.Sprint(cfg.Watch.DebounceMS)))
	if len(cfg.Watch.Ignore) == 0 {
		fmt.Fprintf(w, "  ignore: %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		fmt.Fprintf(w, "  ignore: %s\n", valueStyle.Render(strings.Join(cfg.Watch.Ignore, ", ")))
	}
	return nil
}
