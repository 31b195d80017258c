// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/hostpack/hostpack/internal/config"
	"github.com/hostpack/hostpack/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reads configuration and streams from it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		flags  globalFlags
		loaded *config.Loaded
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// globalFlags are the persistent flags of the root command.
	globalFlags struct {
		configPath string
		verbose    bool
		logLevel   string
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads configuration once per invocation. baseDir is where a
// project-local hostpack.cue is looked up.
func (a *App) loadConfig(ctx context.Context, baseDir string) (*config.Loaded, error) {
	if a.loaded != nil {
		return a.loaded, nil
	}
	loaded, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(a.flags.configPath),
		BaseDir:        types.FilesystemPath(baseDir),
	})
	if err != nil {
		return nil, err
	}
	a.loaded = loaded
	return loaded, nil
}

// cfg returns the loaded configuration, or defaults before loading.
func (a *App) cfg() *config.Config {
	if a.loaded == nil {
		return config.DefaultConfig()
	}
	return a.loaded.Config
}

// verbose reports whether verbose output was requested by flag or config.
func (a *App) verbose() bool {
	return a.flags.verbose || (a.loaded != nil && a.loaded.Config.UI.Verbose)
}
