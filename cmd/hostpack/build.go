// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hostpack/hostpack/internal/app/build"
	"github.com/hostpack/hostpack/internal/artifact"
	"github.com/hostpack/hostpack/internal/config"
	"github.com/hostpack/hostpack/internal/issue"
	"github.com/hostpack/hostpack/internal/manifest"
	"github.com/hostpack/hostpack/internal/transpile"
	"github.com/hostpack/hostpack/internal/watch"
	"github.com/hostpack/hostpack/pkg/types"

	"github.com/spf13/cobra"
)

// buildFlags are the flags of 'hostpack build'.
type buildFlags struct {
	root             string
	manifestPath     string
	settings         string
	watch            bool
	keepIntermediate bool
}

func newBuildCommand(app *App) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run a build pass",
		Long: `Transpile the host package sources, then build every bundle and copy every
asset concurrently. All jobs run to completion; the intermediate tree is
removed only when every job succeeded.

The manifest is --manifest, else hostpack.manifest.cue in the project root,
else the built-in manifest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runBuild(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.root, "root", ".", "project root all manifest paths are relative to")
	cmd.Flags().StringVar(&f.manifestPath, "manifest", "", "manifest file (default <root>/"+manifest.DefaultFileName+" or built-in)")
	cmd.Flags().StringVar(&f.settings, "settings", "", "compiler settings file, overriding the manifest")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "rebuild whenever sources change")
	cmd.Flags().BoolVar(&f.keepIntermediate, "keep-intermediate", false, "keep the transpiled tree after a successful pass")
	return cmd
}

func (a *App) runBuild(cmd *cobra.Command, f buildFlags) error {
	root, err := filepath.Abs(f.root)
	if err != nil {
		return a.fail(cmd, usageError(err))
	}
	cfg, err := a.prepare(cmd, root)
	if err != nil {
		return a.fail(cmd, err)
	}

	m, source, err := loadManifest(root, f.manifestPath)
	if err != nil {
		return a.fail(cmd, err)
	}
	if f.settings != "" {
		abs, err := filepath.Abs(f.settings)
		if err != nil {
			return a.fail(cmd, usageError(err))
		}
		m.Settings = abs
	}
	plan, err := m.Resolve(root)
	if err != nil {
		return a.fail(cmd, err)
	}
	slog.Debug("build plan resolved", "manifest", source, "root", root, "jobs", plan.JobCount())

	runner := build.NewRunner(a.runnerOptions(cfg, root, f))
	if f.watch {
		return a.watchBuild(cmd, cfg, plan, source, runner)
	}

	res := runner.Run(cmd.Context(), plan)
	renderPass(a.stdout, plan, res, a.verbose())
	if res.State != build.StateDone {
		return a.fail(cmd, passError(plan, res))
	}
	return nil
}

// runnerOptions derives the orchestrator settings from config and flags.
func (a *App) runnerOptions(cfg *config.Config, root string, f buildFlags) build.Options {
	writer := artifact.Writer{Atomic: cfg.Build.AtomicWrites}

	var tr transpile.Transpiler
	switch cfg.Build.Transpiler {
	case config.TranspilerShell:
		tr = &transpile.ShellTranspiler{Command: cfg.Build.TranspileCommand, Dir: root, Stdout: a.stderr}
	default:
		tr = &transpile.EsbuildTranspiler{MaxParallel: cfg.Build.MaxParallel, Writer: writer}
	}

	opts := build.Options{
		Transpiler:       tr,
		Writer:           writer,
		KeepIntermediate: f.keepIntermediate || cfg.Build.KeepIntermediate,
		MaxParallel:      cfg.Build.MaxParallel,
	}
	if a.verbose() {
		opts.OnEvent = func(e build.Event) { renderEvent(a.stderr, e) }
	}
	return opts
}

// loadManifest finds the manifest for root. It returns the manifest and a
// description of where it came from.
func loadManifest(root, explicit string) (*manifest.Manifest, string, error) {
	if explicit != "" {
		path, err := filepath.Abs(explicit)
		if err != nil {
			return nil, "", usageError(err)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load manifest").
				WithResource(explicit).
				WithSuggestion("Omit --manifest to use the built-in manifest").
				WithIssue(issue.ManifestNotFoundId).
				Wrap(usageError(err)).
				BuildError()
		}
		return loadManifestFile(path)
	}

	local := types.FilesystemPath(manifest.DefaultFileName).Resolve(root)
	if _, err := os.Stat(local); err == nil {
		return loadManifestFile(local)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, "", issue.WrapWithOperation(err, "load manifest")
	}

	m, err := manifest.Default()
	if err != nil {
		return nil, "", err
	}
	return m, "built-in", nil
}

func loadManifestFile(path string) (*manifest.Manifest, string, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("load manifest").
			WithResource(path).
			WithSuggestion("Run 'hostpack manifest validate --manifest " + path + "' to list every problem").
			WithIssue(issue.ManifestInvalidId).
			Wrap(err).
			BuildError()
	}
	return m, path, nil
}

// watchBuild runs one pass, then one more after every settled burst of
// changes. Failed passes are reported and watching continues.
func (a *App) watchBuild(cmd *cobra.Command, cfg *config.Config, plan *manifest.Plan, source string, runner *build.Runner) error {
	ctx := cmd.Context()
	pass := func(ctx context.Context) {
		res := runner.Run(ctx, plan)
		renderPass(a.stdout, plan, res, a.verbose())
		if res.State != build.StateDone {
			renderError(a.stderr, passError(plan, res), a.verbose())
		}
	}

	w, err := watch.New(watch.Options{
		Root:     plan.Root,
		Patterns: watchPatterns(plan, source),
		Ignore:   append(outputIgnores(plan), cfg.Watch.Ignore...),
		Debounce: cfg.Watch.Debounce(),
		OnChange: func(ctx context.Context, changed []string) error {
			slog.Info("change detected, rebuilding", "files", len(changed), "first", changed[0])
			pass(ctx)
			return nil
		},
	})
	if err != nil {
		return a.fail(cmd, issue.WrapWithOperation(err, "start watcher"))
	}

	pass(ctx)
	slog.Info("watching for changes", "root", plan.Root)
	if err := w.Run(ctx); err != nil {
		return a.fail(cmd, issue.WrapWithOperation(err, "watch"))
	}
	return nil
}

// watchPatterns selects the sources of a pass: the source tree, the
// compiler settings and the manifest file itself.
func watchPatterns(plan *manifest.Plan, source string) []string {
	var patterns []string
	if rel, ok := relTo(plan.Root, plan.SourceRoot); ok {
		if rel == "." {
			return nil
		}
		patterns = append(patterns, rel+"/**")
	}
	for _, p := range []string{plan.Settings, source} {
		if rel, ok := relTo(plan.Root, p); ok && rel != "." {
			patterns = append(patterns, rel)
		}
	}
	return patterns
}

// outputIgnores keeps a pass's own writes from triggering the next one.
func outputIgnores(plan *manifest.Plan) []string {
	var out []string
	if rel, ok := relTo(plan.Root, plan.Intermediate); ok && rel != "." {
		out = append(out, rel, rel+"/**")
	}
	for _, b := range plan.Bundles {
		if rel, ok := relTo(plan.Root, b.Output); ok {
			out = append(out, rel)
		}
	}
	for _, t := range plan.Assets {
		if rel, ok := relTo(plan.Root, t.Destination); ok {
			out = append(out, rel)
		}
	}
	return out
}

// relTo returns path relative to root with "/" separators, or false when
// path is outside root.
func relTo(root, path string) (string, bool) {
	if path == "" || !filepath.IsAbs(path) {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
