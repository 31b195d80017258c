// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hostpack/hostpack/internal/manifest"

	"github.com/spf13/cobra"
)

// manifestFlags are shared by the manifest subcommands.
type manifestFlags struct {
	root         string
	manifestPath string
}

func newManifestCommand(app *App) *cobra.Command {
	var f manifestFlags
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect the build manifest",
		Long: `Inspect the manifest a build would use: --manifest, else
hostpack.manifest.cue in the project root, else the built-in manifest.`,
	}
	cmd.PersistentFlags().StringVar(&f.root, "root", ".", "project root")
	cmd.PersistentFlags().StringVar(&f.manifestPath, "manifest", "", "manifest file (default <root>/"+manifest.DefaultFileName+" or built-in)")

	cmd.AddCommand(newManifestShowCommand(app, &f), newManifestValidateCommand(app, &f))
	return cmd
}

func newManifestShowCommand(app *App, f *manifestFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the manifest",
		Example: `  hostpack manifest show > hostpack.manifest.cue
  hostpack manifest show --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := filepath.Abs(f.root)
			if err != nil {
				return app.fail(cmd, usageError(err))
			}
			m, source, err := loadManifest(root, f.manifestPath)
			if err != nil {
				return app.fail(cmd, err)
			}

			cue := manifest.DefaultSource()
			if source != "built-in" {
				if cue, err = os.ReadFile(source); err != nil {
					return app.fail(cmd, err)
				}
			}
			if err := writeFormatted(app.stdout, format, m, cue); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatCUE, "output format: cue, json, toml")
	return cmd
}

func newManifestValidateCommand(app *App, f *manifestFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the manifest against the schema and its own rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := filepath.Abs(f.root)
			if err != nil {
				return app.fail(cmd, usageError(err))
			}
			m, source, err := loadManifest(root, f.manifestPath)
			if err != nil {
				return app.fail(cmd, err)
			}
			plan, err := m.Resolve(root)
			if err != nil {
				return app.fail(cmd, err)
			}

			fmt.Fprintf(app.stdout, "%s %s is valid\n", SuccessStyle.Render("✓"), source)
			fmt.Fprintf(app.stdout, "  %s  %d bundles, %d assets\n", CmdStyle.Render(plan.Name), len(plan.Bundles), len(plan.Assets))
			fmt.Fprintf(app.stdout, "  linking: %s\n", m.Linking().Name)
			return nil
		},
	}
}
