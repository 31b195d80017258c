// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hostpack/hostpack/internal/issue"
	"github.com/hostpack/hostpack/internal/policy"

	"github.com/spf13/cobra"
)

func newClassifyCommand(app *App) *cobra.Command {
	var (
		root         string
		manifestPath string
		artifactName string
	)
	cmd := &cobra.Command{
		Use:   "classify SPECIFIER...",
		Short: "Show how import specifiers are treated",
		Long: `Classify import specifiers under the policy of one artifact, the way its
bundle job would. Without --artifact the main (linking) artifact is used.

Classes, in priority order:
  pass-through     relative or absolute path, resolved normally
  rewrite-alias    virtual alias, rewritten to a fixed path and left external
  leave-external   allowlisted host module, left for the host to provide
  embed            everything else, bundled into the artifact`,
		Example: `  hostpack classify ./a.js @sys os lodash
  hostpack classify --artifact node-fetch.js http stream`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(root)
			if err != nil {
				return app.fail(cmd, usageError(err))
			}
			if _, err := app.prepare(cmd, abs); err != nil {
				return app.fail(cmd, err)
			}
			m, _, err := loadManifest(abs, manifestPath)
			if err != nil {
				return app.fail(cmd, err)
			}

			b := m.Linking()
			if artifactName != "" {
				var ok bool
				if b, ok = m.Bundle(artifactName); !ok {
					names := make([]string, len(m.Bundles))
					for i, mb := range m.Bundles {
						names[i] = mb.Name
					}
					return app.fail(cmd, issue.NewErrorContext().
						WithOperation("classify").
						WithResource(artifactName).
						WithSuggestions(fmt.Sprintf("Known artifacts: %v", names)).
						Wrap(usageError(fmt.Errorf("no bundle named %q", artifactName))).
						BuildError())
				}
			}

			p, err := m.Policy(b.Policy, abs)
			if err != nil {
				return app.fail(cmd, err)
			}
			renderClassifications(app, b.Name, p, args, app.verbose())
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "project root")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest file (default <root>/hostpack.manifest.cue or built-in)")
	cmd.Flags().StringVarP(&artifactName, "artifact", "a", "", "bundle whose policy is used (default: the linking bundle)")
	_ = cmd.RegisterFlagCompletionFunc("artifact", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		m, _, err := loadManifest(abs, manifestPath)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		names := make([]string, len(m.Bundles))
		for i, b := range m.Bundles {
			names[i] = b.Name + "\t" + string(b.Strategy)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func renderClassifications(app *App, artifactName string, p policy.ExternalizationPolicy, specifiers []string, verbose bool) {
	fmt.Fprintln(app.stdout, TitleStyle.Render(artifactName)+SubtitleStyle.Render(" (policy "+p.Name()+")"))
	if verbose {
		renderPolicy(app, p)
	}

	width := 0
	for _, s := range specifiers {
		width = max(width, len(s))
	}
	external := 0
	for _, s := range specifiers {
		c := policy.Classify(s, p)
		if c.Class.External() {
			external++
		}
		label := c.String()
		if style, ok := classStyles[c.Class.String()]; ok {
			label = style.Render(label)
		}
		line := fmt.Sprintf("  %s  %s", CmdStyle.Render(fmt.Sprintf("%-*s", width, s)), label)
		if c.Class == policy.Embed {
			if target, ok := p.Override(s); ok {
				line += VerboseStyle.Render("  -> " + target)
			}
		}
		fmt.Fprintln(app.stdout, line)
	}
	if verbose {
		fmt.Fprintln(app.stdout, VerboseStyle.Render(fmt.Sprintf("  %d of %d left external", external, len(specifiers))))
	}
}

// renderPolicy lists the aliases and allowlist of p.
func renderPolicy(app *App, p policy.ExternalizationPolicy) {
	aliases := p.Aliases()
	for _, alias := range slices.Sorted(maps.Keys(aliases)) {
		fmt.Fprintln(app.stdout, VerboseStyle.Render(fmt.Sprintf("  alias %s -> %s", alias, aliases[alias])))
	}
	fmt.Fprintln(app.stdout, VerboseStyle.Render("  allowlist: "+strings.Join(p.Allowlist(), ", ")))
}
