// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/hostpack/hostpack/internal/config"
	"github.com/hostpack/hostpack/internal/issue"

	"github.com/spf13/cobra"
)

func newExplainCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [TOPIC]",
		Short: "Show the guide for an error",
		Long: `Show the remediation guide for an error. Errors print the topic to pass,
for example "Run 'hostpack explain asset-not-found' for details".
Without a topic, every guide is listed.`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			var slugs []string
			for _, is := range issue.Values() {
				slugs = append(slugs, is.Slug()+"\t"+is.Title())
			}
			return slugs, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listIssues(app)
				return nil
			}

			is := issue.Lookup(args[0])
			if is == nil {
				return app.fail(cmd, issue.NewErrorContext().
					WithOperation("explain").
					WithResource(args[0]).
					WithSuggestion("Run 'hostpack explain' to list topics").
					Wrap(usageError(fmt.Errorf("unknown topic %q", args[0]))).
					BuildError())
			}

			cfg, err := app.currentConfig(cmd)
			if err != nil {
				// The guide is still useful with default styling.
				cfg = config.DefaultConfig()
			}
			out, err := is.Render(glamourStyle(cfg.UI.ColorScheme))
			if err != nil {
				return app.fail(cmd, issue.WrapWithOperation(err, "render guide"))
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}
}

func listIssues(app *App) {
	fmt.Fprintln(app.stdout, TitleStyle.Render("Topics"))
	width := 0
	for _, is := range issue.Values() {
		width = max(width, len(is.Slug()))
	}
	for _, is := range issue.Values() {
		fmt.Fprintf(app.stdout, "  %s  %s\n", renderLabelStyle.Render(fmt.Sprintf("%-*s", width, is.Slug())), SubtitleStyle.Render(is.Title()))
	}
}

// glamourStyle maps the configured color scheme onto a glamour style name.
func glamourStyle(scheme config.ColorScheme) string {
	switch scheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}
