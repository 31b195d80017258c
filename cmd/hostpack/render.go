// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hostpack/hostpack/internal/app/build"
	"github.com/hostpack/hostpack/internal/artifact"
	"github.com/hostpack/hostpack/internal/asset"
	"github.com/hostpack/hostpack/internal/config"
	"github.com/hostpack/hostpack/internal/engine"
	"github.com/hostpack/hostpack/internal/issue"
	"github.com/hostpack/hostpack/internal/manifest"
	"github.com/hostpack/hostpack/internal/transpile"
)

// passFailedError summarizes a pass whose jobs failed. The full failures
// are printed in the pass summary; the chain leads to the first one.
type passFailedError struct {
	failed int
	total  int
	first  error
}

func (e *passFailedError) Error() string {
	return fmt.Sprintf("%d of %d jobs failed", e.failed, e.total)
}

func (e *passFailedError) Unwrap() error { return e.first }

// passError turns a failed pass into the error returned to the user.
func passError(plan *manifest.Plan, res *build.PassResult) error {
	cause := res.Err
	if failed := countFailed(res.Outcomes); failed > 0 {
		cause = &passFailedError{failed: failed, total: len(res.Outcomes), first: res.Err}
	}
	return issue.NewErrorContext().
		WithOperation("run build pass").
		WithResource(plan.Name).
		WithIssue(issueFor(res.Err)).
		Wrap(cause).
		BuildError()
}

func countFailed(outcomes []build.JobOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// issueFor picks the catalog entry that explains err, or 0.
func issueFor(err error) issue.Id {
	var (
		resErr    *asset.ResolutionError
		bundleErr *engine.BundleError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &resErr):
		if len(resErr.Matches) == 0 {
			return issue.AssetNotFoundId
		}
		return issue.AssetAmbiguousId
	case errors.Is(err, transpile.ErrCompile):
		return issue.TranspileFailedId
	case errors.As(err, &bundleErr):
		for _, m := range bundleErr.Messages {
			switch {
			case strings.Contains(m.Text, "host built-in"):
				return issue.BuiltinNotAllowlistedId
			case strings.Contains(m.Text, "Could not resolve"):
				return issue.ImportNotAllowlistedId
			}
		}
		return 0
	case errors.Is(err, manifest.ErrInvalidManifest):
		return issue.ManifestInvalidId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.Is(err, artifact.ErrFilesystem):
		return issue.OutputNotWritableId
	default:
		return 0
	}
}

// renderError prints err with suggestions and, when one applies, a pointer
// to the remediation guide.
func renderError(w io.Writer, err error, verbose bool) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fmt.Fprintln(w, renderHeaderStyle.Render("Error: ")+err.Error())
		if id := issueFor(err); id != 0 {
			fmt.Fprintln(w, renderHintStyle.Render("Run 'hostpack explain "+issue.Get(id).Slug()+"' for details."))
		}
		return
	}

	shown := *ae
	if shown.Issue == 0 {
		shown.Issue = issueFor(ae.Cause)
	}
	fmt.Fprintln(w, renderHeaderStyle.Render("Error: ")+shown.Format(verbose))
}

// renderPass prints one line per job followed by the pass verdict.
func renderPass(w io.Writer, plan *manifest.Plan, res *build.PassResult, verbose bool) {
	title := "Build " + plan.Name
	if res.BuildID != "" {
		title += " " + SubtitleStyle.Render("("+res.BuildID+")")
	}
	fmt.Fprintln(w, TitleStyle.Render(title))

	width := 0
	for _, o := range res.Outcomes {
		width = max(width, len(o.Name))
	}

	for _, o := range res.Outcomes {
		kind := string(o.Kind)
		if o.Kind == build.KindBundle {
			kind = o.Strategy.String()
		}
		name := fmt.Sprintf("%-*s", width, o.Name)
		if o.Err != nil {
			fmt.Fprintf(w, "  %s %s  %-8s %s\n", ErrorStyle.Render("✗"), CmdStyle.Render(name), kind, ErrorStyle.Render("failed"))
			for line := range strings.SplitSeq(o.Err.Error(), "\n") {
				fmt.Fprintln(w, "      "+VerboseStyle.Render(strings.TrimSpace(line)))
			}
			continue
		}
		detail := formatDuration(o.Duration)
		if o.Kind == build.KindBundle {
			detail = fmt.Sprintf("%s  %s", formatBytes(o.Stats.OutputBytes), detail)
		}
		fmt.Fprintf(w, "  %s %s  %-8s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name), kind, VerboseStyle.Render(detail))
		if verbose && len(o.Stats.Externals) > 0 {
			fmt.Fprintln(w, "      "+VerboseStyle.Render("external: "+strings.Join(o.Stats.Externals, ", ")))
		}
	}

	switch res.State {
	case build.StateDone:
		fmt.Fprintln(w, SuccessStyle.Render(fmt.Sprintf("Done in %s", formatDuration(res.Duration))))
	default:
		fmt.Fprintln(w, ErrorStyle.Render(fmt.Sprintf("Aborted after %s", formatDuration(res.Duration))))
	}
}

// renderEvent prints pass progress in verbose mode.
func renderEvent(w io.Writer, e build.Event) {
	switch e.Kind {
	case build.EventState:
		fmt.Fprintln(w, VerboseStyle.Render("» "+e.State.String()))
	case build.EventJobStarted:
		fmt.Fprintln(w, VerboseStyle.Render("  start  "+e.Job))
	case build.EventJobFinished:
		status := "done"
		if e.Outcome != nil && e.Outcome.Err != nil {
			status = "failed"
		}
		fmt.Fprintln(w, VerboseStyle.Render(fmt.Sprintf("  %-6s %s", status, e.Job)))
	}
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
