// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/hostpack/hostpack/internal/artifact"
	"github.com/hostpack/hostpack/internal/stamp"

	"github.com/evanw/esbuild/pkg/api"
)

type (
	// InliningBundleRunner produces a single self-contained CommonJS file.
	InliningBundleRunner struct {
		WorkDir string
		Writer  artifact.Writer
	}

	// LinkingBundleRunner produces the main artifact. Its output is stamped
	// with the pass build identifier before it is written.
	LinkingBundleRunner struct {
		WorkDir string
		Writer  artifact.Writer
		Stamper *stamp.Stamper
	}

	// bundled is the in-memory product of one esbuild run.
	bundled struct {
		content []byte
		stats   Stats
	}
)

// Run bundles job and writes the result.
func (r *InliningBundleRunner) Run(ctx context.Context, job Job) Result {
	return run(ctx, job, r.WorkDir, r.Writer, nil)
}

// Run bundles job, stamps the output and writes the result.
func (r *LinkingBundleRunner) Run(ctx context.Context, job Job) Result {
	s := r.Stamper
	if s == nil {
		s = stamp.New(stamp.NewBuildID())
	}
	return run(ctx, job, r.WorkDir, r.Writer, s)
}

func run(ctx context.Context, job Job, workDir string, w artifact.Writer, s *stamp.Stamper) (res Result) {
	start := time.Now()
	res.Job = job.Name
	defer func() { res.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("bundle %s: %w", job.Name, err)
		return res
	}

	report := &ImportReport{}
	out, err := bundle(job, workDir, report)
	res.Report = report.Entries()
	if err != nil {
		res.Err = err
		return res
	}

	a := &artifact.Artifact{Path: job.Output, Content: out.content}
	if s != nil {
		slog.Debug("stamping build id", "job", job.Name, "markers", stamp.Count(string(a.Content)), "build_id", s.ID())
		a.Content = s.StampBytes(a.Content)
		a.BuildID = s.ID()
	}
	if err := w.Write(a); err != nil {
		res.Err = err
		return res
	}

	out.stats.OutputBytes = len(a.Content)
	res.Artifact = a
	res.Stats = out.stats
	return res
}

// bundle runs esbuild for job without touching the output path.
func bundle(job Job, workDir string, report *ImportReport) (*bundled, error) {
	if workDir == "" {
		workDir = filepath.Dir(job.Entry)
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{job.Entry},
		Outfile:       job.Output,
		AbsWorkingDir: workDir,
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		Format:        api.FormatCommonJS,
		Platform:      api.PlatformNode,
		Target:        api.ES2017,
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{classifyPlugin(job.Policy, report)},
	})

	logWarnings(job.Name, result.Warnings)
	if len(result.Errors) > 0 {
		return nil, &BundleError{Job: job.Name, Messages: convertMessages(result.Errors)}
	}

	var content []byte
	found := false
	for _, f := range result.OutputFiles {
		if filepath.Clean(f.Path) == filepath.Clean(job.Output) {
			content, found = f.Contents, true
			break
		}
	}
	if !found {
		return nil, &BundleError{Job: job.Name, Messages: []Message{{Text: "esbuild produced no output for " + job.Output}}}
	}

	meta, err := parseMetafile(result.Metafile)
	if err != nil {
		return nil, &BundleError{Job: job.Name, Messages: []Message{{Text: err.Error()}}}
	}
	return &bundled{content: content, stats: meta.stats()}, nil
}

func logWarnings(job string, warnings []api.Message) {
	for _, w := range warnings {
		// Cycles are common in CommonJS dependency graphs and harmless here.
		if strings.Contains(strings.ToLower(w.Text), "circular") {
			continue
		}
		m := convertMessage(w)
		slog.Warn("bundle warning", "job", job, "message", m.String())
	}
}

func convertMessages(msgs []api.Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = convertMessage(m)
	}
	return out
}

func convertMessage(m api.Message) Message {
	msg := Message{Text: m.Text}
	if m.Location != nil {
		msg.File = m.Location.File
		msg.Line = m.Location.Line
		msg.Column = m.Location.Column
	}
	return msg
}
