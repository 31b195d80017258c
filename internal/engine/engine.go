// SPDX-License-Identifier: MPL-2.0

// Package engine runs bundle jobs through esbuild.
//
// Two runners share one import-classification plugin and differ in their
// policy and post-processing: InliningBundleRunner writes a self-contained
// CommonJS file; LinkingBundleRunner leaves host built-ins and sibling
// packages as require() calls and stamps the build identifier into its
// output before writing it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hostpack/hostpack/internal/artifact"
	"github.com/hostpack/hostpack/internal/policy"
	"github.com/hostpack/hostpack/internal/stamp"
)

// ErrBundle is the sentinel error wrapped by BundleError.
var ErrBundle = errors.New("bundle failed")

type (
	// Job is one bundle job with absolute paths.
	Job struct {
		Name     string
		Entry    string
		Output   string
		Strategy policy.Strategy
		Policy   policy.ExternalizationPolicy
	}

	// Message is one diagnostic reported by the bundling engine.
	Message struct {
		Text   string
		File   string
		Line   int
		Column int
	}

	// BundleError reports a failed bundle job with the engine's messages.
	// It wraps ErrBundle for errors.Is() compatibility.
	BundleError struct {
		Job      string
		Messages []Message
	}

	// Stats summarizes a produced bundle.
	Stats struct {
		// OutputBytes is the size of the written artifact.
		OutputBytes int
		// Inputs is the number of source files embedded.
		Inputs int
		// Externals lists the module references left for the host, sorted.
		Externals []string
	}

	// Result is the outcome of one bundle job: either Artifact is set and
	// Err is nil, or Err is set and Artifact is nil.
	Result struct {
		Job      string
		Artifact *artifact.Artifact
		Report   []ImportEntry
		Stats    Stats
		Duration time.Duration
		Err      error
	}

	// Runner runs bundle jobs of one strategy.
	Runner interface {
		Run(ctx context.Context, job Job) Result
	}

	// Engine dispatches jobs to the runner for their strategy.
	Engine struct {
		// WorkDir anchors the relative paths esbuild reports; usually the
		// project root.
		WorkDir string
		// Writer publishes the produced artifacts.
		Writer artifact.Writer
	}
)

// Bundle runs job with the runner its strategy selects. The linking runner
// stamps its output with s.
func (e *Engine) Bundle(ctx context.Context, job Job, s *stamp.Stamper) Result {
	var r Runner
	switch job.Strategy {
	case policy.StrategyInlining:
		r = &InliningBundleRunner{WorkDir: e.WorkDir, Writer: e.Writer}
	case policy.StrategyLinking:
		r = &LinkingBundleRunner{WorkDir: e.WorkDir, Writer: e.Writer, Stamper: s}
	default:
		return Result{Job: job.Name, Err: &policy.InvalidStrategyError{Value: job.Strategy}}
	}
	return r.Run(ctx, job)
}

// OK reports whether the job produced its artifact.
func (r Result) OK() bool { return r.Err == nil && r.Artifact != nil }

// Error implements the error interface for BundleError.
func (e *BundleError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("bundle %s failed", e.Job)
	}
	lines := make([]string, len(e.Messages))
	for i, m := range e.Messages {
		lines[i] = m.String()
	}
	return fmt.Sprintf("bundle %s failed:\n  %s", e.Job, strings.Join(lines, "\n  "))
}

// Unwrap returns ErrBundle for errors.Is() compatibility.
func (e *BundleError) Unwrap() error { return ErrBundle }

// String formats the message as file:line:column: text.
func (m Message) String() string {
	if m.File == "" {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.File, m.Line, m.Column, m.Text)
}
