// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hostpack/hostpack/internal/artifact"
	"github.com/hostpack/hostpack/internal/asset"
	"github.com/hostpack/hostpack/internal/engine"
	"github.com/hostpack/hostpack/internal/manifest"
	"github.com/hostpack/hostpack/internal/policy"
	"github.com/hostpack/hostpack/internal/stamp"
	"github.com/hostpack/hostpack/internal/transpile"

	"github.com/sourcegraph/conc/pool"
)

// Job kinds reported in outcomes.
const (
	KindBundle JobKind = "bundle"
	KindAsset  JobKind = "asset"
)

// Event kinds.
const (
	EventState EventKind = iota
	EventJobStarted
	EventJobFinished
)

type (
	// JobKind distinguishes bundle jobs from asset copies.
	JobKind string

	// JobOutcome is the result of one job in a pass.
	JobOutcome struct {
		Name     string
		Kind     JobKind
		Strategy policy.Strategy
		Output   string
		BuildID  string
		Err      error
		Duration time.Duration
		Report   []engine.ImportEntry
		Stats    engine.Stats
	}

	// PassResult is the aggregated outcome of one pass. Outcomes lists every
	// dispatched job in manifest order; Err is the first failure observed.
	PassResult struct {
		State    State
		BuildID  string
		Outcomes []JobOutcome
		Duration time.Duration
		Err      error
	}

	// EventKind classifies progress events.
	EventKind int

	// Event reports progress during a pass.
	Event struct {
		Kind    EventKind
		State   State
		Job     string
		Outcome *JobOutcome
	}

	// Options configures a Runner.
	Options struct {
		// Transpiler produces the intermediate tree. Required.
		Transpiler transpile.Transpiler
		// Writer publishes artifacts.
		Writer artifact.Writer
		// KeepIntermediate skips removal of the intermediate tree.
		KeepIntermediate bool
		// MaxParallel bounds concurrent jobs; zero means unbounded.
		MaxParallel int
		// OnEvent receives progress events. Calls are serialized.
		OnEvent func(Event)
		// NewBuildID generates the pass identifier; defaults to stamp.NewBuildID.
		NewBuildID func() string
	}

	// Runner executes build passes. A Runner runs one pass at a time.
	Runner struct {
		opts Options

		runMu   sync.Mutex
		stateMu sync.RWMutex
		state   State
		eventMu sync.Mutex
	}
)

// NewRunner returns a Runner for opts.
func NewRunner(opts Options) *Runner {
	if opts.NewBuildID == nil {
		opts.NewBuildID = stamp.NewBuildID
	}
	return &Runner{opts: opts}
}

// State returns the current pass state.
func (r *Runner) State() State {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.state
}

// Run executes one pass over plan: transpile once, run every job
// concurrently, wait for all of them and clean up only on full success.
//
// ctx is consulted only before transpiling starts; once a pass is under
// way it runs to completion.
func (r *Runner) Run(ctx context.Context, plan *manifest.Plan) *PassResult {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	start := time.Now()
	res := &PassResult{}
	defer func() {
		res.State = r.State()
		res.Duration = time.Since(start)
	}()

	r.reset()
	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("build %s: %w", plan.Name, err)
		r.transition(StateAborted)
		return res
	}
	passCtx := context.WithoutCancel(ctx)

	r.transition(StateTranspiling)
	err := r.opts.Transpiler.Transpile(passCtx, transpile.Request{
		SourceRoot:   plan.SourceRoot,
		SettingsPath: plan.Settings,
		OutDir:       plan.Intermediate,
	})
	if err != nil {
		res.Err = err
		r.transition(StateAborted)
		return res
	}

	res.BuildID = r.opts.NewBuildID()
	res.Outcomes, res.Err = r.dispatch(passCtx, plan, stamp.New(res.BuildID))

	if res.Err != nil {
		r.transition(StateAnyFailed)
		slog.Debug("intermediate tree kept after failure", "path", plan.Intermediate)
		r.transition(StateAborted)
		return res
	}

	r.transition(StateAllSucceeded)
	r.transition(StateCleanup)
	if !r.opts.KeepIntermediate {
		if err := os.RemoveAll(plan.Intermediate); err != nil {
			res.Err = &artifact.FilesystemError{Op: "remove", Path: plan.Intermediate, Err: err}
			r.transition(StateAborted)
			return res
		}
	}
	r.transition(StateDone)
	return res
}

// dispatch launches every job and waits for all of them. Failures do not
// cancel siblings.
func (r *Runner) dispatch(ctx context.Context, plan *manifest.Plan, s *stamp.Stamper) ([]JobOutcome, error) {
	r.transition(StateDispatching)

	eng := &engine.Engine{WorkDir: plan.Root, Writer: r.opts.Writer}
	copier := asset.Copier{Writer: r.opts.Writer}

	outcomes := make([]JobOutcome, plan.JobCount())
	var (
		firstMu  sync.Mutex
		firstErr error
	)
	finish := func(i int, o JobOutcome) error {
		outcomes[i] = o
		if o.Err != nil {
			firstMu.Lock()
			if firstErr == nil {
				firstErr = o.Err
			}
			firstMu.Unlock()
			slog.Debug("job failed", "job", o.Name, "error", o.Err)
		}
		r.emit(Event{Kind: EventJobFinished, Job: o.Name, Outcome: &o})
		return o.Err
	}

	p := pool.New().WithErrors()
	if r.opts.MaxParallel > 0 {
		p = p.WithMaxGoroutines(r.opts.MaxParallel)
	}

	for i, job := range plan.Bundles {
		p.Go(func() error {
			r.emit(Event{Kind: EventJobStarted, Job: job.Name})
			res := eng.Bundle(ctx, job, s)
			o := JobOutcome{
				Name:     job.Name,
				Kind:     KindBundle,
				Strategy: job.Strategy,
				Output:   job.Output,
				Err:      res.Err,
				Duration: res.Duration,
				Report:   res.Report,
				Stats:    res.Stats,
			}
			if res.Artifact != nil {
				o.BuildID = res.Artifact.BuildID
			}
			return finish(i, o)
		})
	}
	offset := len(plan.Bundles)
	for i, task := range plan.Assets {
		p.Go(func() error {
			r.emit(Event{Kind: EventJobStarted, Job: task.Name})
			start := time.Now()
			_, err := copier.Copy(task)
			return finish(offset+i, JobOutcome{
				Name:     task.Name,
				Kind:     KindAsset,
				Output:   task.Destination,
				Err:      err,
				Duration: time.Since(start),
			})
		})
	}

	r.transition(StateAwaitingAll)
	if joined := p.Wait(); joined != nil {
		slog.Debug("pass had failing jobs", "error", joined)
	}
	return outcomes, firstErr
}

func (r *Runner) reset() {
	r.stateMu.Lock()
	r.state = StateInit
	r.stateMu.Unlock()
	r.emit(Event{Kind: EventState, State: StateInit})
}

func (r *Runner) transition(to State) {
	r.stateMu.Lock()
	from := r.state
	if !canTransition(from, to) {
		r.stateMu.Unlock()
		panic(fmt.Sprintf("build: illegal state transition %s -> %s", from, to))
	}
	r.state = to
	r.stateMu.Unlock()

	slog.Debug("build state", "from", from, "to", to)
	r.emit(Event{Kind: EventState, State: to})
}

func (r *Runner) emit(e Event) {
	if r.opts.OnEvent == nil {
		return
	}
	r.eventMu.Lock()
	defer r.eventMu.Unlock()
	r.opts.OnEvent(e)
}
