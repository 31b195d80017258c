// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hostpack/hostpack/internal/artifact"
	"github.com/hostpack/hostpack/internal/asset"
	"github.com/hostpack/hostpack/internal/engine"
	"github.com/hostpack/hostpack/internal/manifest"
	"github.com/hostpack/hostpack/internal/stamp"
	"github.com/hostpack/hostpack/internal/testutil"
	"github.com/hostpack/hostpack/internal/transpile"
)

const testManifest = `
name: "demo"
source_root: "src"
settings: "src/tsconfig.json"
intermediate: "dist/transpiled"
policies: {
	inlining: {allowlist: ["fs", "path"]}
	linking: {allowlist: ["fs", "os"], aliases: {"@utils": "../../utils"}}
}
bundles: [
	{name: "helper.js", entry: "src/bundles/helper.js", output: "dist/node/helper.js", strategy: "inlining", policy: "inlining"},
	{name: "index.js", entry: "dist/transpiled/index.js", output: "dist/node/index.js", strategy: "linking", policy: "linking"},
]
assets: [
	{name: "xdg-open", pattern: "xdg-open", from: "node_modules/opn", to: "dist/node/xdg-open"},
]
`

// project writes a buildable project and returns its root and plan.
func project(t *testing.T, extra map[string]string) (string, *manifest.Plan) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/tsconfig.json":      `{}`,
		"src/index.js":           "const fs = require(\"fs\");\nconst u = require(\"@utils\");\nexports.id = \"__BUILDID__\";\nexports.u = u;\n",
		"src/bundles/helper.js":  "const path = require(\"path\");\nmodule.exports = path.join(\"a\", \"b\");\n",
		"node_modules/opn/xdg-open": "#!/bin/sh\n",
	}
	for k, v := range extra {
		if v == "" {
			delete(files, k)
			continue
		}
		files[k] = v
	}
	testutil.WriteTree(t, root, files)

	m, err := manifest.Parse([]byte(testManifest), "test.cue")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	plan, err := m.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return root, plan
}

func recordStates(states *[]State) func(Event) {
	return func(e Event) {
		if e.Kind == EventState {
			*states = append(*states, e.State)
		}
	}
}

func TestRunner_AllSucceed(t *testing.T) {
	t.Parallel()

	root, plan := project(t, nil)
	var states []State
	var finished atomic.Int32
	r := NewRunner(Options{
		Transpiler: &transpile.EsbuildTranspiler{},
		Writer:     artifact.Writer{Atomic: true},
		NewBuildID: func() string { return "feedfacefeedfacefeedfacefeedface" },
		OnEvent: func(e Event) {
			recordStates(&states)(e)
			if e.Kind == EventJobFinished {
				finished.Add(1)
			}
		},
	})

	res := r.Run(context.Background(), plan)
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	if res.State != StateDone || r.State() != StateDone {
		t.Errorf("state = %s / %s, want done", res.State, r.State())
	}
	if res.BuildID != "feedfacefeedfacefeedfacefeedface" {
		t.Errorf("BuildID = %q", res.BuildID)
	}

	want := []State{StateInit, StateTranspiling, StateDispatching, StateAwaitingAll, StateAllSucceeded, StateCleanup, StateDone}
	if !slices.Equal(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
	if finished.Load() != 3 {
		t.Errorf("finished events = %d, want 3", finished.Load())
	}

	if len(res.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(res.Outcomes))
	}
	names := []string{res.Outcomes[0].Name, res.Outcomes[1].Name, res.Outcomes[2].Name}
	if !slices.Equal(names, []string{"helper.js", "index.js", "xdg-open"}) {
		t.Errorf("outcome order = %v", names)
	}
	if res.Outcomes[2].Kind != KindAsset || res.Outcomes[0].Kind != KindBundle {
		t.Errorf("kinds = %s, %s", res.Outcomes[0].Kind, res.Outcomes[2].Kind)
	}
	if res.Outcomes[1].BuildID != res.BuildID {
		t.Errorf("linking outcome BuildID = %q", res.Outcomes[1].BuildID)
	}

	index := testutil.ReadFile(t, filepath.Join(root, "dist", "node", "index.js"))
	if !strings.Contains(index, res.BuildID) || strings.Contains(index, stamp.Marker) {
		t.Errorf("index.js not stamped:\n%s", index)
	}
	if !strings.Contains(index, `require("../../utils")`) {
		t.Errorf("index.js alias not rewritten:\n%s", index)
	}
	if got := testutil.ListFiles(t, filepath.Join(root, "dist", "node")); !slices.Equal(got, []string{"helper.js", "index.js", "xdg-open"}) {
		t.Errorf("output tree = %v", got)
	}
	if _, err := os.Stat(plan.Intermediate); !os.IsNotExist(err) {
		t.Errorf("intermediate tree not removed (stat err = %v)", err)
	}
}

func TestRunner_KeepIntermediate(t *testing.T) {
	t.Parallel()

	_, plan := project(t, nil)
	res := NewRunner(Options{Transpiler: &transpile.EsbuildTranspiler{}, KeepIntermediate: true}).Run(context.Background(), plan)
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	if _, err := os.Stat(filepath.Join(plan.Intermediate, "index.js")); err != nil {
		t.Errorf("intermediate tree removed: %v", err)
	}
}

// The xdg-open payload is missing: the asset job fails, the pass aborts,
// siblings still complete and nothing is cleaned up.
func TestRunner_MissingAssetAbortsPass(t *testing.T) {
	t.Parallel()

	root, plan := project(t, map[string]string{
		"node_modules/opn/xdg-open": "",
		"node_modules/opn/index.js": "module.exports = {};\n",
	})
	var states []State
	res := NewRunner(Options{Transpiler: &transpile.EsbuildTranspiler{}, OnEvent: recordStates(&states)}).Run(context.Background(), plan)

	if !errors.Is(res.Err, asset.ErrResolution) {
		t.Fatalf("Run() error = %v, want ErrResolution", res.Err)
	}
	if res.State != StateAborted {
		t.Errorf("State = %s, want aborted", res.State)
	}
	if got := states[len(states)-2:]; !slices.Equal(got, []State{StateAnyFailed, StateAborted}) {
		t.Errorf("final states = %v", got)
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(res.Outcomes))
	}
	for _, o := range res.Outcomes[:2] {
		if o.Err != nil {
			t.Errorf("sibling %s failed: %v", o.Name, o.Err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "node", "xdg-open")); !os.IsNotExist(err) {
		t.Errorf("xdg-open destination exists (stat err = %v)", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "node", "index.js")); err != nil {
		t.Errorf("sibling artifact missing: %v", err)
	}
	if _, err := os.Stat(plan.Intermediate); err != nil {
		t.Errorf("intermediate tree removed after failure: %v", err)
	}
}

func TestRunner_EveryFailureIsReported(t *testing.T) {
	t.Parallel()

	_, plan := project(t, map[string]string{
		"src/bundles/helper.js":     "require(\"left-pad\");\n",
		"node_modules/opn/xdg-open": "",
	})
	res := NewRunner(Options{Transpiler: &transpile.EsbuildTranspiler{}, MaxParallel: 1}).Run(context.Background(), plan)

	if res.State != StateAborted {
		t.Errorf("State = %s, want aborted", res.State)
	}
	if !errors.Is(res.Err, engine.ErrBundle) && !errors.Is(res.Err, asset.ErrResolution) {
		t.Errorf("Run() error = %v, want a job failure", res.Err)
	}
	if !errors.Is(res.Outcomes[0].Err, engine.ErrBundle) {
		t.Errorf("helper.js error = %v", res.Outcomes[0].Err)
	}
	if res.Outcomes[1].Err != nil {
		t.Errorf("index.js error = %v", res.Outcomes[1].Err)
	}
	if !errors.Is(res.Outcomes[2].Err, asset.ErrResolution) {
		t.Errorf("xdg-open error = %v", res.Outcomes[2].Err)
	}
}

func TestRunner_CompileErrorSkipsDispatch(t *testing.T) {
	t.Parallel()

	root, plan := project(t, nil)
	var states []State
	var started atomic.Int32
	failing := transpile.Func(func(context.Context, transpile.Request) error {
		return &transpile.CompileError{Tool: "fake", Diagnostics: []string{"index.ts(1,1): boom"}}
	})

	res := NewRunner(Options{
		Transpiler: failing,
		OnEvent: func(e Event) {
			recordStates(&states)(e)
			if e.Kind == EventJobStarted {
				started.Add(1)
			}
		},
	}).Run(context.Background(), plan)

	if !errors.Is(res.Err, transpile.ErrCompile) {
		t.Fatalf("Run() error = %v, want ErrCompile", res.Err)
	}
	if want := []State{StateInit, StateTranspiling, StateAborted}; !slices.Equal(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
	if started.Load() != 0 || len(res.Outcomes) != 0 || res.BuildID != "" {
		t.Errorf("jobs dispatched after compile error: %+v", res)
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "node")); !os.IsNotExist(err) {
		t.Errorf("output tree created (stat err = %v)", err)
	}
}

func TestRunner_CanceledBeforeStart(t *testing.T) {
	t.Parallel()

	_, plan := project(t, nil)
	called := false
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewRunner(Options{Transpiler: transpile.Func(func(context.Context, transpile.Request) error {
		called = true
		return nil
	})}).Run(ctx, plan)

	if !errors.Is(res.Err, context.Canceled) || res.State != StateAborted {
		t.Errorf("Run() = %v / %s, want canceled / aborted", res.Err, res.State)
	}
	if called {
		t.Error("transpiler ran after cancellation")
	}
}

func TestRunner_FreshBuildIDPerPass(t *testing.T) {
	t.Parallel()

	_, plan := project(t, nil)
	r := NewRunner(Options{Transpiler: &transpile.EsbuildTranspiler{}})
	first := r.Run(context.Background(), plan)
	second := r.Run(context.Background(), plan)
	if first.Err != nil || second.Err != nil {
		t.Fatalf("Run() errors = %v, %v", first.Err, second.Err)
	}
	if first.BuildID == second.BuildID {
		t.Errorf("both passes used build id %q", first.BuildID)
	}
}

func TestState(t *testing.T) {
	t.Parallel()

	if StateAwaitingAll.String() != "awaiting-all" || State(42).String() != "state(42)" {
		t.Error("unexpected State.String()")
	}
	if !StateDone.Terminal() || !StateAborted.Terminal() || StateCleanup.Terminal() {
		t.Error("unexpected State.Terminal()")
	}
	if canTransition(StateAnyFailed, StateCleanup) {
		t.Error("failed pass must never reach cleanup")
	}
	if canTransition(StateDispatching, StateAborted) {
		t.Error("dispatched pass must wait for all jobs")
	}
}
