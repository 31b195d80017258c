// SPDX-License-Identifier: MPL-2.0

// Package manifest declares the fixed job list of one host runtime package.
//
// A manifest is CUE data validated against an embedded schema. The default
// manifest, embedded in the binary, describes the Node.js host package; a
// project may supply its own file with the same shape. Manifest paths are
// relative to the project root and are anchored by Resolve.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hostpack/hostpack/internal/asset"
	"github.com/hostpack/hostpack/internal/engine"
	"github.com/hostpack/hostpack/internal/policy"
	"github.com/hostpack/hostpack/pkg/cueutil"
)

// DefaultFileName is the manifest looked up in the project root when no
// explicit file is given.
const DefaultFileName = "hostpack.manifest.cue"

var (
	//go:embed schema.cue
	schema []byte

	//go:embed default.cue
	defaultManifest []byte

	// ErrInvalidManifest is the sentinel error wrapped by InvalidManifestError.
	ErrInvalidManifest = errors.New("invalid manifest")
)

type (
	// Manifest is the declarative job list.
	Manifest struct {
		Name         string                 `json:"name" toml:"name"`
		SourceRoot   string                 `json:"source_root" toml:"source_root"`
		Settings     string                 `json:"settings" toml:"settings"`
		Intermediate string                 `json:"intermediate" toml:"intermediate"`
		Policies     map[string]policy.Spec `json:"policies" toml:"policies"`
		Bundles      []BundleSpec           `json:"bundles" toml:"bundles"`
		Assets       []AssetSpec            `json:"assets" toml:"assets"`
	}

	// BundleSpec declares one bundle job.
	BundleSpec struct {
		Name     string          `json:"name" toml:"name"`
		Entry    string          `json:"entry" toml:"entry"`
		Output   string          `json:"output" toml:"output"`
		Strategy policy.Strategy `json:"strategy" toml:"strategy"`
		Policy   string          `json:"policy" toml:"policy"`
	}

	// AssetSpec declares one asset copy.
	AssetSpec struct {
		Name    string `json:"name" toml:"name"`
		Pattern string `json:"pattern" toml:"pattern"`
		From    string `json:"from" toml:"from"`
		To      string `json:"to" toml:"to"`
	}

	// Plan is a Manifest anchored to a project root: every path is absolute
	// and every policy is constructed.
	Plan struct {
		Name         string
		Root         string
		SourceRoot   string
		Settings     string
		Intermediate string
		Bundles      []engine.Job
		Assets       []asset.Task
	}

	// InvalidManifestError reports every problem found in a manifest.
	// It wraps ErrInvalidManifest for errors.Is() compatibility.
	InvalidManifestError struct {
		Source      string
		FieldErrors []error
	}
)

// Default returns the embedded manifest.
func Default() (*Manifest, error) {
	return Parse(defaultManifest, "default.cue")
}

// DefaultSource returns the CUE text of the embedded manifest.
func DefaultSource() []byte {
	return slices.Clone(defaultManifest)
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes and validates manifest data. filename is used in errors.
func Parse(data []byte, filename string) (*Manifest, error) {
	res, err := cueutil.Decode[Manifest](schema, data, "#Manifest", cueutil.WithFilename(filename))
	if err != nil {
		return nil, &InvalidManifestError{Source: filename, FieldErrors: []error{err}}
	}
	m := res.Value
	if err := m.validate(filename); err != nil {
		return nil, err
	}
	return m, nil
}

// Bundle returns the bundle spec named name.
func (m *Manifest) Bundle(name string) (BundleSpec, bool) {
	for _, b := range m.Bundles {
		if b.Name == name {
			return b, true
		}
	}
	return BundleSpec{}, false
}

// Linking returns the single linking bundle.
func (m *Manifest) Linking() BundleSpec {
	for _, b := range m.Bundles {
		if b.Strategy == policy.StrategyLinking {
			return b
		}
	}
	return BundleSpec{}
}

// Policy constructs the named policy. Override targets are anchored to root.
func (m *Manifest) Policy(name, root string) (policy.ExternalizationPolicy, error) {
	spec, ok := m.Policies[name]
	if !ok {
		return policy.ExternalizationPolicy{}, fmt.Errorf("unknown policy %q", name)
	}
	p, err := policy.NewPolicy(name, spec)
	if err != nil {
		return policy.ExternalizationPolicy{}, err
	}
	return p.WithOverrides(func(target string) string { return anchor(root, target) }), nil
}

// Resolve anchors every path to root and builds the job list.
func (m *Manifest) Resolve(root string) (*Plan, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	if errs := m.intermediateConflicts(root); len(errs) > 0 {
		return nil, &InvalidManifestError{Source: m.Name, FieldErrors: errs}
	}

	policies := make(map[string]policy.ExternalizationPolicy, len(m.Policies))
	for name := range m.Policies {
		p, err := m.Policy(name, root)
		if err != nil {
			return nil, err
		}
		policies[name] = p
	}

	plan := &Plan{
		Name:         m.Name,
		Root:         root,
		SourceRoot:   anchor(root, m.SourceRoot),
		Settings:     anchor(root, m.Settings),
		Intermediate: anchor(root, m.Intermediate),
	}
	for _, b := range m.Bundles {
		plan.Bundles = append(plan.Bundles, engine.Job{
			Name:     b.Name,
			Entry:    anchor(root, b.Entry),
			Output:   anchor(root, b.Output),
			Strategy: b.Strategy,
			Policy:   policies[b.Policy],
		})
	}
	for _, a := range m.Assets {
		plan.Assets = append(plan.Assets, asset.Task{
			Name:        a.Name,
			Pattern:     a.Pattern,
			SourceRoot:  anchor(root, a.From),
			Destination: anchor(root, a.To),
		})
	}
	return plan, nil
}

// JobCount returns the number of concurrent jobs in the plan.
func (p *Plan) JobCount() int {
	return len(p.Bundles) + len(p.Assets)
}

// validate checks the constraints the schema cannot express.
func (m *Manifest) validate(source string) error {
	var errs []error

	names := make(map[string]string)
	outputs := make(map[string]string)
	claim := func(kind, name, output string) {
		if prev, ok := names[name]; ok {
			errs = append(errs, fmt.Errorf("%s %q: name already used by %s", kind, name, prev))
		} else {
			names[name] = kind
		}
		key := filepath.Clean(filepath.FromSlash(output))
		if prev, ok := outputs[key]; ok {
			errs = append(errs, fmt.Errorf("%s %q: output %s already written by %q", kind, name, output, prev))
		} else {
			outputs[key] = name
		}
	}

	linking := 0
	for i, b := range m.Bundles {
		claim("bundle", b.Name, b.Output)
		if ok, fieldErrs := b.Strategy.IsValid(); !ok {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Errorf("bundles[%d]: %w", i, fe))
			}
		}
		if b.Strategy == policy.StrategyLinking {
			linking++
		}
		spec, ok := m.Policies[b.Policy]
		if !ok {
			errs = append(errs, fmt.Errorf("bundle %q: unknown policy %q", b.Name, b.Policy))
			continue
		}
		if _, err := policy.NewPolicy(b.Policy, spec); err != nil {
			errs = append(errs, fmt.Errorf("bundle %q: %w", b.Name, err))
		}
	}
	if linking != 1 {
		errs = append(errs, fmt.Errorf("manifest must declare exactly one linking bundle, found %d", linking))
	}

	for _, a := range m.Assets {
		claim("asset", a.Name, a.To)
		if err := asset.ValidatePattern(a.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("asset %q: %w", a.Name, err))
		}
	}

	errs = append(errs, m.intermediateConflicts(parseRoot)...)

	if len(errs) > 0 {
		return &InvalidManifestError{Source: source, FieldErrors: errs}
	}
	return nil
}

// parseRoot stands in for the project root while parsing. Relative paths keep
// their layout under any root; Resolve repeats the check against the real one.
var parseRoot = string(filepath.Separator) + "project"

// intermediateConflicts reports every declared path that removing the
// intermediate tree after a successful pass would delete.
func (m *Manifest) intermediateConflicts(root string) []error {
	dir := anchor(root, m.Intermediate)
	if contains(dir, root) {
		return []error{fmt.Errorf("intermediate %s contains the project root", m.Intermediate)}
	}

	var errs []error
	check := func(what, p string) {
		if contains(dir, anchor(root, p)) {
			errs = append(errs, fmt.Errorf("intermediate %s contains %s %s", m.Intermediate, what, p))
		}
	}
	check("source_root", m.SourceRoot)
	check("settings", m.Settings)
	for _, b := range m.Bundles {
		check(fmt.Sprintf("bundle %q output", b.Name), b.Output)
		// Linking entries are transpiled into the intermediate tree.
		if b.Strategy == policy.StrategyInlining {
			check(fmt.Sprintf("bundle %q entry", b.Name), b.Entry)
		}
	}
	for _, a := range m.Assets {
		check(fmt.Sprintf("asset %q source", a.Name), a.From)
		check(fmt.Sprintf("asset %q destination", a.Name), a.To)
	}
	return errs
}

// contains reports whether p is dir or lies below it.
func contains(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// anchor resolves a manifest path against root.
func anchor(root, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// Error implements the error interface for InvalidManifestError.
func (e *InvalidManifestError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		msgs[i] = fe.Error()
	}
	if len(msgs) == 1 {
		return fmt.Sprintf("invalid manifest %s: %s", e.Source, msgs[0])
	}
	return fmt.Sprintf("invalid manifest %s:\n  %s", e.Source, strings.Join(msgs, "\n  "))
}

// Unwrap returns ErrInvalidManifest and the individual field errors.
func (e *InvalidManifestError) Unwrap() []error {
	return append([]error{ErrInvalidManifest}, e.FieldErrors...)
}
