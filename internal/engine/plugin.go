// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hostpack/hostpack/internal/policy"

	"github.com/evanw/esbuild/pkg/api"
)

// overrideLookup tags the nested resolve of an override target so the
// classifier does not see it a second time.
type overrideLookup struct{}

type (
	// ImportEntry is one classified specifier.
	ImportEntry struct {
		Specifier      string
		Classification policy.Classification
	}

	// ImportReport collects the classification of every specifier a job
	// resolves. esbuild calls resolve hooks concurrently.
	ImportReport struct {
		mu      sync.Mutex
		entries map[string]policy.Classification
	}
)

func (r *ImportReport) record(spec string, c policy.Classification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[string]policy.Classification)
	}
	r.entries[spec] = c
}

// Entries returns the recorded classifications sorted by specifier.
func (r *ImportReport) Entries() []ImportEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ImportEntry, 0, len(r.entries))
	for spec, c := range r.entries {
		out = append(out, ImportEntry{Specifier: spec, Classification: c})
	}
	slices.SortFunc(out, func(a, b ImportEntry) int { return strings.Compare(a.Specifier, b.Specifier) })
	return out
}

// classifyPlugin routes every import specifier through policy.Classify and
// maps the class onto esbuild's resolution:
//
//	PassThrough    unhandled, esbuild resolves and embeds the file
//	RewriteAlias   external, under the alias target
//	LeaveExternal  external, unchanged
//	Embed          unhandled, or redirected to an override target
//
// A host built-in that reaches Embed is an error: it cannot be embedded and
// the policy does not allow leaving it external.
func classifyPlugin(p policy.ExternalizationPolicy, report *ImportReport) api.Plugin {
	return api.Plugin{
		Name: "hostpack-classify",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind == api.ResolveEntryPoint {
					return api.OnResolveResult{}, nil
				}
				if _, nested := args.PluginData.(overrideLookup); nested {
					return api.OnResolveResult{}, nil
				}

				c := policy.Classify(args.Path, p)
				report.record(args.Path, c)

				switch c.Class {
				case policy.PassThrough:
					return api.OnResolveResult{}, nil
				case policy.RewriteAlias:
					return api.OnResolveResult{Path: c.Path, External: true}, nil
				case policy.LeaveExternal:
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				}

				if target, ok := p.Override(args.Path); ok {
					res := build.Resolve(target, api.ResolveOptions{
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						Importer:   args.Importer,
						PluginData: overrideLookup{},
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{}, fmt.Errorf("override for %q: %s", args.Path, res.Errors[0].Text)
					}
					return api.OnResolveResult{Path: res.Path}, nil
				}
				if policy.IsHostBuiltin(args.Path) {
					return api.OnResolveResult{}, fmt.Errorf("host built-in %q cannot be embedded and is not allowlisted by policy %q", args.Path, p.Name())
				}
				return api.OnResolveResult{}, nil
			})
		},
	}
}
