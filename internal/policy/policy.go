// SPDX-License-Identifier: MPL-2.0

package policy

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	// PassThrough marks a concrete module location that is never externalized or aliased.
	PassThrough Class = iota
	// RewriteAlias marks a virtual alias that stays external under a rewritten path.
	RewriteAlias
	// LeaveExternal marks a name the host supplies at load time.
	LeaveExternal
	// Embed marks a dependency that is bundled into the artifact.
	Embed
)

const (
	// StrategyInlining embeds every package; only host built-ins stay external.
	StrategyInlining Strategy = "inlining"
	// StrategyLinking leaves host built-ins and sibling packages unresolved.
	StrategyLinking Strategy = "linking"
)

var (
	// ErrInvalidStrategy is returned when a Strategy value is not recognized.
	ErrInvalidStrategy = errors.New("invalid bundling strategy")
	// ErrInvalidPolicy is the sentinel error wrapped by InvalidPolicyError.
	ErrInvalidPolicy = errors.New("invalid externalization policy")
)

type (
	// Class is the handling class assigned to an import specifier.
	Class int

	// Strategy selects the bundling engine configuration for a job.
	Strategy string

	// InvalidStrategyError is returned when a Strategy value is not recognized.
	// It wraps ErrInvalidStrategy for errors.Is() compatibility.
	InvalidStrategyError struct {
		Value Strategy
	}

	// InvalidPolicyError is returned when a policy declaration is inconsistent.
	// It wraps ErrInvalidPolicy for errors.Is() compatibility.
	InvalidPolicyError struct {
		Policy      string
		FieldErrors []error
	}

	// Classification is the result of classifying one specifier.
	// Path is only set for RewriteAlias.
	Classification struct {
		Class Class
		Path  string
	}

	// AliasTable maps a virtual alias name to a concrete relative path.
	AliasTable map[string]string

	// ExternalizationPolicy is the immutable rule set a job classifies its
	// imports with. Construct it with NewPolicy; the zero value embeds
	// everything that is not a path.
	ExternalizationPolicy struct {
		name      string
		aliases   AliasTable
		allowlist map[string]struct{}
		overrides map[string]string
	}

	// Spec is the declarative form of an ExternalizationPolicy.
	Spec struct {
		// Allowlist names the specifiers the host provides at load time.
		// Matching is exact; there are no wildcards.
		Allowlist []string `json:"allowlist" toml:"allowlist"`
		// Aliases redirect classification to a rewritten external path.
		Aliases map[string]string `json:"aliases" toml:"aliases"`
		// Overrides replace the file embedded for an Embed-class specifier.
		Overrides map[string]string `json:"overrides" toml:"overrides"`
	}
)

// NewPolicy builds an ExternalizationPolicy from a declarative Spec. The
// inputs are copied, so later changes to spec do not affect the policy.
func NewPolicy(name string, spec Spec) (ExternalizationPolicy, error) {
	var errs []error
	for alias, target := range spec.Aliases {
		if strings.TrimSpace(alias) == "" {
			errs = append(errs, fmt.Errorf("alias name must be non-empty"))
		}
		if strings.TrimSpace(target) == "" {
			errs = append(errs, fmt.Errorf("alias %q: target path must be non-empty", alias))
		}
	}
	allow := make(map[string]struct{}, len(spec.Allowlist))
	for _, s := range spec.Allowlist {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("allowlist entries must be non-empty"))
			continue
		}
		if strings.ContainsAny(s, "*?[") {
			errs = append(errs, fmt.Errorf("allowlist entry %q: wildcards are not supported", s))
			continue
		}
		allow[s] = struct{}{}
	}
	for s, target := range spec.Overrides {
		if strings.TrimSpace(target) == "" {
			errs = append(errs, fmt.Errorf("override %q: target path must be non-empty", s))
		}
	}
	if len(errs) > 0 {
		return ExternalizationPolicy{}, &InvalidPolicyError{Policy: name, FieldErrors: errs}
	}

	return ExternalizationPolicy{
		name:      name,
		aliases:   maps.Clone(spec.Aliases),
		allowlist: allow,
		overrides: maps.Clone(spec.Overrides),
	}, nil
}

// Name returns the policy name from the manifest.
func (p ExternalizationPolicy) Name() string { return p.name }

// Alias returns the rewritten path for a virtual alias.
func (p ExternalizationPolicy) Alias(specifier string) (string, bool) {
	target, ok := p.aliases[specifier]
	return target, ok
}

// Allows reports whether specifier is in the host-builtin allowlist.
func (p ExternalizationPolicy) Allows(specifier string) bool {
	_, ok := p.allowlist[specifier]
	return ok
}

// Override returns the replacement file for an Embed-class specifier.
func (p ExternalizationPolicy) Override(specifier string) (string, bool) {
	target, ok := p.overrides[specifier]
	return target, ok
}

// Allowlist returns the sorted allowlist.
func (p ExternalizationPolicy) Allowlist() []string {
	return slices.Sorted(maps.Keys(p.allowlist))
}

// Aliases returns a copy of the alias table.
func (p ExternalizationPolicy) Aliases() AliasTable {
	return maps.Clone(p.aliases)
}

// WithOverrides returns a copy of the policy whose override targets are
// passed through resolve. Manifest loading uses it to anchor relative
// override paths to the project root.
func (p ExternalizationPolicy) WithOverrides(resolve func(string) string) ExternalizationPolicy {
	out := p
	out.overrides = make(map[string]string, len(p.overrides))
	for s, target := range p.overrides {
		out.overrides[s] = resolve(target)
	}
	return out
}

// Classify returns the handling class for specifier under p.
func Classify(specifier string, p ExternalizationPolicy) Classification {
	if isPath(specifier) {
		return Classification{Class: PassThrough}
	}
	if target, ok := p.Alias(specifier); ok {
		return Classification{Class: RewriteAlias, Path: target}
	}
	if p.Allows(specifier) {
		return Classification{Class: LeaveExternal}
	}
	return Classification{Class: Embed}
}

// isPath reports whether specifier is a relative or absolute module path.
func isPath(specifier string) bool {
	return strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../") ||
		strings.HasPrefix(specifier, "/")
}

// String returns the lowercase class name used in reports.
func (c Class) String() string {
	switch c {
	case PassThrough:
		return "pass-through"
	case RewriteAlias:
		return "rewrite-alias"
	case LeaveExternal:
		return "leave-external"
	case Embed:
		return "embed"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// External reports whether the class leaves the import unresolved in the output.
func (c Class) External() bool {
	return c == RewriteAlias || c == LeaveExternal
}

// String renders the classification for display, including the alias target.
func (c Classification) String() string {
	if c.Class == RewriteAlias {
		return fmt.Sprintf("%s(%s)", c.Class, c.Path)
	}
	return c.Class.String()
}

// String returns the string representation of the Strategy.
func (s Strategy) String() string { return string(s) }

// IsValid returns whether the Strategy is one of the defined strategies.
func (s Strategy) IsValid() (bool, []error) {
	switch s {
	case StrategyInlining, StrategyLinking:
		return true, nil
	default:
		return false, []error{&InvalidStrategyError{Value: s}}
	}
}

// Error implements the error interface for InvalidStrategyError.
func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid bundling strategy %q (valid: inlining, linking)", e.Value)
}

// Unwrap returns ErrInvalidStrategy for errors.Is() compatibility.
func (e *InvalidStrategyError) Unwrap() error { return ErrInvalidStrategy }

// Error implements the error interface for InvalidPolicyError.
func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid policy %q: %v", e.Policy, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidPolicy for errors.Is() compatibility.
func (e *InvalidPolicyError) Unwrap() error { return ErrInvalidPolicy }
