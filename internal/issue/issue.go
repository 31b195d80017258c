// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Catalog entries. Zero means "no issue linked".
const (
	ManifestNotFoundId Id = iota + 1
	ManifestInvalidId
	ConfigLoadFailedId
	TranspileFailedId
	ImportNotAllowlistedId
	BuiltinNotAllowlistedId
	AssetNotFoundId
	AssetAmbiguousId
	OutputNotWritableId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is the guide text of an entry.
	MarkdownMsg string

	// Issue is a catalog entry: a slug usable on the command line and a
	// Markdown guide rendered for the terminal.
	Issue struct {
		id    Id
		slug  string
		title string
		mdMsg MarkdownMsg
	}
)

// Id returns the entry id.
func (i *Issue) Id() Id { return i.id }

// Slug returns the name used by 'hostpack explain'.
func (i *Issue) Slug() string { return i.slug }

// Title returns a one-line summary.
func (i *Issue) Title() string { return i.title }

// MarkdownMsg returns the raw guide.
func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// Render renders the guide for a terminal. style is a glamour style name
// ("dark", "light", "notty", ...) or a path to a JSON style file.
func (i *Issue) Render(style string) (string, error) {
	return render(string(i.mdMsg), style)
}

var render = glamour.Render

var issues = map[Id]*Issue{
	ManifestNotFoundId: {
		id:    ManifestNotFoundId,
		slug:  "manifest-not-found",
		title: "The build manifest file does not exist",
		mdMsg: `
# Manifest not found

hostpack was pointed at a manifest file that does not exist.

## Things you can try
- Omit ` + "`--manifest`" + ` to use the built-in manifest for the Node host package.
- Print the built-in manifest and save it as a starting point:
~~~
$ hostpack manifest show > hostpack.manifest.cue
~~~
- A ` + "`hostpack.manifest.cue`" + ` in the project root is picked up automatically.`,
	},
	ManifestInvalidId: {
		id:    ManifestInvalidId,
		slug:  "manifest-invalid",
		title: "The build manifest failed validation",
		mdMsg: `
# Invalid manifest

The manifest did not match the schema, or its bundles and assets conflict.

## Rules checked after the schema
- Bundle and asset names are unique.
- No two jobs write the same output path.
- Exactly one bundle uses the ` + "`linking`" + ` strategy.
- Every bundle names a policy defined under ` + "`policies`" + `.
- Allowlist entries are exact module names, never patterns.

## Things you can try
~~~
$ hostpack manifest validate --manifest hostpack.manifest.cue
~~~`,
	},
	ConfigLoadFailedId: {
		id:    ConfigLoadFailedId,
		slug:  "config-invalid",
		title: "The configuration file or environment is invalid",
		mdMsg: `
# Configuration could not be loaded

## Things you can try
- Show where configuration is read from:
~~~
$ hostpack config path
~~~
- Write a commented default file:
~~~
$ hostpack config init
~~~
- Check ` + "`HOSTPACK_*`" + ` environment variables; they override the file.`,
	},
	TranspileFailedId: {
		id:    TranspileFailedId,
		slug:  "transpile-failed",
		title: "The TypeScript compile step failed",
		mdMsg: `
# Transpile failed

The compile step runs once, before any bundle job. When it fails no bundle
or asset job starts and the pass is aborted.

## Things you can try
- Fix the diagnostics printed above and run the build again.
- With ` + "`build.transpiler: \"shell\"`" + `, run ` + "`build.transpile_command`" + ` by hand;
  it receives ` + "`HOSTPACK_SOURCE_ROOT`" + `, ` + "`HOSTPACK_SETTINGS`" + ` and ` + "`HOSTPACK_OUT_DIR`" + `.`,
	},
	ImportNotAllowlistedId: {
		id:    ImportNotAllowlistedId,
		slug:  "import-not-allowlisted",
		title: "A bare import is neither bundled nor allowlisted",
		mdMsg: `
# Import could not be resolved

A bundle imports a package that is not in the artifact's allowlist, and the
bundler could not find it under ` + "`node_modules`" + ` either.

## Things you can try
- Install the package so it can be embedded.
- Add it to the policy's ` + "`allowlist`" + ` so it stays a runtime ` + "`require`" + `.
- Check how a specifier is treated:
~~~
$ hostpack classify --artifact index.js some-package
~~~`,
	},
	BuiltinNotAllowlistedId: {
		id:    BuiltinNotAllowlistedId,
		slug:  "builtin-not-allowlisted",
		title: "A Node builtin is imported but not allowlisted",
		mdMsg: `
# Node builtin not allowlisted

Builtins such as ` + "`fs`" + ` or ` + "`node:os`" + ` cannot be bundled. They must appear
in the policy's ` + "`allowlist`" + `, spelled exactly as imported (with or without the
` + "`node:`" + ` prefix).`,
	},
	AssetNotFoundId: {
		id:    AssetNotFoundId,
		slug:  "asset-not-found",
		title: "An asset pattern matched no file",
		mdMsg: `
# Asset not found

Every asset pattern must match exactly one file below its source directory.
A zero-match copy is a failure and aborts the pass; the destination is not
created.

## Things you can try
- Install the package that ships the file (for example ` + "`opn`" + ` for ` + "`xdg-open`" + `).
- Check the pattern against the installed package layout.`,
	},
	AssetAmbiguousId: {
		id:    AssetAmbiguousId,
		slug:  "asset-ambiguous",
		title: "An asset pattern matched more than one file",
		mdMsg: `
# Ambiguous asset pattern

The pattern matched several files. Narrow it so exactly one file matches.`,
	},
	OutputNotWritableId: {
		id:    OutputNotWritableId,
		slug:  "output-not-writable",
		title: "An artifact could not be written",
		mdMsg: `
# Output not writable

An artifact or its directory could not be created.

## Things you can try
- Check permissions on the output directory.
- Make sure no other process holds the output files open.`,
	},
}

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, len(ids))
	for i, id := range ids {
		out[i] = issues[id]
	}
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds an entry by slug, case-insensitively.
func Lookup(slug string) *Issue {
	for _, is := range issues {
		if strings.EqualFold(is.slug, slug) {
			return is
		}
	}
	return nil
}
