// SPDX-License-Identifier: MPL-2.0

// Package policy decides how each import specifier encountered while bundling
// is handled.
//
// A specifier is classified against an ExternalizationPolicy into exactly one
// of four classes, evaluated in a fixed priority order (first match wins):
//
//  1. PassThrough: relative or absolute paths ("./", "../", "/"). These are
//     concrete module locations and are resolved normally by the engine.
//  2. RewriteAlias: the specifier is a key of the policy's AliasTable. The
//     import stays external but is rewritten to the mapped path.
//  3. LeaveExternal: the specifier is in the policy's allowlist of names the
//     host provides at load time.
//  4. Embed: everything else is pulled into the artifact.
//
// Classification is pure and deterministic. Policies are immutable values;
// every job carries its own and nothing is cached across jobs.
package policy
