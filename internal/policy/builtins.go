// SPDX-License-Identifier: MPL-2.0

package policy

import "strings"

// hostBuiltins lists the top-level Node.js core modules. A host built-in can
// only ever be left external; it is never embeddable.
var hostBuiltins = map[string]bool{
	"assert":              true,
	"async_hooks":         true,
	"buffer":              true,
	"child_process":       true,
	"cluster":             true,
	"console":             true,
	"constants":           true,
	"crypto":              true,
	"dgram":               true,
	"diagnostics_channel": true,
	"dns":                 true,
	"domain":              true,
	"events":              true,
	"fs":                  true,
	"http":                true,
	"http2":               true,
	"https":               true,
	"inspector":           true,
	"module":              true,
	"net":                 true,
	"os":                  true,
	"path":                true,
	"perf_hooks":          true,
	"process":             true,
	"punycode":            true,
	"querystring":         true,
	"readline":            true,
	"repl":                true,
	"stream":              true,
	"string_decoder":      true,
	"sys":                 true,
	"timers":              true,
	"tls":                 true,
	"trace_events":        true,
	"tty":                 true,
	"url":                 true,
	"util":                true,
	"v8":                  true,
	"vm":                  true,
	"wasi":                true,
	"worker_threads":      true,
	"zlib":                true,
}

// IsHostBuiltin reports whether specifier names a host built-in module.
// Both bare ("fs") and prefixed ("node:fs") forms are recognized, as are
// subpaths such as "fs/promises".
func IsHostBuiltin(specifier string) bool {
	if rest, ok := strings.CutPrefix(specifier, "node:"); ok {
		specifier = rest
	}
	if base, _, ok := strings.Cut(specifier, "/"); ok {
		specifier = base
	}
	return hostBuiltins[specifier]
}
