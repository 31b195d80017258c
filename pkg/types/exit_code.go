// SPDX-License-Identifier: MPL-2.0

package types

import "strconv"

// Process exit statuses.
const (
	// ExitOK means every job of every requested pass succeeded.
	ExitOK ExitCode = 0
	// ExitFailure means a pass failed: transpile, a bundle job or an asset copy.
	// There is no separate code for partial success.
	ExitFailure ExitCode = 1
	// ExitUsage means the invocation itself was wrong: flags, manifest or config.
	ExitUsage ExitCode = 2
)

// ExitCode is a process exit status.
type ExitCode int

// IsSuccess reports whether the code means success.
func (c ExitCode) IsSuccess() bool { return c == ExitOK }

// Meaning describes the code for logs and help text.
func (c ExitCode) Meaning() string {
	switch c {
	case ExitOK:
		return "success"
	case ExitFailure:
		return "build failed"
	case ExitUsage:
		return "invalid invocation, manifest or configuration"
	default:
		return "exit status " + c.String()
	}
}

// String returns the decimal form.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
