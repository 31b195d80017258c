// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"

	"github.com/hostpack/hostpack/internal/config"
	"github.com/hostpack/hostpack/internal/manifest"
	"github.com/hostpack/hostpack/pkg/cueutil"
	"github.com/hostpack/hostpack/pkg/types"

	"github.com/spf13/cobra"
)

// ExitError carries the process exit code out of a RunE handler. The
// message has already been printed when it is returned.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code.Meaning()
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps an error onto the process exit contract: bad input is a
// usage error, anything that happened during a pass is a build failure.
func exitCodeFor(err error) types.ExitCode {
	switch {
	case err == nil:
		return types.ExitOK
	case errors.Is(err, manifest.ErrInvalidManifest),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrInvalidLoadOptions),
		errors.Is(err, cueutil.ErrInvalidDocument),
		errors.Is(err, errUsage):
		return types.ExitUsage
	default:
		return types.ExitFailure
	}
}

// errUsage marks invalid arguments detected inside a handler.
var errUsage = errors.New("usage error")

// fail renders err to the command's stderr and returns the ExitError that
// carries its exit code. Cobra's own error printing is silenced.
func (a *App) fail(cmd *cobra.Command, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	renderError(a.stderr, err, a.verbose())
	return &ExitError{Code: exitCodeFor(err), Err: err}
}
