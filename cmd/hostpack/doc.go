// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the hostpack command line.
//
// Every command is built from an App, the composition root holding the
// configuration provider and output streams, so tests can run commands
// against buffers without touching process-wide state.
package cmd
