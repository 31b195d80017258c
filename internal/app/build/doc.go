// SPDX-License-Identifier: MPL-2.0

// Package build runs one pass of the host package build: a single transpile
// step, a concurrent fan-out of bundle jobs and asset copies, and a join
// that waits for every job before deciding the pass outcome.
//
// A pass moves through these states:
//
//	init -> transpiling -> dispatching -> awaiting-all -> all-succeeded -> cleanup -> done
//	                  \                               \-> any-failed -> aborted
//	                   \-> aborted
//
// The intermediate tree is removed only when every job succeeded, so a
// failed pass can be inspected.
package build
