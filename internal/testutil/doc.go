// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixture helpers for tests: project trees are
// written from a map of slash-separated paths and read back the same way.
// Every helper fails the test on error instead of returning one.
package testutil
