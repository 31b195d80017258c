// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// fatal reports whether an fsnotify error leaves the watcher unusable:
// inotify watch exhaustion (ENOSPC) or file descriptor exhaustion (EMFILE,
// ENFILE).
func fatal(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
