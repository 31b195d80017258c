// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a build when files under the project change.
//
// Events are filtered through doublestar patterns and coalesced: the
// callback fires once per quiet period with every changed path. A callback
// that is still running is never interrupted and never overlapped; changes
// that arrive meanwhile are delivered in a follow-up call.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Options.Debounce is unset.
const DefaultDebounce = 500 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// defaultIgnores never trigger a rebuild.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Options configures a Watcher.
	Options struct {
		// Root is the directory watched recursively.
		Root string
		// Patterns select the paths, relative to Root, that trigger a
		// rebuild. Empty means every path that is not ignored.
		Patterns []string
		// Ignore adds patterns to the built-in ignores, typically the
		// output and intermediate trees.
		Ignore []string
		// Debounce is the quiet period before OnChange fires.
		Debounce time.Duration
		// OnChange receives the sorted, deduplicated changed paths.
		OnChange func(ctx context.Context, changed []string) error
	}

	// Watcher watches a tree and fires debounced callbacks.
	Watcher struct {
		opts     Options
		root     string
		ignores  []string
		debounce time.Duration
		fsw      *fsnotify.Watcher
		started  atomic.Bool
	}

	// batcher accumulates changes and runs the callback at most once at a time.
	batcher struct {
		mu      sync.Mutex
		pending map[string]struct{}
		timer   *time.Timer
		busy    atomic.Bool
	}
)

// New validates opts and registers every non-ignored directory under Root.
func New(opts Options) (*Watcher, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}

	for _, p := range slices.Concat(opts.Patterns, opts.Ignore) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("watch: invalid pattern %q", p)
		}
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		opts:     opts,
		root:     root,
		ignores:  slices.Concat(defaultIgnores, opts.Ignore),
		debounce: debounce,
		fsw:      fsw,
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close() // best-effort cleanup on init failure
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is canceled. It returns nil on
// cancellation and an error if the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			slog.Debug("close fsnotify watcher", "error", err)
		}
	}()

	b := &batcher{pending: make(map[string]struct{})}
	defer b.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			rel, err := filepath.Rel(w.root, evt.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if w.ignored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.addIfDir(evt.Name)
			}
			if !w.selected(rel) {
				continue
			}
			b.add(rel, w.debounce, func() { w.fire(ctx, b) })

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if fatal(err) {
				return fmt.Errorf("watch: %w", err)
			}
			slog.Warn("watch error", "error", err)
		}
	}
}

// fire runs the callback with the pending batch unless a callback is
// already running, in which case the batch is retried after another
// quiet period.
func (w *Watcher) fire(ctx context.Context, b *batcher) {
	if ctx.Err() != nil {
		return
	}
	if !b.busy.CompareAndSwap(false, true) {
		slog.Info("build still running, deferring rebuild")
		b.rearm(w.debounce)
		return
	}
	defer b.busy.Store(false)

	changed := b.drain()
	if len(changed) == 0 || w.opts.OnChange == nil {
		return
	}
	slog.Debug("files changed", "count", len(changed), "paths", changed)
	if err := w.opts.OnChange(ctx, changed); err != nil {
		slog.Error("rebuild failed", "error", err)
	}
}

func (b *batcher) add(rel string, debounce time.Duration, fire func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[rel] = struct{}{}
	if b.timer == nil {
		b.timer = time.AfterFunc(debounce, fire)
		return
	}
	b.timer.Reset(debounce)
}

func (b *batcher) rearm(debounce time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Reset(debounce)
	}
}

func (b *batcher) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	changed := slices.Sorted(maps.Keys(b.pending))
	clear(b.pending)
	return changed
}

func (b *batcher) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
}

// addTree registers dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			slog.Debug("watch: skipping unreadable path", "path", path, "error", err)
			return nil //nolint:nilerr // unreadable subtrees are not watched
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil //nolint:nilerr // outside the root
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && (w.ignored(rel) || w.ignored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", dir, err)
	}
	return nil
}

// addIfDir extends the watch to a directory created after startup.
func (w *Watcher) addIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addTree(path); err != nil {
		slog.Warn("watch: cannot watch new directory", "path", path, "error", err)
	}
}

func (w *Watcher) ignored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) selected(rel string) bool {
	return len(w.opts.Patterns) == 0 || matchAny(w.opts.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
