// SPDX-License-Identifier: MPL-2.0

package transpile

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/hostpack/hostpack/internal/artifact"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/sourcegraph/conc/pool"
)

// DefaultExcludes are the slash-separated patterns, relative to the source
// root, that are never transpiled.
var DefaultExcludes = []string{
	"**/node_modules/**",
	"**/*.d.ts",
	"**/*.spec.*",
	"**/*.test.*",
	"**/__tests__/**",
	"**/__mocks__/**",
}

var loaders = map[string]api.Loader{
	".ts":  api.LoaderTS,
	".tsx": api.LoaderTSX,
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
}

// EsbuildTranspiler transforms each source file to CommonJS on its own,
// without bundling. JSON files are copied unchanged.
//
// The scope is the whole source root minus Excludes. The settings file only
// supplies compiler options: its include, exclude and files entries are not
// consulted, because a file-by-file transform cannot follow imports out of
// that scope the way tsc does. Narrow the tree with Excludes, or use
// ShellTranspiler to run tsc itself.
type EsbuildTranspiler struct {
	// Excludes overrides DefaultExcludes when non-nil.
	Excludes []string
	// MaxParallel bounds concurrent file transforms; zero means GOMAXPROCS.
	MaxParallel int
	// Writer publishes the transpiled files.
	Writer artifact.Writer
}

// Transpile implements Transpiler.
func (t *EsbuildTranspiler) Transpile(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tsconfig := ""
	if req.SettingsPath != "" {
		data, err := os.ReadFile(req.SettingsPath)
		if err != nil {
			return &CompileError{Tool: "esbuild", Err: fmt.Errorf("read settings: %w", err)}
		}
		tsconfig = string(data)
	}

	files, err := t.collect(req)
	if err != nil {
		return &CompileError{Tool: "esbuild", Err: err}
	}

	limit := t.MaxParallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var (
		mu    sync.Mutex
		diags []string
	)
	p := pool.New().WithErrors().WithMaxGoroutines(limit)
	for _, rel := range files {
		p.Go(func() error {
			d, err := t.transformFile(req, rel, tsconfig)
			if len(d) > 0 {
				mu.Lock()
				diags = append(diags, d...)
				mu.Unlock()
			}
			return err
		})
	}
	err = p.Wait()

	if len(diags) > 0 || err != nil {
		slices.Sort(diags)
		return &CompileError{Tool: "esbuild", Diagnostics: diags, Err: err}
	}
	return nil
}

// collect lists the slash-separated paths of files to process.
func (t *EsbuildTranspiler) collect(req Request) ([]string, error) {
	excludes := t.Excludes
	if excludes == nil {
		excludes = DefaultExcludes
	}
	outDir, err := filepath.Abs(req.OutDir)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(req.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); abs == outDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(req.SourceRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range excludes {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return nil
			}
		}
		ext := filepath.Ext(rel)
		if _, ok := loaders[ext]; ok || ext == ".json" {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", req.SourceRoot, err)
	}
	return files, nil
}

// transformFile converts one file and writes it under req.OutDir. Compiler
// diagnostics are returned separately from filesystem errors.
func (t *EsbuildTranspiler) transformFile(req Request, rel, tsconfig string) ([]string, error) {
	src := filepath.Join(req.SourceRoot, filepath.FromSlash(rel))
	code, err := os.ReadFile(src)
	if err != nil {
		return nil, &artifact.FilesystemError{Op: "read", Path: src, Err: err}
	}

	ext := filepath.Ext(rel)
	if ext == ".json" {
		dst := filepath.Join(req.OutDir, filepath.FromSlash(rel))
		return nil, t.Writer.Write(&artifact.Artifact{Path: dst, Content: code})
	}

	result := api.Transform(string(code), api.TransformOptions{
		Loader:      loaders[ext],
		Format:      api.FormatCommonJS,
		Platform:    api.PlatformNode,
		Target:      api.ES2017,
		Sourcefile:  rel,
		TsconfigRaw: tsconfig,
		LogLevel:    api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		diags := make([]string, len(result.Errors))
		for i, m := range result.Errors {
			if m.Location != nil {
				diags[i] = fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
			} else {
				diags[i] = rel + ": " + m.Text
			}
		}
		return diags, nil
	}

	dst := filepath.Join(req.OutDir, filepath.FromSlash(outputName(rel)))
	return nil, t.Writer.Write(&artifact.Artifact{Path: dst, Content: result.Code})
}

// outputName maps a source path to its transpiled name.
func outputName(rel string) string {
	switch ext := filepath.Ext(rel); ext {
	case ".ts", ".tsx", ".mjs":
		return strings.TrimSuffix(rel, ext) + ".js"
	default:
		return rel
	}
}
