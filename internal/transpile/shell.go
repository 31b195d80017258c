// SPDX-License-Identifier: MPL-2.0

package transpile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Environment variables exported to the transpile command.
const (
	EnvSourceRoot = "HOSTPACK_SOURCE_ROOT"
	EnvSettings   = "HOSTPACK_SETTINGS"
	EnvOutDir     = "HOSTPACK_OUT_DIR"
)

// ShellTranspiler runs an external compiler through the embedded POSIX
// shell interpreter, for example:
//
//	tsc -p "$HOSTPACK_SETTINGS" --outDir "$HOSTPACK_OUT_DIR"
type ShellTranspiler struct {
	// Command is the shell command line.
	Command string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Stdout receives the command's standard output; nil discards it.
	Stdout io.Writer
}

// Transpile implements Transpiler.
func (t *ShellTranspiler) Transpile(ctx context.Context, req Request) error {
	if strings.TrimSpace(t.Command) == "" {
		return &CompileError{Tool: "shell", Err: errors.New("no transpile command configured")}
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(t.Command), "transpile")
	if err != nil {
		return &CompileError{Tool: "shell", Err: fmt.Errorf("parse command: %w", err)}
	}

	env := append(os.Environ(),
		EnvSourceRoot+"="+req.SourceRoot,
		EnvSettings+"="+req.SettingsPath,
		EnvOutDir+"="+req.OutDir,
	)
	stdout := t.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	var stderr bytes.Buffer

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, stdout, &stderr),
	}
	if t.Dir != "" {
		opts = append(opts, interp.Dir(t.Dir))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return &CompileError{Tool: "shell", Err: fmt.Errorf("create interpreter: %w", err)}
	}

	if err := runner.Run(ctx, prog); err != nil {
		ce := &CompileError{Tool: "shell", Diagnostics: diagnosticLines(stderr.String())}
		var status interp.ExitStatus
		if errors.As(err, &status) {
			ce.Err = fmt.Errorf("command exited with status %d", uint8(status))
		} else {
			ce.Err = err
		}
		return ce
	}
	return nil
}

func diagnosticLines(s string) []string {
	var out []string
	for line := range strings.SplitSeq(s, "\n") {
		if line = strings.TrimRight(line, "\r "); line != "" {
			out = append(out, line)
		}
	}
	return out
}
