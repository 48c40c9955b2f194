// Copyright © 2024 The ELPS authors

package formatter

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunRequest is a single formatter invocation.
type RunRequest struct {
	CommandLine string
	Stdin       string
}

// RunResult holds everything the formatter wrote. Either stream may be
// empty.
type RunResult struct {
	Stdout string
	Stderr string
}

// Runner executes formatter command lines.
type Runner interface {
	// Run blocks until the process exits and both output streams are
	// drained. Failures to spawn yield an empty RunResult.
	Run(ctx context.Context, req RunRequest, dir string) RunResult
}

// ShellRunner runs command lines through the platform shell.
type ShellRunner struct {
	// Shell is the interpreter and its flag preceding the command line,
	// e.g. {"sh", "-c"}.
	Shell []string
}

// NewShellRunner returns a runner using cmd on Windows and bash elsewhere,
// falling back to sh when bash is not installed. bash is preferred for its
// "command not found" message, which is how a missing formatter is
// detected.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{Shell: defaultShell()}
}

func defaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	if path, err := exec.LookPath("bash"); err == nil {
		return []string{path, "-c"}
	}
	return []string{"sh", "-c"}
}

// Run implements Runner. dir must be a local directory; shells such as cmd
// cannot use network paths as their working directory. The context only
// carries tracing; a running formatter is never interrupted.
func (r *ShellRunner) Run(ctx context.Context, req RunRequest, dir string) RunResult {
	_, span := otel.Tracer(tracerName).Start(ctx, "prettylua.run",
		trace.WithAttributes(attribute.String("prettylua.command", req.CommandLine)))
	defer span.End()

	sh := r.Shell
	if len(sh) == 0 {
		sh = defaultShell()
	}
	args := append(append([]string(nil), sh[1:]...), req.CommandLine)
	cmd := exec.Command(sh[0], args...) //nolint:gosec // the command line comes from user settings
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.WithError(err).Warn("Unable to open formatter stdin")
		return RunResult{}
	}

	log.WithFields(log.Fields{"command": req.CommandLine, "dir": dir}).Debug("Running formatter")
	if err := cmd.Start(); err != nil {
		log.WithError(err).WithField("command", req.CommandLine).Warn("Unable to start formatter")
		return RunResult{}
	}
	// The formatter reads until end of input, so stdin must be closed
	// before waiting. A formatter that exits early breaks the pipe; its
	// output still tells what happened.
	if _, err := io.WriteString(stdin, req.Stdin); err != nil {
		log.WithError(err).Debug("Formatter stopped reading stdin")
	}
	_ = stdin.Close()
	if err := cmd.Wait(); err != nil {
		log.WithError(err).Debug("Formatter exited with error")
	}

	span.SetAttributes(
		attribute.Int("prettylua.stdout.bytes", stdout.Len()),
		attribute.Int("prettylua.stderr.bytes", stderr.Len()),
	)
	return RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
}
