// Package shellexec runs an assembled command line in a sub-shell.
package shellexec

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kdeps/runtests/pkg/environment"
	"github.com/kdeps/runtests/pkg/errors"
	"github.com/kdeps/runtests/pkg/logging"
)

// Result is what the sub-shell left behind.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a shell command line with extra environment variables
// layered over the current process environment.
//
// A non-zero exit is returned as a *errors.RunError with code TESTS_FAILED
// alongside a populated Result; failure to start or interpret the line is
// COMMAND_EXECUTION_FAILED.
type Runner interface {
	Run(ctx context.Context, line string, environ []string) (Result, error)
}

// Options configures a Runner.
type Options struct {
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Stdout and Stderr receive the streamed output. They default to the
	// process streams. ShellRunner always streams to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// New returns the Runner for kind, one of environment.ShellSh or
// environment.ShellInterp.
func New(kind string, opts Options, logger *logging.Logger) (Runner, error) {
	switch kind {
	case environment.ShellSh, "":
		return NewShellRunner(opts.Dir, logger), nil
	case environment.ShellInterp:
		return &InterpRunner{Dir: opts.Dir, Stdout: opts.Stdout, Stderr: opts.Stderr, logger: logger}, nil
	default:
		return nil, errors.NewInvalidEnvironmentError("RUNTESTS_SHELL", kind,
			fmt.Errorf("unknown shell %q", kind))
	}
}

// mergeEnviron returns the process environment followed by environ, so later
// entries override earlier ones.
func mergeEnviron(environ []string) []string {
	base := os.Environ()
	out := make([]string, 0, len(base)+len(environ))
	out = append(out, base...)
	return append(out, environ...)
}

// finish turns an exit status into the Runner error contract.
func finish(logger *logging.Logger, line string, result Result) (Result, error) {
	if result.ExitCode != 0 {
		logger.Warn("command exited with non-zero code", "code", result.ExitCode)
		return result, errors.NewTestsFailedError(line, result.ExitCode)
	}

	logger.Info("command executed successfully", "code", result.ExitCode)
	return result, nil
}
