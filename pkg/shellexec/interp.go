package shellexec

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	runerrors "github.com/kdeps/runtests/pkg/errors"
	"github.com/kdeps/runtests/pkg/logging"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// InterpRunner interprets the line with an in-process POSIX shell. External
// programs such as pytest are still started as child processes; only the
// shell itself is not.
type InterpRunner struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	logger *logging.Logger
}

// Run implements Runner.
func (r *InterpRunner) Run(ctx context.Context, line string, environ []string) (Result, error) {
	r.logger.Debug("executing", "shell", "interp", "command", line, "dir", r.Dir)

	file, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(strings.NewReader(line), "")
	if err != nil {
		return Result{}, runerrors.NewMalformedCommandError(line, err)
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.StdIO(nil, io.MultiWriter(orDefault(r.Stdout, os.Stdout), &stdout),
			io.MultiWriter(orDefault(r.Stderr, os.Stderr), &stderr)),
		interp.Env(expand.ListEnviron(mergeEnviron(environ)...)),
		interp.Dir(r.Dir),
	)
	if err != nil {
		return Result{}, runerrors.NewCommandExecutionError(line, err).WithExitCode(1)
	}

	runErr := runner.Run(ctx, file)
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if status, ok := interp.IsExitStatus(runErr); ok {
		result.ExitCode = int(status)
	} else if runErr != nil {
		r.logger.Error("command execution failed", "error", runErr)
		return result, runerrors.NewCommandExecutionError(line, runErr).WithExitCode(1)
	}

	return finish(r.logger, line, result)
}

func orDefault(w io.Writer, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
