package shellexec

import (
	"context"
	"errors"

	execute "github.com/alexellis/go-execute/v2"
	runerrors "github.com/kdeps/runtests/pkg/errors"
	"github.com/kdeps/runtests/pkg/logging"
)

// ShellRunner runs the line with "sh -c", streaming output to the process
// standard streams while also capturing it.
type ShellRunner struct {
	Dir    string
	logger *logging.Logger
}

// NewShellRunner returns a ShellRunner working in dir.
func NewShellRunner(dir string, logger *logging.Logger) *ShellRunner {
	return &ShellRunner{Dir: dir, logger: logger}
}

// Run implements Runner.
func (r *ShellRunner) Run(ctx context.Context, line string, environ []string) (Result, error) {
	r.logger.Debug("executing", "shell", "sh", "command", line, "dir", r.Dir)

	task := execute.ExecTask{
		Command:     "sh",
		Args:        []string{"-c", line},
		Env:         mergeEnviron(environ),
		Cwd:         r.Dir,
		StreamStdio: true,
	}

	res, err := task.Execute(ctx)
	result := Result{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.logger.Error("command timed out", "error", err)
		} else {
			r.logger.Error("command execution failed", "error", err)
		}
		return result, runerrors.NewCommandExecutionError(line, err).WithExitCode(1)
	}

	// A negative code means the shell was killed by a signal.
	if res.ExitCode < 0 {
		return result, runerrors.NewCommandExecutionError(line, errors.New("sub-shell terminated by signal")).WithExitCode(1)
	}

	return finish(r.logger, line, result)
}
