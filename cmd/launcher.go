package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kdeps/runtests/pkg/command"
	"github.com/kdeps/runtests/pkg/coverage"
	"github.com/kdeps/runtests/pkg/environment"
	runerrors "github.com/kdeps/runtests/pkg/errors"
	"github.com/kdeps/runtests/pkg/logging"
	"github.com/kdeps/runtests/pkg/seed"
	"github.com/kdeps/runtests/pkg/shellexec"
	"github.com/spf13/afero"
)

// RunnerFactory builds the sub-shell runner for a backend name.
type RunnerFactory func(kind string, opts shellexec.Options, logger *logging.Logger) (shellexec.Runner, error)

// Launcher takes one test run from configuration to exit status.
type Launcher struct {
	Fs        afero.Fs
	Env       *environment.Environment
	Seeds     *seed.Generator
	NewRunner RunnerFactory
	// Stdout receives the assembled command line.
	Stdout io.Writer
	Logger *logging.Logger
}

// NewLauncher returns a Launcher with the default seed source and runners.
func NewLauncher(fs afero.Fs, env *environment.Environment, logger *logging.Logger) *Launcher {
	return &Launcher{
		Fs:        fs,
		Env:       env,
		Seeds:     seed.New(nil),
		NewRunner: shellexec.New,
		Stdout:    os.Stdout,
		Logger:    logger,
	}
}

// Launch validates the environment, exports the hash seed, assembles and
// prints the command line and, unless dryRun is set, executes it.
func (l *Launcher) Launch(ctx context.Context, dryRun bool) (*command.Invocation, error) {
	logger := l.Logger.With("run_id", uuid.NewString())
	env := l.Env

	if err := env.Validate(); err != nil {
		return nil, runerrors.WrapError(err, runerrors.ErrInvalidEnvironment, "invalid test environment")
	}

	s, reused := l.Seeds.Resolve(env.HashSeed, env.ShouldReuseSeed())
	if err := s.Export(); err != nil {
		return nil, runerrors.WrapError(err, runerrors.ErrInvalidEnvironment, "failed to export hash seed")
	}
	logger.Debug("hash seed ready", "seed", s, "reused", reused)

	inv, err := command.Build(env, s)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(l.Stdout, inv.Line)

	if dryRun {
		logger.Info("dry run, command not executed")
		return inv, nil
	}

	if env.ForceSuccess() {
		logger.Warn("future string inference enabled, test failures will not fail the run")
	}

	runner, err := l.NewRunner(env.Shell, shellexec.Options{}, logger)
	if err != nil {
		return inv, err
	}

	if env.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(env.TimeoutSec)*time.Second)
		defer cancel()
	}

	// The seed goes last so nothing in the env file can replace it.
	environ := append(env.Environ(), s.Environ())
	logger.Debug("executing", "shell", env.Shell, "seed", s, "test_args", inv.TestArgs)
	runErr := logger.TimeOperation("pytest", func() error {
		_, err := runner.Run(ctx, inv.Line, environ)
		return err
	})

	l.reportCoverage(logger)

	return inv, runErr
}

// reportCoverage logs the coverage summary if the run produced one.
func (l *Launcher) reportCoverage(logger *logging.Logger) {
	path := l.Env.CoverageFile
	if path == "" {
		return
	}
	if !filepath.IsAbs(path) && l.Env.Pwd != "" {
		path = filepath.Join(l.Env.Pwd, path)
	}

	summary, err := coverage.Summarize(l.Fs, path)
	switch {
	case errors.Is(err, coverage.ErrNoReport):
		logger.Debug("no coverage report", "path", path)
	case err != nil:
		logger.Warn("could not read coverage report", "error", err)
	default:
		logger.Info("coverage", "path", summary.Path, "summary", summary.String())
	}
}
