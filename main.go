package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	runerrors "github.com/kdeps/runtests/pkg/errors"
	"github.com/kdeps/runtests/pkg/logging"
	"github.com/spf13/afero"
)

func main() {
	// Initialize filesystem and context
	fs := afero.NewOsFs()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.GetLogger()
	setupSignalHandler(cancel, logger)

	OsExitFn(run(ctx, fs, os.Args[1:], logger))
}

// run loads the environment, executes the root command and returns the
// process exit status.
func run(ctx context.Context, fs afero.Fs, args []string, logger *logging.Logger) int {
	env, err := NewEnvironmentFn(fs, nil)
	if err != nil {
		logger.Error("Failed to set up environment", "error", err)
		return 1
	}

	// A nil slice would make cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}

	rootCmd := NewRootCommandFn(ctx, fs, env, logger)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()
	return exitStatus(err, logger)
}

// exitStatus logs err unless it only reports failing tests, which pytest has
// already printed, and maps it to an exit code.
func exitStatus(err error, logger *logging.Logger) int {
	if err == nil {
		return 0
	}
	if runerrors.HasErrorCode(err, runerrors.ErrTestsFailed) {
		logger.Debug("tests failed", "error", err)
	} else {
		keyvals := []interface{}{"error", err}
		if re, ok := runerrors.AsRunError(err); ok {
			keyvals = append(keyvals, re.Fields()...)
		}
		logger.Error("Run failed", keyvals...)
	}
	return runerrors.ExitCode(err)
}

// setupSignalHandler cancels the run context on SIGINT or SIGTERM so the
// sub-shell is torn down with it.
func setupSignalHandler(cancelFunc context.CancelFunc, logger *logging.Logger) {
	sigs := make(chan os.Signal, 1)
	SignalNotifyFn(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		logger.Debug(fmt.Sprintf("Received signal: %v, cancelling test run...", sig))
		cancelFunc()
	}()
}
