package cmd

import (
	"context"
	"os"

	"github.com/kdeps/runtests/pkg/environment"
	"github.com/kdeps/runtests/pkg/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewRootCommand returns the root command with all subcommands attached.
// Running the root command launches the test suite.
func NewRootCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	var (
		dryRun  bool
		shell   string
		envFile string
	)

	rootCmd := &cobra.Command{
		Use:   "runtests",
		Short: "Run the pandas test suite under pytest.",
		Long: `Runtests assembles and runs the pytest command line for the pandas test suite.

All configuration comes from the environment:
  PYTEST_WORKERS              worker count for pytest-xdist (default: auto)
  TEST_ARGS                   extra pytest arguments
  PYTEST_TARGET               test path (default: pandas)
  PATTERN                     marker expression passed as -m
  PANDAS_FUTURE_INFER_STRING  when 1, test failures do not fail the run

A random PYTHONHASHSEED is exported first so every worker collects the same
tests in the same order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runEnv := env
			if envFile != "" {
				loaded, err := environment.Load(fs, append(os.Environ(), "RUNTESTS_ENV_FILE="+envFile))
				if err != nil {
					return err
				}
				runEnv = loaded
			}
			if shell != "" {
				overridden := *runEnv
				overridden.Shell = shell
				runEnv = &overridden
			}

			launcher := NewLauncher(fs, runEnv, logger)
			launcher.Stdout = cmd.OutOrStdout()
			_, err := launcher.Launch(cmd.Context(), dryRun)
			return err
		},
	}
	rootCmd.SetContext(ctx)

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command line without running it")
	rootCmd.Flags().StringVar(&shell, "shell", "", `Sub-shell backend, "sh" or "interp" (overrides RUNTESTS_SHELL)`)
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "Env file to load (overrides RUNTESTS_ENV_FILE)")

	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
