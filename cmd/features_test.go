package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/kdeps/runtests/pkg/command"
	"github.com/kdeps/runtests/pkg/environment"
	runerrors "github.com/kdeps/runtests/pkg/errors"
	"github.com/kdeps/runtests/pkg/logging"
	"github.com/spf13/afero"
)

const fakePytest = `#!/bin/sh
printf '%s\n' "$PYTHONHASHSEED" > "$FAKE_PYTEST_DIR/seed"
printf '%s\n' "$*" > "$FAKE_PYTEST_DIR/args"
exit "${FAKE_PYTEST_EXIT:-0}"
`

type runScenario struct {
	binDir   string
	vars     map[string]string
	envFile  []string
	exitCode string
	stdout   bytes.Buffer
	inv      *command.Invocation
	err      error
}

func TestFeatures(t *testing.T) {
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "pytest"), []byte(fakePytest), 0o755); err != nil {
		t.Fatal(err)
	}
	// Launch exports the seed into the test process.
	t.Setenv("PYTHONHASHSEED", "")

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			s := &runScenario{binDir: binDir, vars: map[string]string{}, exitCode: "0"}

			ctx.Step(`^the environment variable "([^"]*)" is unset$`, s.variableIsUnset)
			ctx.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, s.variableIs)
			ctx.Step(`^the env file sets "([^"]*)" to "([^"]*)"$`, s.envFileSets)
			ctx.Step(`^pytest exits with status (\d+)$`, s.pytestExitsWith)
			ctx.Step(`^the test run is launched$`, s.theTestRunIsLaunched)
			ctx.Step(`^the command line has no marker clause$`, s.noMarkerClause)
			ctx.Step(`^the command line contains the marker clause for "([^"]*)"$`, s.markerClauseFor)
			ctx.Step(`^the command line ends with the success suffix$`, s.endsWithSuccessSuffix)
			ctx.Step(`^the command line does not force success$`, s.doesNotForceSuccess)
			ctx.Step(`^the exit status is (\d+)$`, s.exitStatusIs)
			ctx.Step(`^pytest saw the exported hash seed$`, s.pytestSawTheSeed)
			ctx.Step(`^pytest did not see the hash seed "([^"]*)"$`, s.pytestDidNotSeeSeed)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func (s *runScenario) variableIsUnset(name string) error {
	delete(s.vars, name)
	return nil
}

func (s *runScenario) variableIs(name, value string) error {
	s.vars[name] = value
	return nil
}

func (s *runScenario) envFileSets(name, value string) error {
	s.envFile = append(s.envFile, name+"="+value)
	return nil
}

func (s *runScenario) pytestExitsWith(code string) error {
	s.exitCode = code
	return nil
}

func (s *runScenario) theTestRunIsLaunched() error {
	environ := []string{"PWD=" + s.binDir}
	for k, v := range s.vars {
		environ = append(environ, k+"="+v)
	}

	fs := afero.NewMemMapFs()
	if len(s.envFile) > 0 {
		content := strings.Join(s.envFile, "\n") + "\n"
		if err := afero.WriteFile(fs, filepath.Join(s.binDir, environment.EnvFileName), []byte(content), 0o644); err != nil {
			return err
		}
	}

	env, err := environment.Load(fs, environ)
	if err != nil {
		return err
	}
	env.FileVars["PATH"] = s.binDir + string(os.PathListSeparator) + os.Getenv("PATH")
	env.FileVars["FAKE_PYTEST_DIR"] = s.binDir
	env.FileVars["FAKE_PYTEST_EXIT"] = s.exitCode

	launcher := NewLauncher(afero.NewMemMapFs(), env, logging.NewTestLogger())
	launcher.Stdout = &s.stdout
	s.inv, s.err = launcher.Launch(context.Background(), false)
	if s.inv == nil {
		return fmt.Errorf("launch produced no command line: %w", s.err)
	}
	return nil
}

func (s *runScenario) printedLine() string {
	return strings.TrimSuffix(s.stdout.String(), "\n")
}

func (s *runScenario) noMarkerClause() error {
	if strings.Contains(s.printedLine(), " -m ") {
		return fmt.Errorf("unexpected marker clause in %q", s.printedLine())
	}
	return nil
}

func (s *runScenario) markerClauseFor(pattern string) error {
	want := ` -m "` + pattern + `"`
	if !strings.Contains(s.printedLine(), want) {
		return fmt.Errorf("expected %q in %q", want, s.printedLine())
	}
	return nil
}

func (s *runScenario) endsWithSuccessSuffix() error {
	if !strings.HasSuffix(s.printedLine(), " || true") {
		return fmt.Errorf("expected success suffix in %q", s.printedLine())
	}
	return nil
}

func (s *runScenario) doesNotForceSuccess() error {
	if strings.Contains(s.printedLine(), "|| true") {
		return fmt.Errorf("unexpected success suffix in %q", s.printedLine())
	}
	return nil
}

func (s *runScenario) exitStatusIs(code string) error {
	want, err := strconv.Atoi(code)
	if err != nil {
		return err
	}
	if got := runerrors.ExitCode(s.err); got != want {
		return fmt.Errorf("exit status %d, want %d (error: %v)", got, want, s.err)
	}
	return nil
}

func (s *runScenario) pytestSawTheSeed() error {
	data, err := os.ReadFile(filepath.Join(s.binDir, "seed"))
	if err != nil {
		return err
	}
	if got := strings.TrimSpace(string(data)); got != s.inv.Seed.String() {
		return fmt.Errorf("pytest saw PYTHONHASHSEED=%q, want %q", got, s.inv.Seed.String())
	}
	return nil
}

func (s *runScenario) pytestDidNotSeeSeed(value string) error {
	data, err := os.ReadFile(filepath.Join(s.binDir, "seed"))
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) == value {
		return fmt.Errorf("pytest saw PYTHONHASHSEED=%s from the env file", value)
	}
	return nil
}
