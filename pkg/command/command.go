// Package command assembles the pytest command line for a test run.
package command

import (
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/kdeps/runtests/pkg/environment"
	"github.com/kdeps/runtests/pkg/errors"
	"github.com/kdeps/runtests/pkg/seed"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// ProcessEnv is prefixed to every invocation.
	ProcessEnv = "MESONPY_EDITABLE_VERBOSE=1 PYTHONDEVMODE=1 PYTHONWARNDEFAULTENCODING=1"

	// Reporting prints a short summary for failed and errored tests.
	Reporting = "pytest -r fE"

	// Distribution is the pytest-xdist scheduling strategy.
	Distribution = "worksteal"

	// Coverage collects coverage for the library into an appended XML report.
	Coverage = "-s --cov=pandas --cov-report=xml --cov-append --cov-config=pyproject.toml"

	// ForceSuccessSuffix masks the test command's exit status.
	ForceSuccessSuffix = "|| true"
)

// Invocation is a fully assembled command line and what went into it.
type Invocation struct {
	Line         string
	Seed         seed.Seed
	Pattern      string
	ForceSuccess bool
	TestArgs     []string
}

// Build concatenates the command line in fixed order: process environment,
// reporting flags, worker and distribution flags, extra arguments, coverage
// flags, target, then the optional marker clause and success suffix.
func Build(env *environment.Environment, s seed.Seed) (*Invocation, error) {
	args, err := SplitArgs(env.TestArgs)
	if err != nil {
		return nil, errors.NewMalformedCommandError(env.TestArgs, err).
			WithContext("variable", "TEST_ARGS")
	}

	parts := []string{
		ProcessEnv,
		Reporting,
		"-n", env.Workers,
		"--dist=" + Distribution,
		env.TestArgs,
		Coverage,
		env.Target,
	}

	if env.HasPattern() {
		parts = append(parts, `-m "`+env.Pattern+`"`)
	}

	if env.ForceSuccess() {
		parts = append(parts, ForceSuccessSuffix)
	}

	line := join(parts)
	if err := Validate(line); err != nil {
		return nil, err
	}

	return &Invocation{
		Line:         line,
		Seed:         s,
		Pattern:      env.Pattern,
		ForceSuccess: env.ForceSuccess(),
		TestArgs:     args,
	}, nil
}

// Validate parses line as a POSIX shell program.
func Validate(line string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	if _, err := parser.Parse(strings.NewReader(line), ""); err != nil {
		return errors.NewMalformedCommandError(line, err)
	}
	return nil
}

// SplitArgs splits s into words the way a POSIX shell would.
func SplitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return shellquote.Split(s)
}

// join joins non-empty fragments with single spaces.
func join(parts []string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
