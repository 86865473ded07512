package environment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	env "github.com/Netflix/go-env"
	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

const (
	// EnvFileName is looked up in the working directory.
	EnvFileName = ".runtests.env"

	ShellSh     = "sh"
	ShellInterp = "interp"

	defaultWorkers      = "auto"
	defaultTarget       = "pandas"
	defaultCoverageFile = "coverage.xml"

	hashSeedVar = "PYTHONHASHSEED"
)

// ConfigDir is the per-user directory searched for an "env" file.
var ConfigDir = filepath.Join(xdg.ConfigHome, "runtests")

// Environment holds the test-run configuration loaded from the OS or defaults.
type Environment struct {
	Workers           string `env:"PYTEST_WORKERS,default=auto"`
	TestArgs          string `env:"TEST_ARGS"`
	Target            string `env:"PYTEST_TARGET,default=pandas"`
	Pattern           string `env:"PATTERN"`
	FutureInferString string `env:"PANDAS_FUTURE_INFER_STRING"`
	HashSeed          string `env:"PYTHONHASHSEED"`
	ReuseSeed         string `env:"RUNTESTS_REUSE_SEED,default=0"`
	Shell             string `env:"RUNTESTS_SHELL,default=sh"`
	EnvFile           string `env:"RUNTESTS_ENV_FILE"`
	CoverageFile      string `env:"RUNTESTS_COVERAGE_FILE,default=coverage.xml"`
	TimeoutSec        int    `env:"RUNTESTS_TIMEOUT,default=0"`
	Home              string `env:"HOME"`
	Pwd               string `env:"PWD"`

	// FileVars holds variables read from the env file that the process
	// environment did not already define. They are handed to the sub-shell.
	// PYTHONHASHSEED is never among them; the launcher owns it.
	FileVars env.EnvSet
}

// ForceSuccess reports whether the run must exit 0 regardless of test outcome.
// Only the exact value "1" enables it.
func (e *Environment) ForceSuccess() bool {
	return e.FutureInferString == "1"
}

// HasPattern reports whether a marker expression was supplied.
func (e *Environment) HasPattern() bool {
	return e.Pattern != ""
}

// ShouldReuseSeed reports whether an inherited PYTHONHASHSEED is kept.
func (e *Environment) ShouldReuseSeed() bool {
	return e.ReuseSeed == "1"
}

// Environ returns the env file variables as KEY=VALUE pairs.
func (e *Environment) Environ() []string {
	if len(e.FileVars) == 0 {
		return nil
	}
	return env.EnvSetToEnviron(e.FileVars)
}

// Validate checks values that would otherwise only fail once pytest starts.
func (e *Environment) Validate() error {
	switch e.Shell {
	case ShellSh, ShellInterp:
	default:
		return fmt.Errorf("RUNTESTS_SHELL must be %q or %q, got %q", ShellSh, ShellInterp, e.Shell)
	}

	switch e.Workers {
	case "":
		return errors.New("PYTEST_WORKERS must not be empty")
	case "auto", "logical":
	default:
		n, err := strconv.Atoi(e.Workers)
		if err != nil || n < 0 {
			return fmt.Errorf("PYTEST_WORKERS must be auto, logical or a non-negative integer, got %q", e.Workers)
		}
	}

	if e.TimeoutSec < 0 {
		return fmt.Errorf("RUNTESTS_TIMEOUT must not be negative, got %d", e.TimeoutSec)
	}
	return nil
}

// checkEnvFile checks if a file with the given name exists in dir.
func checkEnvFile(fs afero.Fs, dir, name string) (string, error) {
	file := filepath.Join(dir, name)
	exists, err := afero.Exists(fs, file)
	if err == nil && exists {
		return file, nil
	}
	return "", err
}

// findEnvFile searches the working directory, then the user config directory.
func findEnvFile(fs afero.Fs, pwd string) string {
	if pwd != "" {
		if file, _ := checkEnvFile(fs, pwd, EnvFileName); file != "" {
			return file
		}
	}
	if file, _ := checkEnvFile(fs, ConfigDir, "env"); file != "" {
		return file
	}
	return ""
}

// readEnvFile parses a dotenv file from fs.
func readEnvFile(fs afero.Fs, path string) (map[string]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open env file %s: %w", path, err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file %s: %w", path, err)
	}
	return vars, nil
}

// Load builds an Environment from environ (KEY=VALUE pairs) and the env file
// it points at. Variables in environ always win over the file.
func Load(fs afero.Fs, environ []string) (*Environment, error) {
	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return nil, err
	}

	// The first pass only locates the env file.
	locate := &Environment{}
	if err := env.Unmarshal(copySet(es), locate); err != nil {
		return nil, err
	}
	if locate.Pwd == "" {
		locate.Pwd, _ = os.Getwd()
	}

	envFile := locate.EnvFile
	if envFile != "" {
		if exists, _ := afero.Exists(fs, envFile); !exists {
			return nil, fmt.Errorf("env file %s does not exist", envFile)
		}
	} else {
		envFile = findEnvFile(fs, locate.Pwd)
	}

	fileVars := env.EnvSet{}
	if envFile != "" {
		vars, err := readEnvFile(fs, envFile)
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			if _, ok := es[k]; ok {
				continue
			}
			es[k] = v
			// A file seed is only honoured through HashSeed when reuse is on.
			if k == hashSeedVar {
				continue
			}
			fileVars[k] = v
		}
	}

	environment := &Environment{}
	if err := env.Unmarshal(es, environment); err != nil {
		return nil, err
	}
	if environment.Pwd == "" {
		environment.Pwd = locate.Pwd
	}
	environment.EnvFile = envFile
	environment.FileVars = fileVars

	return environment, nil
}

// NewEnvironment initializes and returns a new Environment based on provided or default settings.
func NewEnvironment(fs afero.Fs, environ *Environment) (*Environment, error) {
	if environ != nil {
		// Overrides keep their values; unset fields fall back to the defaults.
		out := *environ
		if out.Workers == "" {
			out.Workers = defaultWorkers
		}
		if out.Target == "" {
			out.Target = defaultTarget
		}
		if out.Shell == "" {
			out.Shell = ShellSh
		}
		if out.CoverageFile == "" {
			out.CoverageFile = defaultCoverageFile
		}
		if out.ReuseSeed == "" {
			out.ReuseSeed = "0"
		}
		return &out, nil
	}

	return Load(fs, os.Environ())
}

func copySet(es env.EnvSet) env.EnvSet {
	out := make(env.EnvSet, len(es))
	for k, v := range es {
		out[k] = v
	}
	return out
}
