package logging_test

import (
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/kdeps/runtests/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLogger(t *testing.T) {
	logging.ResetForTest()
	logging.CreateLogger()
	assert.NotNil(t, logging.GetLogger())

	logging.ResetForTest()
	t.Setenv("DEBUG", "1")
	logging.CreateLogger()
	require.NotNil(t, logging.GetLogger())
	assert.Equal(t, log.DebugLevel, logging.GetLogger().GetLevel())
}

func TestGetOutput(t *testing.T) {
	testLogger := logging.NewTestLogger()
	assert.Equal(t, "", testLogger.GetOutput())

	testLogger.Info("test message")
	assert.Contains(t, testLogger.GetOutput(), "test message")

	noBuffer := &logging.Logger{Logger: testLogger.Logger}
	assert.Equal(t, "", noBuffer.GetOutput())
}

func TestLogLevels(t *testing.T) {
	cases := []struct {
		name string
		log  func(msg interface{}, keyvals ...interface{})
		msg  string
	}{
		{"Debug", logging.Debug, "debug message"},
		{"Info", logging.Info, "info message"},
		{"Warn", logging.Warn, "warning message"},
		{"Error", logging.Error, "error message"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			testLogger := logging.NewTestLogger()
			logging.SetTestLogger(testLogger)
			defer logging.ResetForTest()

			tc.log(tc.msg, "key", "value")
			output := testLogger.GetOutput()
			assert.Contains(t, output, tc.msg)
			assert.Contains(t, output, "key")
			assert.Contains(t, output, "value")
		})
	}
}

func TestWith(t *testing.T) {
	testLogger := logging.NewTestLogger()
	child := testLogger.With("run_id", "abc")
	assert.Equal(t, testLogger.Buffer, child.Buffer)

	child.Info("hello")
	assert.Contains(t, testLogger.GetOutput(), "run_id=abc")
}

func TestBaseLogger(t *testing.T) {
	testLogger := logging.NewTestLogger()
	assert.Same(t, testLogger.Logger, testLogger.BaseLogger())
}

func TestTimeOperation(t *testing.T) {
	testLogger := logging.NewTestLogger()

	err := testLogger.TimeOperation("noop", func() error { return nil })
	require.NoError(t, err)
	assert.Contains(t, testLogger.GetOutput(), "operation completed")

	boom := errors.New("boom")
	err = testLogger.TimeOperation("broken", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, testLogger.GetOutput(), "operation failed")
}

func TestFatal_Subprocess(t *testing.T) {
	if os.Getenv("LOG_FATAL_CHILD") == "1" {
		logging.SetTestLogger(logging.NewTestLogger())
		logging.Fatal("fatal message", "key", "value")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal_Subprocess")
	cmd.Env = append(os.Environ(), "LOG_FATAL_CHILD=1")
	output, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr, "output: %s", string(output))
	assert.NotEqual(t, 0, exitErr.ExitCode())
}
