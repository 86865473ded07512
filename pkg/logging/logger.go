package logging

import (
	"bytes"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is a wrapper around the log.Logger from the charmbracelet/log package.
type Logger struct {
	*log.Logger
	// Buffer holds captured output for loggers built by NewTestLogger.
	Buffer *bytes.Buffer
}

var (
	logger *Logger
	once   sync.Once
)

// CreateLogger sets up the logger. It must be called before using the logger.
func CreateLogger() {
	once.Do(func() {
		baseLogger := log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "runtests",
		})

		// DEBUG=1 turns on caller reporting and timestamps.
		if os.Getenv("DEBUG") == "1" {
			baseLogger = log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				Prefix:          "runtests",
			})

			baseLogger.SetLevel(log.DebugLevel)
		} else {
			baseLogger.SetLevel(log.InfoLevel)
		}

		logger = &Logger{Logger: baseLogger}
	})
}

// NewTestLogger returns a debug-level logger that writes into an in-memory buffer.
func NewTestLogger() *Logger {
	buf := new(bytes.Buffer)
	baseLogger := log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})
	return &Logger{Logger: baseLogger, Buffer: buf}
}

// ResetForTest drops the global logger so the next call recreates it.
func ResetForTest() {
	logger = nil
	once = sync.Once{}
}

// SetTestLogger replaces the global logger, typically with one from NewTestLogger.
func SetTestLogger(l *Logger) {
	logger = l
}

// Debug logs debug messages if debug logging is enabled.
func Debug(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Debug(msg, keyvals...)
}

// Info logs informational messages.
func Info(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Info(msg, keyvals...)
}

// Warn logs warning messages.
func Warn(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Warn(msg, keyvals...)
}

// Error logs error messages.
func Error(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Error(msg, keyvals...)
}

// Fatal logs a fatal message and exits the program.
func Fatal(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Fatal(msg, keyvals...)
}

// GetLogger returns the Logger instance.
func GetLogger() *Logger {
	ensureInitialized()
	return logger
}

// With returns a child logger carrying keyvals on every record.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...), Buffer: l.Buffer}
}

// BaseLogger returns the underlying *log.Logger from the custom Logger.
func (l *Logger) BaseLogger() *log.Logger {
	return l.Logger
}

// GetOutput returns everything captured so far by a test logger.
func (l *Logger) GetOutput() string {
	if l.Buffer == nil {
		return ""
	}
	return l.Buffer.String()
}

// TimeOperation runs fn and logs how long it took.
func (l *Logger) TimeOperation(operation string, fn func() error) error {
	start := time.Now()
	l.Debug("starting operation", "operation", operation)

	err := fn()

	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		l.Error("operation failed", "operation", operation, "duration", elapsed, "error", err)
	} else {
		l.Info("operation completed", "operation", operation, "duration", elapsed)
	}

	return err
}

// ensureInitialized ensures the logger is initialized before use.
func ensureInitialized() {
	if logger == nil {
		CreateLogger()
	}
}
