package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

var (
	verbose     atomic.Bool
	disableLogs atomic.Bool
	forceStdErr atomic.Bool

	writeMu sync.Mutex
	stdout  io.Writer = os.Stdout
	stderr  io.Writer = os.Stderr

	logPrefixes = map[int]string{
		levelDebug: "\033[37m[DBG]\033[0m", // White
		levelInfo:  "\033[36m[INF]\033[0m", // Cyan
		levelWarn:  "\033[33m[WRN]\033[0m", // Yellow
		levelError: "\033[31m[ERR]\033[0m", // Red
	}
)

// SetVerbose sets the logging verbosity. If true, all log levels are displayed.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// IsVerbose returns true if verbose logging is enabled.
func IsVerbose() bool {
	return verbose.Load()
}

// DisableLogs disables all logging.
func DisableLogs() {
	disableLogs.Store(true)
}

// EnableLogs re-enables logging after DisableLogs.
func EnableLogs() {
	disableLogs.Store(false)
}

// IsDisabled returns true if logging is disabled.
func IsDisabled() bool {
	return disableLogs.Load()
}

// SetForceStdErr sends every level to stderr when enabled.
func SetForceStdErr(v bool) {
	forceStdErr.Store(v)
}

// SetOutput replaces the writers used for regular and error output.
// Passing nil keeps the current writer.
func SetOutput(out, errOut io.Writer) {
	writeMu.Lock()
	defer writeMu.Unlock()
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

// Debugf logs a debug message if verbose is true.
func Debugf(format string, args ...interface{}) {
	if verbose.Load() {
		logMessage(levelDebug, "", format, args...)
	}
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	logMessage(levelInfo, "", format, args...)
}

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) {
	logMessage(levelWarn, "", format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	logMessage(levelError, "", format, args...)
}

// Fatalf logs an error message and exits the program.
func Fatalf(format string, args ...interface{}) {
	logMessage(levelError, "", format, args...)
	os.Exit(1)
}

// Logger is a component logger. Every line it writes carries its prefix.
type Logger struct {
	prefix string
}

// New creates a component logger with the given prefix.
func New(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

// Prefix returns the component prefix.
func (l *Logger) Prefix() string {
	return l.prefix
}

// Debugf logs a debug message if verbose is true.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if verbose.Load() {
		logMessage(levelDebug, l.prefix, format, args...)
	}
}

// Infof logs an info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	logMessage(levelInfo, l.prefix, format, args...)
}

// Warnf logs a warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	logMessage(levelWarn, l.prefix, format, args...)
}

// Errorf logs an error message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	logMessage(levelError, l.prefix, format, args...)
}

// logMessage formats and writes a log message with the specified log level.
func logMessage(level int, prefix string, format string, args ...interface{}) {
	if disableLogs.Load() {
		return
	}
	message := fmt.Sprintf(format, args...)
	output := logPrefixes[level] + " "
	if prefix != "" {
		output += "[" + prefix + "] "
	}
	output += message + "\n"

	writeMu.Lock()
	defer writeMu.Unlock()

	// Write the output to the appropriate stream
	if forceStdErr.Load() || level == levelError {
		_, _ = io.WriteString(stderr, output)
	} else {
		_, _ = io.WriteString(stdout, output)
	}
}
