package dsrf

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the diagnostics sink shared by the schema compiler and the block
// reader. It counts entries per severity, remembers the first error and, when
// fail-fast is enabled, hands errors back to the caller for propagation
// instead of continuing best-effort.
type Logger struct {
	zl       *zap.SugaredLogger
	failFast bool
	logPath  string

	mu         sync.Mutex
	infoCount  int
	warnCount  int
	errorCount int
	firstError error
}

// NewLogger creates a Logger writing to the given log file. With failFast
// set, Error returns the logged error so call sites can abort immediately.
func NewLogger(logFilePath string, failFast bool) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{logFilePath}
	cfg.ErrorOutputPaths = []string{logFilePath}
	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("dsrf: open log file %s: %w", logFilePath, err)
	}
	return &Logger{zl: zl.Sugar(), failFast: failFast, logPath: logFilePath}, nil
}

// NewNopLogger returns a Logger that counts but discards output. Used in
// tests and by embedders that only care about Finalize.
func NewNopLogger(failFast bool) *Logger {
	return &Logger{zl: zap.NewNop().Sugar(), failFast: failFast}
}

// LogPath returns the path of the log file, if any.
func (l *Logger) LogPath() string { return l.logPath }

// Infof logs an informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.mu.Lock()
	l.infoCount++
	l.mu.Unlock()
	l.zl.Infof(format, args...)
}

// Warningf logs a non-fatal warning.
func (l *Logger) Warningf(format string, args ...any) {
	l.mu.Lock()
	l.warnCount++
	l.mu.Unlock()
	l.zl.Warnf(format, args...)
}

// Error logs a validation error. The returned error is nil unless fail-fast
// is enabled, in which case the caller is expected to propagate it.
func (l *Logger) Error(err error) error {
	l.mu.Lock()
	l.errorCount++
	if l.firstError == nil {
		l.firstError = err
	}
	l.mu.Unlock()
	l.zl.Error(err.Error())
	if l.failFast {
		return err
	}
	return nil
}

// Counts returns the number of errors and warnings logged so far.
func (l *Logger) Counts() (errors, warnings int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errorCount, l.warnCount
}

// FirstError returns the first error logged, if any.
func (l *Logger) FirstError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.firstError
}

// Finalize flushes the underlying logger and returns a
// ReportValidationFailure if any error was logged during the run.
func (l *Logger) Finalize() error {
	_ = l.zl.Sync()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.errorCount == 0 {
		return nil
	}
	msg := fmt.Sprintf(
		"Found %d fatal error(s) and %d warnings, please check log file at %q for details.\n",
		l.errorCount, l.warnCount, l.logPath)
	if l.firstError != nil {
		msg += fmt.Sprintf("First error: %s\n", l.firstError)
	}
	return &ReportValidationFailure{Detail: msg}
}
