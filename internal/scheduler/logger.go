package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// pkgLogger is the package-level debug logger used by scheduler internals.
var pkgLogger *DebugLogger
var pkgLoggerMu sync.RWMutex

// SetPackageLogger installs the package-level logger.
func SetPackageLogger(l *DebugLogger) {
	pkgLoggerMu.Lock()
	defer pkgLoggerMu.Unlock()
	pkgLogger = l
}

// debugLog writes a message through the package-level logger.
func debugLog(format string, args ...interface{}) {
	pkgLoggerMu.RLock()
	l := pkgLogger
	pkgLoggerMu.RUnlock()

	if l != nil {
		l.Log(format, args...)
	}
}

// DebugLogger provides file-backed debug logging for scheduler runs.
type DebugLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewDebugLogger creates a logger writing to the given path. An empty
// path returns a no-op logger. Parent directories are created.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &DebugLogger{file: f}
	logger.Log("=== Scheduler Debug Log Started at %s ===", time.Now().Format(time.RFC3339))
	return logger, nil
}

// NewDebugLoggerForWorkspace creates a debug logger under the
// workspace's .arbor/logs directory, or a no-op logger on error.
func NewDebugLoggerForWorkspace(workspace string) *DebugLogger {
	logPath := filepath.Join(workspace, ".arbor", "logs", "scheduler-debug.log")
	logger, err := NewDebugLogger(logPath)
	if err != nil {
		return &DebugLogger{}
	}
	return logger
}

// NopLogger returns a no-op logger for testing or disabled logging.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Log writes a timestamped message. No-op without a file.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.file, "[%s] %s\n", timestamp, msg)
	l.file.Sync()
}

// Close closes the log file. Safe on a no-op logger.
func (l *DebugLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
