package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	constants "sysmon/config"
)

// Level represents log level
type Level string

const (
	LevelDebug   Level = "DEBUG"
	LevelInfo    Level = "INFO"
	LevelSuccess Level = "SUCCESS"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelSuccess: 1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarning
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes timestamped, leveled lines to a file or any io.Writer
type Logger struct {
	out     io.Writer
	logFile *os.File
	min     Level
	mu      sync.Mutex
}

// New creates a logger appending to filePath. An empty path or an
// unwritable file falls back to stderr.
func New(filePath string) *Logger {
	l := &Logger{out: os.Stderr, min: LevelInfo}
	if filePath != "" {
		logFile, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			l.logFile = logFile
			l.out = logFile
		}
	}
	return l
}

// NewWithWriter creates a logger on top of an arbitrary writer
func NewWithWriter(w io.Writer, min Level) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{out: w, min: min}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewWithWriter(io.Discard, LevelError)
}

// Default returns a logger with default settings
func Default() *Logger {
	return New(constants.LOG_FILE)
}

// SetLevel changes the minimum level that gets written
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.min = level
	l.mu.Unlock()
}

func (l *Logger) write(level Level, message string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if levelRank[level] < levelRank[l.min] {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Fprintf(l.out, "[%s] %s: %s\n", timestamp, level, formattedMsg)
}

// Close closes the log file
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
		l.out = io.Discard
	}
}

// Info logs an informational message
func (l *Logger) Info(message string, args ...interface{}) {
	l.write(LevelInfo, message, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(message string, args ...interface{}) {
	l.write(LevelWarning, message, args...)
}

// Error logs an error message
func (l *Logger) Error(message string, args ...interface{}) {
	l.write(LevelError, message, args...)
}

// Success logs a success message
func (l *Logger) Success(message string, args ...interface{}) {
	l.write(LevelSuccess, message, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, args ...interface{}) {
	l.write(LevelDebug, message, args...)
}

// Global logger instance for convenience
var (
	defaultLogger = NewWithWriter(os.Stderr, LevelWarning)
	defaultMu     sync.RWMutex
)

// SetDefault replaces the logger used by the package-level helpers
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

func std() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Info logs an informational message using the default logger
func Info(message string, args ...interface{}) {
	std().Info(message, args...)
}

// Warning logs a warning message using the default logger
func Warning(message string, args ...interface{}) {
	std().Warning(message, args...)
}

// Error logs an error message using the default logger
func Error(message string, args ...interface{}) {
	std().Error(message, args...)
}

// Success logs a success message using the default logger
func Success(message string, args ...interface{}) {
	std().Success(message, args...)
}

// Debug logs a debug message using the default logger
func Debug(message string, args ...interface{}) {
	std().Debug(message, args...)
}
