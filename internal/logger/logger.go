// Package logger provides levelled logging for the bridge.
// Console output goes to stderr: debug and info lines only in verbose
// mode, warnings and errors always. When a log file is configured every
// line except debug (unless verbose) is also appended to it, with
// rotation handled by lumberjack.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	file    io.WriteCloser
	now     = time.Now
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the console writer.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetFile sends a timestamped copy of log lines to a rotating file.
// An empty path disables the file sink.
func SetFile(path string, maxSizeMB, maxBackups int) {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	if path == "" {
		return
	}
	file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
}

// setFileWriter installs an arbitrary file sink. Used in tests.
func setFileWriter(w io.WriteCloser) {
	mu.Lock()
	defer mu.Unlock()
	file = w
}

// Close flushes and closes the file sink, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		write(true, "DEBUG", format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message. It reaches the console only in
// verbose mode but is always written to the log file.
func Info(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	write(verbose, "INFO", format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	write(true, "WARN", format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	write(true, "ERROR", format, args...)
}

// write emits one line (caller must hold lock).
func write(console bool, level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if console {
		fmt.Fprintf(output, "[%s] %s\n", level, msg)
	}
	if file != nil {
		fmt.Fprintf(file, "%s [%s] %s\n", now().Format(time.RFC3339), level, msg)
	}
}
