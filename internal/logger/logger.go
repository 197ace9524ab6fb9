// Package logger provides levelled logging for portalsync.
// Debug, Info and Warn are printed only in verbose mode (--verbose) and
// help users follow refresh windows, gateway calls and notification
// decisions. Error is always printed because refresh failures are only
// surfaced through logs and refresh reports.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
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

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[DEBUG] "+format+"\n", args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[INFO] "+format+"\n", args...)
	}
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "[ERROR] "+format+"\n", args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[WARN] "+format+"\n", args...)
	}
}

// Scoped prefixes every message with a component name.
type Scoped struct {
	prefix string
}

// For returns a logger whose messages start with "component: ".
func For(component string) Scoped {
	return Scoped{prefix: component + ": "}
}

// Debug prints a scoped debug message if verbose mode is enabled.
func (s Scoped) Debug(format string, args ...any) {
	Debug(s.prefix+format, args...)
}

// Info prints a scoped informational message if verbose mode is enabled.
func (s Scoped) Info(format string, args ...any) {
	Info(s.prefix+format, args...)
}

// Warn prints a scoped warning if verbose mode is enabled.
func (s Scoped) Warn(format string, args ...any) {
	Warn(s.prefix+format, args...)
}

// Error prints a scoped error regardless of verbose mode.
func (s Scoped) Error(format string, args ...any) {
	Error(s.prefix+format, args...)
}
