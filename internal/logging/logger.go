// Package logging provides the process-wide leveled logger. Debug output
// is opt-in via --debug or CLAWUP_DEBUG; everything else always prints.
package logging

import (
	"io"
	"log"
	"os"
)

type Logger struct {
	debugEnabled bool
	out          *log.Logger
}

var globalLogger *Logger

// Initialize sets up the global logger. Called once from the CLI root
// before any command runs.
func Initialize(debugMode bool) {
	var output io.Writer = os.Stderr
	if log.Writer() != os.Stderr {
		output = log.Writer()
	}
	globalLogger = &Logger{
		debugEnabled: debugMode,
		out:          log.New(output, "", log.LstdFlags),
	}
}

// Info logs informational messages (always shown)
func Info(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.out.Printf(format, args...)
	}
}

// Debug logs debug messages (only shown when debug mode is enabled)
func Debug(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.debugEnabled {
		globalLogger.out.Printf("DEBUG: "+format, args...)
	}
}

// Warn logs warnings (always shown)
func Warn(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.out.Printf("WARN: "+format, args...)
	}
}

// Error logs error messages (always shown)
func Error(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.out.Printf("ERROR: "+format, args...)
	}
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return globalLogger != nil && globalLogger.debugEnabled
}
