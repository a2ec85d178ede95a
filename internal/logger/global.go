package logger

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

var globalLogger atomic.Pointer[Logger]

func init() {
	globalLogger.Store(NewDefault())

	// LOG_LEVEL and LOG_FORMAT apply before config is loaded; Configure
	// re-applies them once it is.
	_ = Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Configure sets level and format of the global logger. Empty values are ignored.
func Configure(level, format string) error {
	l := globalLogger.Load()
	if level != "" {
		parsed, err := ParseLevel(level)
		if err != nil {
			return err
		}
		l.SetLevel(parsed)
	}
	if format != "" {
		parsed, err := ParseFormat(format)
		if err != nil {
			return err
		}
		l.SetFormat(parsed)
	}
	return nil
}

// ParseLevel parses a log level string
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", level)
	}
}

// ParseFormat parses a log format string
func ParseFormat(format string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return JSONFormat, nil
	case "text":
		return TextFormat, nil
	case "auto":
		return AutoFormat, nil
	default:
		return AutoFormat, fmt.Errorf("unknown log format %q", format)
	}
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	return globalLogger.Load()
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalLogger.Store(logger)
}

// Component returns a component logger derived from the global logger
func Component(name string) *Logger {
	return globalLogger.Load().WithComponent(name)
}

// Debug logs a debug message using the global logger
func Debug(message string, fields ...Fields) {
	globalLogger.Load().log(DEBUG, message, firstFields(fields), nil)
}

// Info logs an info message using the global logger
func Info(message string, fields ...Fields) {
	globalLogger.Load().log(INFO, message, firstFields(fields), nil)
}

// Warn logs a warning message using the global logger
func Warn(message string, fields ...Fields) {
	globalLogger.Load().log(WARN, message, firstFields(fields), nil)
}

// Error logs an error message using the global logger
func Error(message string, err error, fields ...Fields) {
	globalLogger.Load().log(ERROR, message, firstFields(fields), err)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(message string, err error, fields ...Fields) {
	globalLogger.Load().log(FATAL, message, firstFields(fields), err)
}

// Infof logs a formatted info message using the global logger
func Infof(format string, args ...interface{}) {
	globalLogger.Load().log(INFO, fmt.Sprintf(format, args...), nil, nil)
}
