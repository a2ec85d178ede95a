package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// LogFormat represents the output format for logs
type LogFormat int

const (
	JSONFormat LogFormat = iota
	TextFormat
	// AutoFormat writes text to terminals and JSON everywhere else
	AutoFormat
)

// Fields carries structured context attached to a log entry
type Fields map[string]interface{}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Component string `json:"component,omitempty"`
	Function  string `json:"function,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Fields    Fields `json:"fields,omitempty"`
	Error     string `json:"error,omitempty"`
}

// sink is shared by a logger and every logger derived from it so that
// level and format changes apply to the whole family.
type sink struct {
	mu     sync.RWMutex
	level  LogLevel
	format LogFormat
	output io.Writer
	exit   func(int)
}

// Logger represents a structured logger
type Logger struct {
	sink      *sink
	component string
	fields    Fields
}

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    LogFormat
	Output    io.Writer
	Component string
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	return &Logger{
		sink: &sink{
			level:  config.Level,
			format: resolveFormat(config.Format, config.Output),
			output: config.Output,
			exit:   os.Exit,
		},
		component: config.Component,
	}
}

// NewDefault creates a logger with default configuration
func NewDefault() *Logger {
	return New(Config{
		Level:  INFO,
		Format: AutoFormat,
		Output: os.Stdout,
	})
}

// resolveFormat turns AutoFormat into a concrete format for the output
func resolveFormat(format LogFormat, output io.Writer) LogFormat {
	if format != AutoFormat {
		return format
	}
	if f, ok := output.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return TextFormat
	}
	return JSONFormat
}

// WithComponent creates a new logger with the specified component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		sink:      l.sink,
		component: component,
		fields:    l.fields,
	}
}

// With creates a new logger that adds the given fields to every entry
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		sink:      l.sink,
		component: l.component,
		fields:    merged,
	}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// SetFormat sets the log output format
func (l *Logger) SetFormat(format LogFormat) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.format = resolveFormat(format, l.sink.output)
}

// Enabled reports whether entries at level are written
func (l *Logger) Enabled(level LogLevel) bool {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()
	return level >= l.sink.level
}

// log is the internal logging method
func (l *Logger) log(level LogLevel, message string, fields Fields, err error) {
	if !l.Enabled(level) {
		return
	}

	// Skip log, the level method and the public caller wrapper
	pc, file, line, ok := runtime.Caller(2)
	var funcName string
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			funcName = fn.Name()
			if lastSlash := strings.LastIndex(funcName, "/"); lastSlash >= 0 {
				funcName = funcName[lastSlash+1:]
			}
		}
	} else {
		file = "unknown"
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Component: l.component,
		Function:  funcName,
		File:      file,
		Line:      line,
		Fields:    l.mergeFields(fields),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	l.sink.mu.Lock()
	var output string
	if l.sink.format == TextFormat {
		output = formatText(entry)
	} else {
		jsonBytes, marshalErr := json.Marshal(entry)
		if marshalErr != nil {
			// Fields may hold values json cannot encode; keep the entry readable
			entry.Fields = stringifyFields(entry.Fields)
			jsonBytes, _ = json.Marshal(entry)
		}
		output = string(jsonBytes) + "\n"
	}
	_, _ = io.WriteString(l.sink.output, output)
	exit := l.sink.exit
	l.sink.mu.Unlock()

	if level == FATAL {
		exit(1)
	}
}

// mergeFields combines logger-level fields with per-call fields
func (l *Logger) mergeFields(fields Fields) Fields {
	if len(l.fields) == 0 {
		return fields
	}
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func stringifyFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

// formatText formats a log entry as human-readable text
func formatText(entry LogEntry) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s", entry.Timestamp, entry.Level))

	if entry.Component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", entry.Component))
	}

	parts = append(parts, entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fieldParts := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("fields={%s}", strings.Join(fieldParts, ", ")))
	}

	if entry.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%s", entry.Error))
	}

	if entry.File != "" && entry.Line > 0 {
		parts = append(parts, fmt.Sprintf("(%s:%d)", entry.File, entry.Line))
	}

	return strings.Join(parts, " ") + "\n"
}

func firstFields(fields []Fields) Fields {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...Fields) {
	l.log(DEBUG, message, firstFields(fields), nil)
}

// Info logs an info message
func (l *Logger) Info(message string, fields ...Fields) {
	l.log(INFO, message, firstFields(fields), nil)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...Fields) {
	l.log(WARN, message, firstFields(fields), nil)
}

// Error logs an error message
func (l *Logger) Error(message string, err error, fields ...Fields) {
	l.log(ERROR, message, firstFields(fields), err)
}

// Fatal logs a fatal message and exits the program
func (l *Logger) Fatal(message string, err error, fields ...Fields) {
	l.log(FATAL, message, firstFields(fields), err)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(format, args...), nil, nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(WARN, fmt.Sprintf(format, args...), nil, nil)
}
