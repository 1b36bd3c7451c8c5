package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents a log level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[Level]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

// String returns the upper-case name of the level
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel parses a case-insensitive level name
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("invalid log level: %s", s)
}

// Fields is a map of structured log fields
type Fields map[string]interface{}

// Entry is a single serialized log line
type Entry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         string                 `json:"level"`
	Component     string                 `json:"component,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Message       string                 `json:"message"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

// Logger writes structured entries to an output.
type Logger struct {
	mu               sync.RWMutex
	level            Level
	format           string // json or text
	out              io.Writer
	componentLevels  map[string]Level
	sanitizePatterns []*regexp.Regexp
}

// DefaultSanitizePatterns match field names whose values must never be
// written in clear text.
var DefaultSanitizePatterns = []string{`(?i)api_?key`, `(?i)password`, `(?i)secret`}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// New creates a logger. Sensitive field names are always redacted.
func New(level Level, format string, out io.Writer) *Logger {
	l := &Logger{
		level:           level,
		format:          format,
		out:             out,
		componentLevels: make(map[string]Level),
	}
	_ = l.SetSanitizePatterns(nil)
	return l
}

// Init replaces the global logger
func Init(level Level, format string, out io.Writer) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = New(level, format, out)
}

// Get returns the global logger. Before Init is called it returns a
// logger that discards everything, so library code can log unconditionally.
func Get() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = New(ErrorLevel, "json", io.Discard)
	}
	return globalLogger
}

// SetLevel changes the default level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetComponentLevel overrides the level for one component
func (l *Logger) SetComponentLevel(component string, level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.componentLevels[component] = level
}

// SetSanitizePatterns replaces the extra redaction patterns. The defaults
// in DefaultSanitizePatterns always stay active.
func (l *Logger) SetSanitizePatterns(patterns []string) error {
	all := append(append([]string{}, DefaultSanitizePatterns...), patterns...)
	compiled := make([]*regexp.Regexp, 0, len(all))
	for _, p := range all {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("invalid sanitize pattern %s: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sanitizePatterns = compiled
	return nil
}

func (l *Logger) enabled(level Level, component string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if cl, ok := l.componentLevels[component]; ok {
		return level >= cl
	}
	return level >= l.level
}

func (l *Logger) redact(fields Fields) Fields {
	if len(fields) == 0 {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
		for _, re := range l.sanitizePatterns {
			if !re.MatchString(k) {
				continue
			}
			if s, ok := v.(string); ok && len(s) > 4 {
				out[k] = "***" + s[len(s)-4:]
			} else {
				out[k] = "***"
			}
			break
		}
	}
	return out
}

func (l *Logger) emit(level Level, component, correlationID, message string, fields []Fields) {
	if !l.enabled(level, component) {
		return
	}

	entry := Entry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Level:         level.String(),
		Component:     component,
		CorrelationID: correlationID,
		Message:       message,
		Fields:        l.redact(mergeFields(fields...)),
	}

	var line []byte
	if l.format == "text" {
		line = []byte(formatText(entry))
	} else {
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
			return
		}
		line = append(data, '\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}

func formatText(e Entry) string {
	var b strings.Builder
	b.WriteString(e.Timestamp)
	b.WriteString(" ")
	b.WriteString(e.Level)
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	if e.CorrelationID != "" {
		fmt.Fprintf(&b, " [%s]", e.CorrelationID)
	}
	b.WriteString(" ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	b.WriteString("\n")
	return b.String()
}

// Debug logs without a component
func (l *Logger) Debug(message string, fields ...Fields) { l.emit(DebugLevel, "", "", message, fields) }

// Info logs without a component
func (l *Logger) Info(message string, fields ...Fields) { l.emit(InfoLevel, "", "", message, fields) }

// Warn logs without a component
func (l *Logger) Warn(message string, fields ...Fields) { l.emit(WarnLevel, "", "", message, fields) }

// Error logs without a component
func (l *Logger) Error(message string, fields ...Fields) { l.emit(ErrorLevel, "", "", message, fields) }

// WithComponent returns a logger that tags every entry with component.
func (l *Logger) WithComponent(component string) *ComponentLogger {
	return &ComponentLogger{logger: l, component: component}
}

// ComponentLogger tags entries with a component and optionally a
// correlation ID.
type ComponentLogger struct {
	logger        *Logger
	component     string
	correlationID string
}

// WithCorrelationID returns a copy carrying the correlation ID.
func (cl *ComponentLogger) WithCorrelationID(correlationID string) *ComponentLogger {
	return &ComponentLogger{logger: cl.logger, component: cl.component, correlationID: correlationID}
}

// WithContext returns a copy carrying the correlation ID stored in ctx.
func (cl *ComponentLogger) WithContext(ctx context.Context) *ComponentLogger {
	return cl.WithCorrelationID(GetCorrelationID(ctx))
}

func (cl *ComponentLogger) Debug(message string, fields ...Fields) {
	cl.logger.emit(DebugLevel, cl.component, cl.correlationID, message, fields)
}

func (cl *ComponentLogger) Info(message string, fields ...Fields) {
	cl.logger.emit(InfoLevel, cl.component, cl.correlationID, message, fields)
}

func (cl *ComponentLogger) Warn(message string, fields ...Fields) {
	cl.logger.emit(WarnLevel, cl.component, cl.correlationID, message, fields)
}

func (cl *ComponentLogger) Error(message string, fields ...Fields) {
	cl.logger.emit(ErrorLevel, cl.component, cl.correlationID, message, fields)
}

func mergeFields(fields ...Fields) Fields {
	switch len(fields) {
	case 0:
		return nil
	case 1:
		return fields[0]
	}
	out := make(Fields)
	for _, f := range fields {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID stores a correlation ID in ctx
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// GetCorrelationID returns the correlation ID stored in ctx, if any
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns a component logger of the global logger carrying
// the correlation ID from ctx
func FromContext(ctx context.Context, component string) *ComponentLogger {
	return Get().WithComponent(component).WithContext(ctx)
}
