package docfield

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
	LogOff
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "DEBUG"
	case LogInfo:
		return "INFO"
	case LogWarn:
		return "WARN"
	case LogError:
		return "ERROR"
	case LogOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel maps a level name to a LogLevel; unknown names yield LogInfo.
func ParseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return LogDebug
	case "info":
		return LogInfo
	case "warn", "warning":
		return LogWarn
	case "error":
		return LogError
	case "off":
		return LogOff
	default:
		return LogInfo
	}
}

type Fields map[string]interface{}

// Logger is a leveled printf logger. Loggers derived with WithField share
// the writer, level and lock of their parent.
type Logger struct {
	out    *logOutput
	fields Fields
}

type logOutput struct {
	mu     sync.Mutex
	writer io.Writer
	level  LogLevel
	now    func() time.Time
}

var (
	globalLogger     *Logger
	globalLoggerOnce sync.Once
	globalLoggerMu   sync.RWMutex
)

func NewLogger(w io.Writer, level LogLevel) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{out: &logOutput{writer: w, level: level, now: time.Now}}
}

// NopLogger returns a logger that drops everything.
func NopLogger() *Logger {
	return NewLogger(io.Discard, LogOff)
}

// SetLevel changes the level of l and every logger derived from it.
func (l *Logger) SetLevel(level LogLevel) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.level = level
}

func (l *Logger) Enabled(level LogLevel) bool {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return level >= l.out.level && l.out.level != LogOff
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{out: l.out, fields: merged}
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	var sb strings.Builder
	sb.WriteString(l.out.now().Format("2006-01-02 15:04:05"))
	sb.WriteString(" [" + level.String() + "] ")
	fmt.Fprintf(&sb, format, args...)

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(" " + k + "=" + logValue(l.fields[k]))
	}
	sb.WriteByte('\n')

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	io.WriteString(l.out.writer, sb.String())
}

// logValue quotes values that would break a key=value line.
func logValue(v interface{}) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LogWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogError, format, args...)
}

// DebugField logs an instruction and its evaluation outcome.
func (l *Logger) DebugField(instruction string, result FieldEvalResult) {
	if !l.Enabled(LogDebug) {
		return
	}
	l.WithField("instruction", instruction).Debug("field evaluated: %s", result)
}

// GetLogger returns the logger used by contexts created without WithLogger.
// It writes to stderr at the level of the global configuration.
func GetLogger() *Logger {
	globalLoggerOnce.Do(func() {
		globalLoggerMu.Lock()
		defer globalLoggerMu.Unlock()
		if globalLogger == nil {
			globalLogger = NewLogger(os.Stderr, ParseLogLevel(GetGlobalConfig().LogLevel))
		}
	})
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the global logger
func SetLogger(logger *Logger) {
	GetLogger()
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = logger
}

// UpdateLoggerFromConfig updates the global logger based on the current global configuration
func UpdateLoggerFromConfig() {
	GetLogger().SetLevel(ParseLogLevel(GetGlobalConfig().LogLevel))
}
