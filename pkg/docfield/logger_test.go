package docfield

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&buf, level)
	l.out.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return l, &buf
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  []string
	}{
		{LogDebug, []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{LogWarn, []string{"WARN", "ERROR"}},
		{LogOff, nil},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			l, buf := fixedLogger(tt.level)
			l.Debug("d")
			l.Info("i")
			l.Warn("w")
			l.Error("e")

			var got []string
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				if line == "" {
					continue
				}
				start := strings.Index(line, "[")
				end := strings.Index(line, "]")
				got = append(got, line[start+1:end])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerFields(t *testing.T) {
	l, buf := fixedLogger(LogInfo)
	child := l.WithField("field", "MERGEFIELD").WithFields(Fields{"name": "First Name", "depth": 2})
	child.Warn("value %s", "missing")

	assert.Equal(t, "2024-03-01 09:30:00 [WARN] value missing depth=2 field=MERGEFIELD name=\"First Name\"\n", buf.String())

	// level changes reach derived loggers
	l.SetLevel(LogError)
	buf.Reset()
	child.Warn("dropped")
	assert.Empty(t, buf.String())
}

func TestDebugField(t *testing.T) {
	l, buf := fixedLogger(LogInfo)
	l.DebugField("REF x", Resolved("1"))
	assert.Empty(t, buf.String())

	l.SetLevel(LogDebug)
	l.DebugField("REF x", Resolved("1"))
	assert.Contains(t, buf.String(), `field evaluated: resolved("1") instruction="REF x"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogDebug,
		" INFO ":  LogInfo,
		"warning": LogWarn,
		"error":   LogError,
		"off":     LogOff,
		"loud":    LogInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}
