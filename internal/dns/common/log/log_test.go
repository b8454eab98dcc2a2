package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingLogger struct {
	entries []string
}

func (l *recordingLogger) Info(_ map[string]any, msg string) {
	l.entries = append(l.entries, "INFO:"+msg)
}
func (l *recordingLogger) Error(_ map[string]any, msg string) {
	l.entries = append(l.entries, "ERROR:"+msg)
}
func (l *recordingLogger) Debug(_ map[string]any, msg string) {
	l.entries = append(l.entries, "DEBUG:"+msg)
}
func (l *recordingLogger) Warn(_ map[string]any, msg string) {
	l.entries = append(l.entries, "WARN:"+msg)
}
func (l *recordingLogger) Panic(_ map[string]any, msg string) {}
func (l *recordingLogger) Fatal(_ map[string]any, msg string) {}

func swapGlobal(t *testing.T, l Logger) {
	t.Helper()
	orig := GetLogger()
	SetLogger(l)
	t.Cleanup(func() { SetLogger(orig) })
}

func TestGlobalHelpersDelegate(t *testing.T) {
	rec := &recordingLogger{}
	swapGlobal(t, rec)

	Info(nil, "info msg")
	Error(nil, "error msg")
	Debug(nil, "debug msg")
	Warn(nil, "warn msg")

	assert.Equal(t, []string{"INFO:info msg", "ERROR:error msg", "DEBUG:debug msg", "WARN:warn msg"}, rec.entries)
	assert.NoError(t, Sync())
}

func TestZapLogger_FieldsAreOrdered(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	l.Info(map[string]any{"zeta": 1, "alpha": "a", "mid": true}, "hello")
	l.Debug(nil, "bare")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].Message)
	require.Len(t, entries[0].Context, 3)
	assert.Equal(t, "alpha", entries[0].Context[0].Key)
	assert.Equal(t, "mid", entries[0].Context[1].Key)
	assert.Equal(t, "zeta", entries[0].Context[2].Key)
	assert.Empty(t, entries[1].Context)
}

func TestZapLogger_Panics(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))
	assert.Panics(t, func() { l.Panic(nil, "boom") })
}

func TestConfigure(t *testing.T) {
	swapGlobal(t, NewNoopLogger())

	require.NoError(t, Configure("dev", "debug"))
	require.NoError(t, Configure("prod", "INFO"))
	assert.Error(t, Configure("dev", "notalevel"))
}

func TestNoopLogger_AllLevels(t *testing.T) {
	swapGlobal(t, NewNoopLogger())

	Debug(nil, "debug message")
	Info(nil, "info message")
	Warn(nil, "warn message")
	Error(nil, "error message")
	Panic(nil, "panic message")
	Fatal(nil, "fatal message")
	assert.NoError(t, Sync())
}
