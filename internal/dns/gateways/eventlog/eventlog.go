// Package eventlog writes the relay's audit trail: one plain line per event,
// prefixed with a local timestamp, appended to a file.
package eventlog

import (
	"fmt"
	"io"
	"net/netip"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "dns_svr.log"

// TimestampLayout renders times as 2024-05-01T13:45:10+1000.
const TimestampLayout = "2006-01-02T15:04:05-0700"

// Sink records relay and cache events. The zero value is not usable; use
// Open, New or NewNop.
type Sink struct {
	logger *zap.Logger
	closer io.Closer
}

// Open appends to the file at path, creating it if needed.
func Open(path string, clk clock.Clock) (*Sink, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log %s: %w", path, err)
	}
	s := New(zapcore.AddSync(f), clk)
	s.closer = f
	return s, nil
}

// New writes events to w, stamping them with clk.
func New(w zapcore.WriteSyncer, clk clock.Clock) *Sink {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "msg",
		EncodeTime:       encodeLocal,
		ConsoleSeparator: " ",
		LineEnding:       zapcore.DefaultLineEnding,
	})
	core := zapcore.NewCore(enc, w, zapcore.InfoLevel)
	return &Sink{logger: zap.New(core, zap.WithClock(zapClock{clk}))}
}

// NewNop returns a Sink that discards every event.
func NewNop() *Sink {
	return &Sink{logger: zap.NewNop()}
}

func encodeLocal(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(FormatTime(t))
}

// FormatTime renders t in local time using TimestampLayout.
func FormatTime(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

func (s *Sink) Requested(name string) {
	s.logger.Info("requested " + name)
}

func (s *Sink) Resolved(name string, addr netip.Addr) {
	s.logger.Info(name + " is at " + addr.String())
}

func (s *Sink) CacheHit(name string, expiry time.Time) {
	s.logger.Info(name + " expires at " + FormatTime(expiry))
}

func (s *Sink) Replaced(evicted, inserted string) {
	s.logger.Info("replacing " + evicted + " by " + inserted)
}

func (s *Sink) Unimplemented() {
	s.logger.Info("unimplemented request")
}

// Denied records a refused name. The matching rule is not part of the line.
func (s *Sink) Denied(name string, _ string) {
	s.logger.Info("denied " + name)
}

// Close flushes and, for file sinks, closes the file.
func (s *Sink) Close() error {
	_ = s.logger.Sync()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// zapClock lets the relay's clock drive zap's entry timestamps.
type zapClock struct {
	clock.Clock
}

func (zapClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}
