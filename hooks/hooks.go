// Package hooks provides production-ready Hook and Logger implementations.
package hooks

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skryldev/screen-streamer/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

// NewDefaultLogger creates a SlogLogger over slog.Default at the given level.
func NewDefaultLogger(level string) *SlogLogger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})
	return &SlogLogger{log: slog.New(h)}
}

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, toAttrs(fields)...)
}

func toAttrs(fields []interface{}) []any { return fields }

// NopLogger discards everything; the zero value is ready to use.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs around each frame encode.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeEncode(_ context.Context, frameID uint64, img *core.RawImage) {
	h.logger.Debug("frame.encode.start",
		"frame", frameID,
		"width", img.Width,
		"height", img.Height,
		"format", img.Format.String(),
	)
}

func (h *LoggingHook) AfterEncode(_ context.Context, frameID uint64, encoded int, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("frame.encode.error",
			"frame", frameID,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("frame.encode.done",
		"frame", frameID,
		"duration_ms", d.Milliseconds(),
		"bytes", encoded,
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	encodeNs  int64
	encodes   int64
	captureNs int64
	captures  int64

	stageErrors map[string]int64

	throughputB int64
	frameDrops  int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{stageErrors: make(map[string]int64)}
}

func (m *InMemoryMetrics) RecordEncodeTime(d time.Duration) {
	atomic.AddInt64(&m.encodeNs, int64(d))
	atomic.AddInt64(&m.encodes, 1)
}

func (m *InMemoryMetrics) RecordCaptureTime(d time.Duration) {
	atomic.AddInt64(&m.captureNs, int64(d))
	atomic.AddInt64(&m.captures, 1)
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	atomic.AddInt64(&m.throughputB, bytes)
}

func (m *InMemoryMetrics) RecordFrameDrop() {
	atomic.AddInt64(&m.frameDrops, 1)
}

func (m *InMemoryMetrics) RecordError(stage string) {
	m.mu.Lock()
	m.stageErrors[stage]++
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		Encodes:       atomic.LoadInt64(&m.encodes),
		Captures:      atomic.LoadInt64(&m.captures),
		TotalEncode:   time.Duration(atomic.LoadInt64(&m.encodeNs)),
		TotalCapture:  time.Duration(atomic.LoadInt64(&m.captureNs)),
		ThroughputB:   atomic.LoadInt64(&m.throughputB),
		FrameDrops:    atomic.LoadInt64(&m.frameDrops),
		StageErrors:   make(map[string]int64, len(m.stageErrors)),
	}
	for k, v := range m.stageErrors {
		snap.StageErrors[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	Encodes      int64
	Captures     int64
	TotalEncode  time.Duration
	TotalCapture time.Duration
	ThroughputB  int64
	FrameDrops   int64
	StageErrors  map[string]int64
}

// AvgEncode returns the mean encode duration.
func (s MetricsSnapshot) AvgEncode() time.Duration {
	if s.Encodes == 0 {
		return 0
	}
	return s.TotalEncode / time.Duration(s.Encodes)
}

// AvgCapture returns the mean capture duration.
func (s MetricsSnapshot) AvgCapture() time.Duration {
	if s.Captures == 0 {
		return 0
	}
	return s.TotalCapture / time.Duration(s.Captures)
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds encode events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeEncode(_ context.Context, _ uint64, _ *core.RawImage) {}

func (h *MetricsHook) AfterEncode(_ context.Context, _ uint64, encoded int, d time.Duration, err error) {
	h.collector.RecordEncodeTime(d)
	if err != nil {
		h.collector.RecordError("encode")
		return
	}
	h.collector.RecordThroughput(int64(encoded))
}
