package core

import (
	"context"
	"time"
)

// ScreenCapture abstracts a platform pixel-grabbing backend.
// Implementations live in adapters/capture/ and must be safe to share across
// goroutines (read-only after construction).
type ScreenCapture interface {
	// Displays enumerates the attached displays.
	Displays() ([]DisplayInfo, error)
	// CaptureDisplay grabs a full frame from the display at index.
	CaptureDisplay(index int) (*RawImage, error)
	// CaptureRegion grabs a sub-rectangle of the virtual desktop.
	CaptureRegion(region Rectangle) (*RawImage, error)
	// Name identifies the backend ("kbinani/screenshot", "static", ...).
	Name() string
	// Capabilities describes what the backend supports.
	Capabilities() CaptureCapabilities
}

// CaptureCapabilities describes an individual capture backend.
type CaptureCapabilities struct {
	SupportsCursor       bool
	SupportsRegion       bool
	SupportsMultiDisplay bool
	HardwareAccelerated  bool
	// EstimatedLatency is a rough per-frame cost hint; zero when unknown.
	EstimatedLatency time.Duration
}

// ImageEncoder serialises a RawImage into a compressed frame.
// Implementations live in adapters/encoder/ and adapters/vips/.
type ImageEncoder interface {
	Encode(ctx context.Context, img *RawImage, cfg EncodeConfig) ([]byte, error)
	CanEncode(format Format) bool
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// MetricsCollector receives performance observations from the pipeline.
type MetricsCollector interface {
	RecordEncodeTime(d time.Duration)
	RecordCaptureTime(d time.Duration)
	RecordThroughput(bytes int64)
	RecordFrameDrop()
	RecordError(stage string)
}

// Hook is an optional observer invoked around frame encodes.
type Hook interface {
	BeforeEncode(ctx context.Context, frameID uint64, img *RawImage)
	AfterEncode(ctx context.Context, frameID uint64, encoded int, d time.Duration, err error)
}

// Registry maps output Formats to ImageEncoder implementations.
type Registry interface {
	EncoderFor(format Format) (ImageEncoder, bool)
	RegisterEncoder(format Format, e ImageEncoder)
}
