// Package zerocopy implements a best-effort shortcut around the normal
// capture path.  Platform-specific code maps capture memory directly to
// avoid one intermediate full-frame copy; every failure falls back to the
// capturer's own path, so callers never see an error the capturer itself
// would not produce.
package zerocopy

import (
	"sync"
	"time"

	"github.com/Skryldev/screen-streamer/core"
	"github.com/Skryldev/screen-streamer/memorypool"
	"github.com/Skryldev/screen-streamer/pixel"
)

// Stats counts zero-copy outcomes.  Savings are instrumentation estimates
// (one avoided copy of width*height*4 bytes per hit), not measurements.
type Stats struct {
	ZeroCopyCaptures    uint64
	TraditionalCaptures uint64
	MemorySavedBytes    uint64
	TimeSaved           time.Duration
	FailedAttempts      uint64
}

// EfficiencyPercent returns zeroCopy/(zeroCopy+traditional) as a percentage.
// A failed attempt inflates both FailedAttempts and TraditionalCaptures, so
// this is an approximation of the success ratio, not an exact one.
func (s Stats) EfficiencyPercent() float64 {
	total := s.ZeroCopyCaptures + s.TraditionalCaptures
	if total == 0 {
		return 0
	}
	return float64(s.ZeroCopyCaptures) / float64(total) * 100
}

// AvgMemorySaved returns the estimated bytes saved per zero-copy capture.
func (s Stats) AvgMemorySaved() int {
	if s.ZeroCopyCaptures == 0 {
		return 0
	}
	return int(s.MemorySavedBytes / s.ZeroCopyCaptures)
}

// platformCapturer is the per-OS mapped-capture path.  Implementations live
// in the platform_*.go files; tests inject fakes.
type platformCapturer interface {
	capture(displayIndex int) (*core.RawImage, error)
}

// Optimizer wraps a ScreenCapture with the platform shortcut.
// Safe for concurrent use.
type Optimizer struct {
	mu       sync.Mutex
	stats    Stats
	enabled  bool
	platform platformCapturer
}

// Supported reports whether this build has a platform zero-copy path.
func Supported() bool { return supported }

// New creates an Optimizer.  The pool supplies destination buffers for the
// platform path and the converter fixes up channel order; both are shared
// with the rest of the pipeline.
func New(pool *memorypool.Pool, conv *pixel.Converter) *Optimizer {
	return &Optimizer{
		enabled:  supported,
		platform: newPlatformCapturer(pool, conv),
	}
}

// SetEnabled toggles the shortcut at runtime.  Disabling never breaks
// capture; calls simply delegate to the capturer.
func (o *Optimizer) SetEnabled(enabled bool) {
	o.mu.Lock()
	o.enabled = enabled
	o.mu.Unlock()
}

// IsEnabled reports whether the shortcut will be attempted.
func (o *Optimizer) IsEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enabled && supported
}

// CaptureZeroCopy captures a frame, preferring the platform shortcut and
// falling back to capturer.CaptureDisplay.  It succeeds whenever the
// underlying capturer would.
func (o *Optimizer) CaptureZeroCopy(capturer core.ScreenCapture, displayIndex int) (*core.RawImage, error) {
	if !o.IsEnabled() {
		o.mu.Lock()
		o.stats.TraditionalCaptures++
		o.mu.Unlock()
		return capturer.CaptureDisplay(displayIndex)
	}

	start := time.Now()
	img, err := o.platform.capture(displayIndex)
	if err == nil {
		elapsed := time.Since(start)
		o.mu.Lock()
		o.stats.ZeroCopyCaptures++
		o.stats.TimeSaved += elapsed
		o.stats.MemorySavedBytes += uint64(img.Width * img.Height * 4)
		o.mu.Unlock()
		return img, nil
	}

	// Platform path failed; the fallback is counted as traditional.
	o.mu.Lock()
	o.stats.FailedAttempts++
	o.stats.TraditionalCaptures++
	o.mu.Unlock()
	return capturer.CaptureDisplay(displayIndex)
}

// Stats returns a snapshot of the counters.
func (o *Optimizer) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// ResetStats zeroes the counters.
func (o *Optimizer) ResetStats() {
	o.mu.Lock()
	o.stats = Stats{}
	o.mu.Unlock()
}
