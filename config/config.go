// Package config holds the top-level configuration for the streamer.
package config

import (
	"errors"
	"runtime"
	"time"

	"github.com/Skryldev/screen-streamer/core"
	"github.com/Skryldev/screen-streamer/memorypool"
)

// Streaming controls the real-time pipeline.  All fields have safe defaults
// so callers can start with Default() and override only what they need.
type Streaming struct {
	// TargetFPS is the capture pacing target.
	TargetFPS int
	// BufferSize is the capacity of each inter-stage channel.
	BufferSize int
	// CaptureThreads is the number of capture goroutines.
	CaptureThreads int
	// EncodeThreads is the number of encoder goroutines;
	// default max(2, NumCPU/2).
	EncodeThreads int
	// AdaptiveQuality adjusts encode parameters from observed load.
	AdaptiveQuality bool
	// AllowFrameDrop discards the oldest queued frame when the capture
	// channel is full instead of blocking the capture loop.
	AllowFrameDrop bool
	// UseZeroCopy opts into the platform mapped-capture shortcut.
	UseZeroCopy bool
	// MaxFrameWidth downscales frames wider than this before encoding;
	// 0 disables scaling.
	MaxFrameWidth int
	// Encode is the initial encoder configuration; adaptive quality
	// starts from here.
	Encode core.EncodeConfig
}

// Capture controls single-shot captures on the facade.
type Capture struct {
	// Region restricts capture to a sub-rectangle; nil captures the full
	// display.  A region disables zero-copy for that capture.
	Region *core.Rectangle
	// MaxRetries retries recoverable capture failures.
	MaxRetries int
	// RetryDelay is the pause between retries.
	RetryDelay time.Duration
}

// Config is the top-level configuration struct.
type Config struct {
	// OutputFormat selects the registered encoder ("webp", "png", "jpeg").
	OutputFormat core.Format

	Streaming Streaming
	Capture   Capture
	Pool      memorypool.Config

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string
}

// Default returns a Config populated with sensible production defaults:
// 30 fps, two seconds of channel buffer, fast WebP encoding with adaptive
// quality and frame dropping enabled.
func Default() Config {
	return Config{
		OutputFormat: core.FormatWebP,
		Streaming: Streaming{
			TargetFPS:       30,
			BufferSize:      60,
			CaptureThreads:  1,
			EncodeThreads:   defaultEncodeThreads(),
			AdaptiveQuality: true,
			AllowFrameDrop:  true,
			UseZeroCopy:     true,
			Encode:          core.FastEncode(),
		},
		Capture: Capture{
			MaxRetries: 3,
			RetryDelay: 100 * time.Millisecond,
		},
		Pool:     memorypool.DefaultConfig(),
		LogLevel: "info",
	}
}

func defaultEncodeThreads() int {
	n := runtime.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	return n
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.Streaming.TargetFPS <= 0 {
		return errors.New("config: Streaming.TargetFPS must be positive")
	}
	if c.Streaming.BufferSize <= 0 {
		return errors.New("config: Streaming.BufferSize must be positive")
	}
	if c.Streaming.MaxFrameWidth < 0 {
		return errors.New("config: Streaming.MaxFrameWidth must not be negative")
	}
	if err := c.Streaming.Encode.Validate(); err != nil {
		return err
	}
	if c.Capture.MaxRetries < 0 {
		return errors.New("config: Capture.MaxRetries must not be negative")
	}
	if r := c.Capture.Region; r != nil && (r.Width <= 0 || r.Height <= 0) {
		return errors.New("config: Capture.Region must have positive dimensions")
	}
	return nil
}
