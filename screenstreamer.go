// Package screenstreamer captures displays and compresses the frames, either
// one screenshot at a time or as a continuous encoded stream.
package screenstreamer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Skryldev/screen-streamer/adapters/capture"
	"github.com/Skryldev/screen-streamer/adapters/encoder"
	"github.com/Skryldev/screen-streamer/config"
	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
	"github.com/Skryldev/screen-streamer/hooks"
	"github.com/Skryldev/screen-streamer/memorypool"
	"github.com/Skryldev/screen-streamer/pipeline"
	"github.com/Skryldev/screen-streamer/pixel"
	"github.com/Skryldev/screen-streamer/zerocopy"
)

// Version of the library.
const Version = "1.0.0"

// Re-export Format constants for convenience.
const (
	WebP = core.FormatWebP
	PNG  = core.FormatPNG
	JPEG = core.FormatJPEG
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Streamer is the primary entry point.  It owns the buffer pool, the pixel
// converter, the zero-copy optimizer and the encoder registry, and exposes
// both single-shot capture and continuous streaming on top of them.
type Streamer struct {
	cfg       config.Config
	capturer  core.ScreenCapture
	registry  *core.DefaultRegistry
	pool      *memorypool.Pool
	converter *pixel.Converter
	optimizer *zerocopy.Optimizer
	logger    core.Logger
	metrics   core.MetricsCollector
	hooks     []core.Hook

	mu   sync.Mutex
	pipe *pipeline.StreamingPipeline

	perfMu sync.Mutex
	perf   core.PerformanceStats
}

// New creates a fully wired Streamer with WebP, PNG and JPEG encoders
// registered and the platform capture backend attached.
func New(cfg config.Config) (*Streamer, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "streamer.new", err)
	}

	reg := core.NewRegistry()
	reg.RegisterEncoder(core.FormatWebP, encoder.NewWebP(cfg.Streaming.Encode.Quality))
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG(cfg.Streaming.Encode.Quality))

	pool := memorypool.NewWithConfig(cfg.Pool)
	conv := pixel.NewConverter()
	opt := zerocopy.New(pool, conv)
	opt.SetEnabled(cfg.Streaming.UseZeroCopy)

	return &Streamer{
		cfg:       cfg,
		capturer:  capture.NewScreenshot(),
		registry:  reg,
		pool:      pool,
		converter: conv,
		optimizer: opt,
		logger:    hooks.NewDefaultLogger(cfg.LogLevel),
	}, nil
}

// SetLogger attaches a structured logger.
func (s *Streamer) SetLogger(l core.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetMetrics attaches a metrics collector.
func (s *Streamer) SetMetrics(m core.MetricsCollector) { s.metrics = m }

// AddHook registers an observer for frame encode events.
func (s *Streamer) AddHook(h core.Hook) { s.hooks = append(s.hooks, h) }

// SetCapture swaps the capture backend; useful for tests and headless runs.
func (s *Streamer) SetCapture(c core.ScreenCapture) {
	if c != nil {
		s.capturer = c
	}
}

// RegisterEncoder registers a custom encoder for the given format.
func (s *Streamer) RegisterEncoder(f core.Format, e core.ImageEncoder) {
	s.registry.RegisterEncoder(f, e)
}

// Displays enumerates the attached displays.
func (s *Streamer) Displays() ([]core.DisplayInfo, error) {
	return s.capturer.Displays()
}

// Capabilities reports what the active capture backend supports.
func (s *Streamer) Capabilities() core.CaptureCapabilities {
	return s.capturer.Capabilities()
}

// CaptureDisplay grabs one frame from the display at index, encodes it with
// the configured output format and returns the result with capture metadata.
// Transient capture failures are retried per the Capture configuration.
func (s *Streamer) CaptureDisplay(ctx context.Context, index int) (*core.Screenshot, error) {
	attempts := s.cfg.Capture.MaxRetries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryCapture, "streamer.capture", err)
		}

		shot, err := s.captureOnce(ctx, index)
		if err == nil {
			return shot, nil
		}
		lastErr = err
		if !apperrors.IsRetryable(err) || i == attempts-1 {
			break
		}
		s.logger.Warn("capture.retry", "display", index, "attempt", i+1, "error", err.Error())
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.CategoryCapture, "streamer.capture", ctx.Err())
		case <-time.After(s.cfg.Capture.RetryDelay):
		}
	}
	return nil, lastErr
}

// CaptureAllDisplays captures every attached display in index order.
func (s *Streamer) CaptureAllDisplays(ctx context.Context) ([]*core.Screenshot, error) {
	displays, err := s.Displays()
	if err != nil {
		return nil, err
	}
	shots := make([]*core.Screenshot, 0, len(displays))
	for _, d := range displays {
		shot, err := s.CaptureDisplay(ctx, d.Index)
		if err != nil {
			return shots, fmt.Errorf("display %d: %w", d.Index, err)
		}
		shots = append(shots, shot)
	}
	return shots, nil
}

func (s *Streamer) captureOnce(ctx context.Context, index int) (*core.Screenshot, error) {
	enc, ok := s.registry.EncoderFor(s.cfg.OutputFormat)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryEncode, "streamer.capture",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedCodec, s.cfg.OutputFormat))
	}

	captureStart := time.Now()
	var img *core.RawImage
	var err error
	switch {
	case s.cfg.Capture.Region != nil:
		// Region grabs bypass zero-copy; platform paths map whole displays.
		img, err = s.capturer.CaptureRegion(*s.cfg.Capture.Region)
	default:
		img, err = s.optimizer.CaptureZeroCopy(s.capturer, index)
	}
	captureDuration := time.Since(captureStart)

	if err != nil {
		s.recordCapture(false, 0, 0, captureDuration, 0)
		return nil, err
	}

	encodeStart := time.Now()
	data, err := enc.Encode(ctx, img, s.cfg.Streaming.Encode)
	encodeDuration := time.Since(encodeStart)
	if err != nil {
		s.recordCapture(false, img.Size(), 0, captureDuration, encodeDuration)
		return nil, err
	}

	s.recordCapture(true, img.Size(), len(data), captureDuration, encodeDuration)
	return &core.Screenshot{
		Data:         data,
		Width:        img.Width,
		Height:       img.Height,
		DisplayIndex: index,
		Meta: core.CaptureMetadata{
			Timestamp:        captureStart,
			CaptureDuration:  captureDuration,
			EncodingDuration: encodeDuration,
			OriginalSize:     img.Size(),
			CompressedSize:   len(data),
			Implementation:   s.capturer.Name(),
		},
	}, nil
}

func (s *Streamer) recordCapture(success bool, rawBytes, encodedBytes int, captureD, encodeD time.Duration) {
	s.perfMu.Lock()
	defer s.perfMu.Unlock()

	s.perf.TotalCaptures++
	if !success {
		s.perf.FailedCaptures++
		return
	}
	s.perf.SuccessfulCaptures++
	s.perf.TotalBytesCaptured += uint64(rawBytes)
	s.perf.TotalBytesEncoded += uint64(encodedBytes)
	s.perf.TotalCaptureTime += captureD
	s.perf.TotalEncodingTime += encodeD
	if s.perf.FastestCapture == 0 || captureD < s.perf.FastestCapture {
		s.perf.FastestCapture = captureD
	}
	if captureD > s.perf.SlowestCapture {
		s.perf.SlowestCapture = captureD
	}
}

// Stream starts the continuous pipeline and delivers each encoded frame to
// callback.  Call StopStream to end it.  Returns ErrAlreadyRunning if a
// stream is active.
func (s *Streamer) Stream(callback func([]byte)) error {
	enc, ok := s.registry.EncoderFor(s.cfg.OutputFormat)
	if !ok {
		return apperrors.New(apperrors.CategoryEncode, "streamer.stream",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedCodec, s.cfg.OutputFormat))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipe != nil && s.pipe.IsRunning() {
		return apperrors.New(apperrors.CategoryPipeline, "streamer.stream", apperrors.ErrAlreadyRunning)
	}

	pipe := pipeline.NewStreaming(s.cfg.Streaming, s.capturer, enc).
		WithLogger(s.logger).
		WithOptimizer(s.optimizer)
	if s.metrics != nil {
		pipe.WithMetrics(s.metrics)
	}
	for _, h := range s.hooks {
		pipe.AddHook(h)
	}

	if err := pipe.Start(callback); err != nil {
		return err
	}
	s.pipe = pipe
	return nil
}

// StopStream stops the active stream, if any.
func (s *Streamer) StopStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipe != nil {
		s.pipe.Stop()
	}
}

// IsStreaming reports whether a stream is active.
func (s *Streamer) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe != nil && s.pipe.IsRunning()
}

// StreamStats returns a snapshot of the active (or last) stream's counters.
func (s *Streamer) StreamStats() pipeline.StreamingStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipe == nil {
		return pipeline.StreamingStats{}
	}
	return s.pipe.Stats()
}

// PerformanceStats returns accumulated single-shot capture statistics.
func (s *Streamer) PerformanceStats() core.PerformanceStats {
	s.perfMu.Lock()
	defer s.perfMu.Unlock()
	return s.perf
}

// PoolStats returns buffer pool counters.
func (s *Streamer) PoolStats() memorypool.Stats { return s.pool.Stats() }

// PoolHitRate returns the pool's reuse percentage.
func (s *Streamer) PoolHitRate() float64 { return s.pool.HitRate() }

// ZeroCopyStats returns zero-copy usage counters.
func (s *Streamer) ZeroCopyStats() zerocopy.Stats { return s.optimizer.Stats() }

// ConverterCapabilities describes the pixel converter's detected CPU features.
func (s *Streamer) ConverterCapabilities() string { return s.converter.Capabilities() }
