// Package pipeline runs the real-time capture, encode and output stages.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skryldev/screen-streamer/config"
	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
	"github.com/Skryldev/screen-streamer/utils"
	"github.com/Skryldev/screen-streamer/zerocopy"
)

// pollInterval is how often blocked stages re-check the running flag, so a
// Stop() is observed within roughly this bound.
const pollInterval = 100 * time.Millisecond

// Adaptive quality thresholds.  A capture slower than slowCapture or a raw
// backlog above highBacklog trades quality for speed; a capture faster than
// fastCapture with a near-empty backlog earns it back.
const (
	slowCapture = 20 * time.Millisecond
	fastCapture = 10 * time.Millisecond
	highBacklog = 30
	lowBacklog  = 10

	minQuality = 60
	maxQuality = 90
	maxEffort  = 4
)

// frame carries one captured image between stages.
type frame struct {
	id              uint64
	image           *core.RawImage
	timestamp       time.Time
	captureDuration time.Duration
}

// StreamingStats is a snapshot of pipeline counters.
type StreamingStats struct {
	FramesCaptured   uint64
	FramesEncoded    uint64
	FramesDropped    uint64
	BytesEncoded     uint64
	TotalCaptureTime time.Duration
	TotalEncodeTime  time.Duration
	// CurrentFPS and CurrentBitrate cover the most recent one-second window.
	CurrentFPS     float64
	CurrentBitrate float64
	AvgCaptureTime time.Duration
	AvgEncodeTime  time.Duration
}

// StreamingPipeline captures frames at a target rate, encodes them on a
// worker group, and hands the compressed bytes to a caller-supplied sink.
// All stages communicate over bounded channels and exit cooperatively when
// Stop flips the running flag.
type StreamingPipeline struct {
	cfg      config.Streaming
	capturer core.ScreenCapture
	encoder  core.ImageEncoder

	optimizer    *zerocopy.Optimizer
	logger       core.Logger
	metrics      core.MetricsCollector
	hooks        []core.Hook
	displayIndex int

	running atomic.Bool
	frameID atomic.Uint64

	mu    sync.Mutex
	stats StreamingStats
}

// NewStreaming creates a pipeline over the given capture backend and encoder.
func NewStreaming(cfg config.Streaming, capturer core.ScreenCapture, encoder core.ImageEncoder) *StreamingPipeline {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 30
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 60
	}
	if cfg.CaptureThreads <= 0 {
		cfg.CaptureThreads = 1
	}
	if cfg.EncodeThreads <= 0 {
		cfg.EncodeThreads = 2
	}
	return &StreamingPipeline{
		cfg:      cfg,
		capturer: capturer,
		encoder:  encoder,
		logger:   nopLogger{},
	}
}

// WithLogger sets the pipeline logger.  Returns the pipeline for chaining.
func (p *StreamingPipeline) WithLogger(l core.Logger) *StreamingPipeline {
	if l != nil {
		p.logger = l
	}
	return p
}

// WithMetrics sets the metrics collector.
func (p *StreamingPipeline) WithMetrics(m core.MetricsCollector) *StreamingPipeline {
	p.metrics = m
	return p
}

// WithOptimizer routes captures through the zero-copy path when enabled.
func (p *StreamingPipeline) WithOptimizer(o *zerocopy.Optimizer) *StreamingPipeline {
	p.optimizer = o
	return p
}

// WithDisplay selects which display to stream; default 0.
func (p *StreamingPipeline) WithDisplay(index int) *StreamingPipeline {
	p.displayIndex = index
	return p
}

// AddHook registers an observer invoked around every frame encode.
func (p *StreamingPipeline) AddHook(h core.Hook) *StreamingPipeline {
	p.hooks = append(p.hooks, h)
	return p
}

// Start launches the stage goroutines and begins delivering encoded frames to
// callback.  The callback runs on the single output goroutine, so a slow
// callback applies backpressure instead of racing with itself.  Starting an
// already-running pipeline returns ErrAlreadyRunning.
func (p *StreamingPipeline) Start(callback func([]byte)) error {
	if callback == nil {
		return apperrors.New(apperrors.CategoryPipeline, "pipeline.start", apperrors.ErrEmptyInput)
	}
	if !p.running.CompareAndSwap(false, true) {
		return apperrors.New(apperrors.CategoryPipeline, "pipeline.start", apperrors.ErrAlreadyRunning)
	}

	// Channels are local to one run; stale goroutines from a previous run
	// never see them.
	rawCh := make(chan *frame, p.cfg.BufferSize)
	outCh := make(chan []byte, p.cfg.BufferSize)

	for i := 0; i < p.cfg.CaptureThreads; i++ {
		go p.captureLoop(rawCh)
	}
	for i := 0; i < p.cfg.EncodeThreads; i++ {
		go p.encodeLoop(rawCh, outCh)
	}
	go p.outputLoop(outCh, callback)
	go p.statsLoop()

	p.logger.Info("pipeline.started",
		"fps", p.cfg.TargetFPS,
		"capture_threads", p.cfg.CaptureThreads,
		"encode_threads", p.cfg.EncodeThreads,
		"zero_copy", p.optimizer != nil && p.cfg.UseZeroCopy,
	)
	return nil
}

// Stop signals all stages to exit.  It returns immediately; goroutines
// observe the flag within pollInterval and drain on their own.
func (p *StreamingPipeline) Stop() {
	if p.running.CompareAndSwap(true, false) {
		p.logger.Info("pipeline.stopped")
	}
}

// IsRunning reports whether the pipeline is active.
func (p *StreamingPipeline) IsRunning() bool { return p.running.Load() }

// Stats returns a snapshot of the pipeline counters with derived averages
// filled in.
func (p *StreamingPipeline) Stats() StreamingStats {
	p.mu.Lock()
	s := p.stats
	p.mu.Unlock()
	if s.FramesCaptured > 0 {
		s.AvgCaptureTime = s.TotalCaptureTime / time.Duration(s.FramesCaptured)
	}
	if s.FramesEncoded > 0 {
		s.AvgEncodeTime = s.TotalEncodeTime / time.Duration(s.FramesEncoded)
	}
	return s
}

// captureLoop grabs frames at the target rate.  Pacing is drift-free: each
// deadline is derived from the previous one, not from when the capture
// finished, so a single slow frame does not shift the whole schedule.
func (p *StreamingPipeline) captureLoop(rawCh chan *frame) {
	interval := time.Second / time.Duration(p.cfg.TargetFPS)
	next := time.Now()

	for p.running.Load() {
		start := time.Now()
		img, err := p.grab()
		elapsed := time.Since(start)

		if err != nil {
			p.logger.Warn("capture.failed", "error", err.Error())
			if p.metrics != nil {
				p.metrics.RecordError("capture")
			}
		} else {
			f := &frame{
				id:              p.frameID.Add(1),
				image:           img,
				timestamp:       start,
				captureDuration: elapsed,
			}
			if p.enqueue(rawCh, f) {
				p.mu.Lock()
				p.stats.FramesCaptured++
				p.stats.TotalCaptureTime += elapsed
				p.mu.Unlock()
				if p.metrics != nil {
					p.metrics.RecordCaptureTime(elapsed)
				}
			}
		}

		next = next.Add(interval)
		if wait := time.Until(next); wait > 0 {
			time.Sleep(wait)
		} else {
			// Behind schedule; skip the missed slots instead of bursting.
			next = time.Now()
		}
	}
}

func (p *StreamingPipeline) grab() (*core.RawImage, error) {
	if p.optimizer != nil && p.cfg.UseZeroCopy {
		return p.optimizer.CaptureZeroCopy(p.capturer, p.displayIndex)
	}
	return p.capturer.CaptureDisplay(p.displayIndex)
}

// enqueue hands a frame to the encode stage.  With frame dropping enabled a
// full channel evicts the oldest queued frame so the stream stays current;
// otherwise the send blocks in pollInterval slices while re-checking the
// running flag.
func (p *StreamingPipeline) enqueue(rawCh chan *frame, f *frame) bool {
	if p.cfg.AllowFrameDrop {
		for p.running.Load() {
			select {
			case rawCh <- f:
				return true
			default:
			}
			select {
			case <-rawCh:
				p.recordDrop()
			default:
			}
		}
		return false
	}

	for p.running.Load() {
		select {
		case rawCh <- f:
			return true
		case <-time.After(pollInterval):
		}
	}
	return false
}

func (p *StreamingPipeline) recordDrop() {
	p.mu.Lock()
	p.stats.FramesDropped++
	p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.RecordFrameDrop()
	}
}

// encodeLoop compresses frames.  Each worker keeps its own EncodeConfig so
// adaptive adjustments never need cross-goroutine coordination.
func (p *StreamingPipeline) encodeLoop(rawCh chan *frame, outCh chan []byte) {
	ctx := context.Background()
	enc := p.cfg.Encode

	for p.running.Load() {
		select {
		case f := <-rawCh:
			if p.cfg.AdaptiveQuality {
				enc = adjustQuality(enc, f.captureDuration, len(rawCh))
			}
			p.encodeFrame(ctx, outCh, f, enc)
		case <-time.After(pollInterval):
		}
	}
}

func (p *StreamingPipeline) encodeFrame(ctx context.Context, outCh chan []byte, f *frame, enc core.EncodeConfig) {
	img := f.image
	if p.cfg.MaxFrameWidth > 0 {
		scaled, err := utils.Downscale(img, p.cfg.MaxFrameWidth)
		if err != nil {
			p.logger.Warn("scale.failed", "frame", f.id, "error", err.Error())
			if p.metrics != nil {
				p.metrics.RecordError("scale")
			}
			return
		}
		img = scaled
	}

	for _, h := range p.hooks {
		h.BeforeEncode(ctx, f.id, img)
	}
	start := time.Now()
	data, err := p.encoder.Encode(ctx, img, enc)
	elapsed := time.Since(start)
	for _, h := range p.hooks {
		h.AfterEncode(ctx, f.id, len(data), elapsed, err)
	}

	if err != nil {
		// One bad frame must not stall the stream.
		p.logger.Warn("encode.failed", "frame", f.id, "error", err.Error())
		if p.metrics != nil {
			p.metrics.RecordError("encode")
		}
		return
	}

	p.mu.Lock()
	p.stats.FramesEncoded++
	p.stats.BytesEncoded += uint64(len(data))
	p.stats.TotalEncodeTime += elapsed
	p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.RecordEncodeTime(elapsed)
		p.metrics.RecordThroughput(int64(len(data)))
	}

	p.deliver(outCh, data)
}

func (p *StreamingPipeline) deliver(outCh chan []byte, data []byte) {
	for p.running.Load() {
		select {
		case outCh <- data:
			return
		case <-time.After(pollInterval):
		}
	}
}

// outputLoop forwards encoded frames to the callback, one at a time.
func (p *StreamingPipeline) outputLoop(outCh chan []byte, callback func([]byte)) {
	for p.running.Load() {
		select {
		case data := <-outCh:
			callback(data)
		case <-time.After(pollInterval):
		}
	}
}

// statsLoop refreshes the per-second rate counters.
func (p *StreamingPipeline) statsLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastFrames, lastBytes uint64
	for p.running.Load() {
		<-ticker.C

		p.mu.Lock()
		frames := p.stats.FramesEncoded
		bytes := p.stats.BytesEncoded
		p.stats.CurrentFPS = float64(frames - lastFrames)
		p.stats.CurrentBitrate = float64(bytes-lastBytes) * 8
		p.mu.Unlock()

		p.logger.Debug("pipeline.stats",
			"fps", frames-lastFrames,
			"bitrate_bps", (bytes-lastBytes)*8,
		)
		lastFrames, lastBytes = frames, bytes
	}
}

// adjustQuality nudges the encoder configuration toward speed under load and
// back toward quality when the pipeline has headroom.
func adjustQuality(cfg core.EncodeConfig, captureDuration time.Duration, backlog int) core.EncodeConfig {
	switch {
	case captureDuration > slowCapture || backlog > highBacklog:
		cfg.Quality -= 5
		if cfg.Quality < minQuality {
			cfg.Quality = minQuality
		}
		cfg.Effort--
		if cfg.Effort < 0 {
			cfg.Effort = 0
		}
	case captureDuration < fastCapture && backlog < lowBacklog:
		cfg.Quality += 2
		if cfg.Quality > maxQuality {
			cfg.Quality = maxQuality
		}
		cfg.Effort++
		if cfg.Effort > maxEffort {
			cfg.Effort = maxEffort
		}
	}
	return cfg
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
