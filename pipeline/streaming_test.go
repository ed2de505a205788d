package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Skryldev/screen-streamer/config"
	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// stubCapture returns a fixed 64x64 RGBA frame on every call.
type stubCapture struct {
	calls atomic.Int64
}

func (s *stubCapture) Displays() ([]core.DisplayInfo, error) {
	return []core.DisplayInfo{{Index: 0, Width: 64, Height: 64, IsPrimary: true}}, nil
}

func (s *stubCapture) CaptureDisplay(int) (*core.RawImage, error) {
	s.calls.Add(1)
	return core.NewRawImage(make([]byte, 64*64*4), 64, 64, core.FormatRGBA8), nil
}

func (s *stubCapture) CaptureRegion(core.Rectangle) (*core.RawImage, error) {
	return s.CaptureDisplay(0)
}

func (s *stubCapture) Name() string { return "stub" }

func (s *stubCapture) Capabilities() core.CaptureCapabilities {
	return core.CaptureCapabilities{SupportsRegion: true}
}

// stubEncoder emits a constant payload, optionally after a delay.
type stubEncoder struct {
	delay time.Duration
}

func (e *stubEncoder) Encode(_ context.Context, img *core.RawImage, _ core.EncodeConfig) ([]byte, error) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	return []byte{'R', 'I', 'F', 'F', byte(img.Width), byte(img.Height)}, nil
}

func (e *stubEncoder) CanEncode(f core.Format) bool { return f == core.FormatWebP }

func testConfig(fps int) config.Streaming {
	return config.Streaming{
		TargetFPS:      fps,
		BufferSize:     16,
		CaptureThreads: 1,
		EncodeThreads:  2,
		Encode:         core.FastEncode(),
	}
}

func TestStartTwiceFails(t *testing.T) {
	p := NewStreaming(testConfig(10), &stubCapture{}, &stubEncoder{})
	if err := p.Start(func([]byte) {}); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer p.Stop()

	err := p.Start(func([]byte) {})
	if err == nil {
		t.Fatal("second start should fail")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryPipeline) {
		t.Errorf("error category: got %v", err)
	}
}

func TestStartNilCallbackFails(t *testing.T) {
	p := NewStreaming(testConfig(10), &stubCapture{}, &stubEncoder{})
	if err := p.Start(nil); err == nil {
		t.Fatal("nil callback should fail")
	}
	if p.IsRunning() {
		t.Error("pipeline should not be running after a rejected start")
	}
}

func TestStreamDeliversFrames(t *testing.T) {
	capt := &stubCapture{}
	p := NewStreaming(testConfig(10), capt, &stubEncoder{})

	var frames atomic.Int64
	var lastLen atomic.Int64
	if err := p.Start(func(data []byte) {
		frames.Add(1)
		lastLen.Store(int64(len(data)))
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	p.Stop()

	// 10 fps over 500ms should deliver roughly 5 frames; scheduling jitter
	// makes the exact count unreliable.
	got := frames.Load()
	if got < 2 || got > 8 {
		t.Errorf("frames delivered: got %d, want roughly 5", got)
	}
	if lastLen.Load() == 0 {
		t.Error("callback received empty frame")
	}

	stats := p.Stats()
	if stats.FramesCaptured == 0 {
		t.Error("no frames captured")
	}
	if stats.FramesEncoded == 0 {
		t.Error("no frames encoded")
	}
	if stats.BytesEncoded == 0 {
		t.Error("no bytes recorded")
	}
	if stats.AvgEncodeTime < 0 {
		t.Errorf("average encode time: got %v", stats.AvgEncodeTime)
	}
}

func TestStopAndRestart(t *testing.T) {
	p := NewStreaming(testConfig(30), &stubCapture{}, &stubEncoder{})
	if err := p.Start(func([]byte) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !p.IsRunning() {
		t.Fatal("pipeline should be running")
	}

	p.Stop()
	if p.IsRunning() {
		t.Fatal("pipeline should be stopped")
	}

	// Stages poll the flag every 100ms; give them time to exit before the
	// next run reuses the pipeline.
	time.Sleep(250 * time.Millisecond)
	if err := p.Start(func([]byte) {}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	p.Stop()
}

func TestFrameDropEvictsOldest(t *testing.T) {
	cfg := testConfig(60)
	cfg.BufferSize = 1
	cfg.AllowFrameDrop = true

	// Encoding far slower than capture forces the raw channel full.
	p := NewStreaming(cfg, &stubCapture{}, &stubEncoder{delay: 80 * time.Millisecond})
	if err := p.Start(func([]byte) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	p.Stop()

	stats := p.Stats()
	if stats.FramesDropped == 0 {
		t.Error("expected dropped frames under encode pressure")
	}
	if stats.FramesCaptured == 0 {
		t.Error("capture should keep running while dropping")
	}
}

func TestAdjustQuality(t *testing.T) {
	base := core.EncodeConfig{Quality: 80, Effort: 2, Passes: 1}

	// Slow capture degrades quality and effort.
	got := adjustQuality(base, 25*time.Millisecond, 40)
	if got.Quality != 75 {
		t.Errorf("quality under load: got %d, want 75", got.Quality)
	}
	if got.Effort != 1 {
		t.Errorf("effort under load: got %d, want 1", got.Effort)
	}

	// Fast capture with an empty backlog recovers.
	got = adjustQuality(base, 5*time.Millisecond, 0)
	if got.Quality != 82 {
		t.Errorf("quality with headroom: got %d, want 82", got.Quality)
	}
	if got.Effort != 3 {
		t.Errorf("effort with headroom: got %d, want 3", got.Effort)
	}

	// Middle ground leaves the configuration alone.
	got = adjustQuality(base, 15*time.Millisecond, 20)
	if got != base {
		t.Errorf("neutral load changed config: got %+v", got)
	}
}

func TestAdjustQualityBounds(t *testing.T) {
	low := core.EncodeConfig{Quality: 61, Effort: 0, Passes: 1}
	got := adjustQuality(low, 50*time.Millisecond, 0)
	if got.Quality != 60 {
		t.Errorf("quality floor: got %d, want 60", got.Quality)
	}
	if got.Effort != 0 {
		t.Errorf("effort floor: got %d, want 0", got.Effort)
	}

	high := core.EncodeConfig{Quality: 89, Effort: 4, Passes: 1}
	got = adjustQuality(high, time.Millisecond, 0)
	if got.Quality != 90 {
		t.Errorf("quality ceiling: got %d, want 90", got.Quality)
	}
	if got.Effort != 4 {
		t.Errorf("effort ceiling: got %d, want 4", got.Effort)
	}
}
