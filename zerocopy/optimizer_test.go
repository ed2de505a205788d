package zerocopy

import (
	"errors"
	"testing"

	"github.com/Skryldev/screen-streamer/core"
	"github.com/Skryldev/screen-streamer/memorypool"
	"github.com/Skryldev/screen-streamer/pixel"
)

// fakeCapture counts delegated captures.
type fakeCapture struct {
	calls int
	fail  bool
}

func (f *fakeCapture) Displays() ([]core.DisplayInfo, error) {
	return []core.DisplayInfo{{Index: 0, Width: 8, Height: 8, IsPrimary: true}}, nil
}

func (f *fakeCapture) CaptureDisplay(index int) (*core.RawImage, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("capture failed")
	}
	return core.NewRawImage(make([]byte, 8*8*4), 8, 8, core.FormatRGBA8), nil
}

func (f *fakeCapture) CaptureRegion(r core.Rectangle) (*core.RawImage, error) {
	return f.CaptureDisplay(0)
}

func (f *fakeCapture) Name() string { return "fake" }

func (f *fakeCapture) Capabilities() core.CaptureCapabilities {
	return core.CaptureCapabilities{SupportsRegion: true}
}

// fakePlatform is an injectable platform path.
type fakePlatform struct {
	img *core.RawImage
	err error
}

func (f fakePlatform) capture(int) (*core.RawImage, error) { return f.img, f.err }

func newOptimizer() *Optimizer {
	return New(memorypool.New(), pixel.NewConverter())
}

func TestDisabledCountsTraditionalOnly(t *testing.T) {
	opt := newOptimizer()
	opt.SetEnabled(false)
	capt := &fakeCapture{}

	for i := 0; i < 5; i++ {
		if _, err := opt.CaptureZeroCopy(capt, 0); err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
	}

	stats := opt.Stats()
	if stats.TraditionalCaptures != 5 {
		t.Errorf("traditional captures: got %d, want 5", stats.TraditionalCaptures)
	}
	if stats.ZeroCopyCaptures != 0 {
		t.Errorf("zero-copy captures: got %d, want 0", stats.ZeroCopyCaptures)
	}
	if capt.calls != 5 {
		t.Errorf("capturer calls: got %d, want 5", capt.calls)
	}
}

func TestDisabledCountsFailedDelegation(t *testing.T) {
	opt := newOptimizer()
	opt.SetEnabled(false)
	capt := &fakeCapture{fail: true}

	if _, err := opt.CaptureZeroCopy(capt, 0); err == nil {
		t.Fatal("expected delegated capture error")
	}
	// Every disabled call counts as traditional, even a failed one.
	if got := opt.Stats().TraditionalCaptures; got != 1 {
		t.Errorf("traditional captures: got %d, want 1", got)
	}
}

func TestPlatformSuccessCountsZeroCopy(t *testing.T) {
	opt := newOptimizer()
	opt.enabled = true // force on regardless of build platform
	if !supported {
		t.Skip("no platform path in this build")
	}
	opt.platform = fakePlatform{img: core.NewRawImage(make([]byte, 4*4*4), 4, 4, core.FormatRGBA8)}
	capt := &fakeCapture{}

	img, err := opt.CaptureZeroCopy(capt, 0)
	if err != nil {
		t.Fatalf("CaptureZeroCopy: %v", err)
	}
	if img.Width != 4 || img.Height != 4 {
		t.Errorf("image: got %dx%d, want 4x4", img.Width, img.Height)
	}

	stats := opt.Stats()
	if stats.ZeroCopyCaptures != 1 {
		t.Errorf("zero-copy captures: got %d, want 1", stats.ZeroCopyCaptures)
	}
	if stats.TraditionalCaptures != 0 {
		t.Errorf("traditional captures: got %d, want 0", stats.TraditionalCaptures)
	}
	if stats.MemorySavedBytes != 4*4*4 {
		t.Errorf("estimated memory saved: got %d, want %d", stats.MemorySavedBytes, 4*4*4)
	}
	if capt.calls != 0 {
		t.Errorf("capturer should not be touched on platform success, got %d calls", capt.calls)
	}
}

func TestPlatformFailureFallsBack(t *testing.T) {
	opt := newOptimizer()
	opt.enabled = true
	if !supported {
		t.Skip("no platform path in this build")
	}
	opt.platform = fakePlatform{err: errors.New("mapping failed")}
	capt := &fakeCapture{}

	img, err := opt.CaptureZeroCopy(capt, 0)
	if err != nil {
		t.Fatalf("fallback capture: %v", err)
	}
	if img == nil {
		t.Fatal("fallback returned nil image")
	}

	// A failed attempt inflates both counters; efficiency stays an
	// approximation by design.
	stats := opt.Stats()
	if stats.FailedAttempts != 1 {
		t.Errorf("failed attempts: got %d, want 1", stats.FailedAttempts)
	}
	if stats.TraditionalCaptures != 1 {
		t.Errorf("traditional captures: got %d, want 1", stats.TraditionalCaptures)
	}
	if stats.ZeroCopyCaptures != 0 {
		t.Errorf("zero-copy captures: got %d, want 0", stats.ZeroCopyCaptures)
	}
	if capt.calls != 1 {
		t.Errorf("capturer calls: got %d, want 1", capt.calls)
	}
}

func TestEfficiencyPercent(t *testing.T) {
	s := Stats{}
	if s.EfficiencyPercent() != 0 {
		t.Errorf("empty stats efficiency: got %v, want 0", s.EfficiencyPercent())
	}

	s = Stats{ZeroCopyCaptures: 3, TraditionalCaptures: 1}
	if got := s.EfficiencyPercent(); got != 75 {
		t.Errorf("efficiency: got %v, want 75", got)
	}
}

func TestAvgMemorySaved(t *testing.T) {
	s := Stats{ZeroCopyCaptures: 2, MemorySavedBytes: 800}
	if got := s.AvgMemorySaved(); got != 400 {
		t.Errorf("avg memory saved: got %d, want 400", got)
	}
}
