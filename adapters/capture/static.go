package capture

import (
	"sync/atomic"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// Static synthesises gradient frames instead of touching the display.  It
// backs tests and headless demos where no capture device exists.
type Static struct {
	width  int
	height int
	frames atomic.Uint64
}

// NewStatic creates a synthetic backend producing width x height frames.
func NewStatic(width, height int) *Static {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return &Static{width: width, height: height}
}

func (s *Static) Name() string { return "static" }

func (s *Static) Capabilities() core.CaptureCapabilities {
	return core.CaptureCapabilities{SupportsRegion: true, SupportsMultiDisplay: false}
}

func (s *Static) Displays() ([]core.DisplayInfo, error) {
	return []core.DisplayInfo{{
		Index:     0,
		Name:      "static-0",
		Width:     s.width,
		Height:    s.height,
		IsPrimary: true,
	}}, nil
}

func (s *Static) CaptureDisplay(index int) (*core.RawImage, error) {
	if index != 0 {
		return nil, apperrors.New(apperrors.CategoryCapture, "static.capture", apperrors.ErrDisplayNotFound)
	}
	return s.render(s.width, s.height), nil
}

func (s *Static) CaptureRegion(region core.Rectangle) (*core.RawImage, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, apperrors.New(apperrors.CategoryCapture, "static.region", apperrors.ErrInvalidDimensions)
	}
	return s.render(region.Width, region.Height), nil
}

// render produces a moving diagonal gradient so consecutive frames differ
// and encoders see realistic, compressible content.
func (s *Static) render(w, h int) *core.RawImage {
	n := s.frames.Add(1)
	data := make([]byte, w*h*4)
	shift := byte(n)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			data[i] = byte(x) + shift
			data[i+1] = byte(y)
			data[i+2] = byte(x+y) - shift
			data[i+3] = 0xFF
		}
	}
	return core.NewRawImage(data, w, h, core.FormatRGBA8)
}

var _ core.ScreenCapture = (*Static)(nil)
