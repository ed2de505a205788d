// Package capture provides ScreenCapture backends.
package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// Screenshot grabs frames through github.com/kbinani/screenshot, which talks
// to X11/XShm on Linux, GDI on Windows and CoreGraphics on macOS.
type Screenshot struct{}

// NewScreenshot creates the default cross-platform capture backend.
func NewScreenshot() *Screenshot { return &Screenshot{} }

func (s *Screenshot) Name() string { return "kbinani/screenshot" }

func (s *Screenshot) Capabilities() core.CaptureCapabilities {
	return core.CaptureCapabilities{
		SupportsRegion:       true,
		SupportsMultiDisplay: true,
	}
}

func (s *Screenshot) Displays() ([]core.DisplayInfo, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, apperrors.New(apperrors.CategoryCapture, "screenshot.displays", apperrors.ErrDisplayNotFound)
	}
	out := make([]core.DisplayInfo, n)
	for i := range out {
		b := screenshot.GetDisplayBounds(i)
		out[i] = core.DisplayInfo{
			Index:     i,
			Name:      fmt.Sprintf("display-%d", i),
			X:         b.Min.X,
			Y:         b.Min.Y,
			Width:     b.Dx(),
			Height:    b.Dy(),
			IsPrimary: i == 0,
		}
	}
	return out, nil
}

func (s *Screenshot) CaptureDisplay(index int) (*core.RawImage, error) {
	if index < 0 || index >= screenshot.NumActiveDisplays() {
		return nil, apperrors.New(apperrors.CategoryCapture, "screenshot.capture",
			fmt.Errorf("%w: index %d", apperrors.ErrDisplayNotFound, index))
	}
	img, err := screenshot.CaptureDisplay(index)
	if err != nil {
		// X11 grabs fail transiently during display reconfiguration.
		return nil, apperrors.Transient("screenshot.capture", err)
	}
	return fromRGBA(img)
}

func (s *Screenshot) CaptureRegion(region core.Rectangle) (*core.RawImage, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, apperrors.New(apperrors.CategoryCapture, "screenshot.region", apperrors.ErrInvalidDimensions)
	}
	img, err := screenshot.CaptureRect(image.Rect(
		region.X, region.Y,
		region.X+region.Width, region.Y+region.Height,
	))
	if err != nil {
		return nil, apperrors.Transient("screenshot.region", err)
	}
	return fromRGBA(img)
}

// fromRGBA repacks an *image.RGBA into a tightly strided RawImage.  The
// library returns exact-bounds images, so the common case is a zero-copy
// wrap.
func fromRGBA(img *image.RGBA) (*core.RawImage, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, apperrors.New(apperrors.CategoryCapture, "screenshot.convert", apperrors.ErrInvalidDimensions)
	}
	if img.Stride == w*4 && len(img.Pix) == w*h*4 {
		return core.NewRawImage(img.Pix, w, h, core.FormatRGBA8), nil
	}
	data := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride:]
		copy(data[y*w*4:(y+1)*w*4], src[:w*4])
	}
	return core.NewRawImage(data, w, h, core.FormatRGBA8), nil
}

var _ core.ScreenCapture = (*Screenshot)(nil)
