//go:build !linux && !windows

package zerocopy

import (
	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
	"github.com/Skryldev/screen-streamer/memorypool"
	"github.com/Skryldev/screen-streamer/pixel"
)

const supported = false

// unsupportedCapturer always fails, which keeps the optimizer disabled and
// every capture on the traditional path.
type unsupportedCapturer struct{}

func newPlatformCapturer(_ *memorypool.Pool, _ *pixel.Converter) platformCapturer {
	return unsupportedCapturer{}
}

func (unsupportedCapturer) capture(int) (*core.RawImage, error) {
	return nil, apperrors.New(apperrors.CategoryPlatform, "zerocopy.capture", apperrors.ErrNotSupported)
}
