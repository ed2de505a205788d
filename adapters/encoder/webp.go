package encoder

import (
	"context"

	"github.com/chai2010/webp"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// WebP encodes frames with github.com/chai2010/webp.  It is the default
// streaming codec: at quality 75 a desktop frame typically compresses 5-10x
// smaller than PNG at a fraction of the CPU cost.
type WebP struct {
	DefaultQuality int
}

// NewWebP creates a WebP encoder; defaultQuality applies when the per-frame
// config leaves Quality unset.
func NewWebP(defaultQuality int) *WebP {
	if defaultQuality <= 0 {
		defaultQuality = 85
	}
	return &WebP{DefaultQuality: defaultQuality}
}

func (w *WebP) CanEncode(format core.Format) bool { return format == core.FormatWebP }

func (w *WebP) Encode(ctx context.Context, img *core.RawImage, cfg core.EncodeConfig) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}

	rgba, err := frameToRGBA(img)
	if err != nil {
		return nil, err
	}

	if cfg.Lossless {
		data, err := webp.EncodeLosslessRGBA(rgba)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode.lossless", err)
		}
		return data, nil
	}

	quality := cfg.Quality
	if quality <= 0 {
		quality = w.DefaultQuality
	}
	data, err := webp.EncodeRGBA(rgba, float32(quality))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}
	return data, nil
}
