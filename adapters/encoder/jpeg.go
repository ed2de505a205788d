package encoder

import (
	"bytes"
	"context"
	"image/jpeg"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// JPEG encodes frames with the standard library codec.  No alpha support;
// the channel is flattened during encode.
type JPEG struct {
	DefaultQuality int
}

func NewJPEG(defaultQuality int) *JPEG {
	if defaultQuality <= 0 {
		defaultQuality = 85
	}
	return &JPEG{DefaultQuality: defaultQuality}
}

func (j *JPEG) CanEncode(format core.Format) bool { return format == core.FormatJPEG }

func (j *JPEG) Encode(ctx context.Context, img *core.RawImage, cfg core.EncodeConfig) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}

	rgba, err := frameToRGBA(img)
	if err != nil {
		return nil, err
	}

	quality := cfg.Quality
	if quality <= 0 {
		quality = j.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: quality}); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}
	return buf.Bytes(), nil
}
