package encoder

import (
	"bytes"
	"context"
	"image/png"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// PNG encodes frames losslessly with the standard library codec.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanEncode(format core.Format) bool { return format == core.FormatPNG }

func (p *PNG) Encode(ctx context.Context, img *core.RawImage, cfg core.EncodeConfig) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}

	rgba, err := frameToRGBA(img)
	if err != nil {
		return nil, err
	}

	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	// Effort above the balanced default buys a smaller file; PNG is always
	// lossless so Quality is ignored.
	if cfg.Effort >= 5 {
		enc.CompressionLevel = png.BestCompression
	} else if cfg.Effort == 0 {
		enc.CompressionLevel = png.BestSpeed
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, rgba); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}
	return buf.Bytes(), nil
}
