// Package encoder provides ImageEncoder implementations over raw frames.
package encoder

import (
	"fmt"
	"image"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
	"github.com/Skryldev/screen-streamer/pixel"
	"github.com/Skryldev/screen-streamer/utils"
)

var conv = pixel.NewConverter()

// frameToRGBA bridges a RawImage into an *image.RGBA the codec packages
// accept.  RGBA frames are wrapped without copying; BGRA and RGB frames are
// converted into a fresh buffer so the caller's frame stays untouched.
func frameToRGBA(img *core.RawImage) (*image.RGBA, error) {
	if img == nil || !img.IsValid() {
		return nil, apperrors.New(apperrors.CategoryEncode, "encoder.input", apperrors.ErrEmptyInput)
	}

	switch img.Format {
	case core.FormatRGBA8:
		m, _ := utils.ToRGBA(img)
		return m, nil

	case core.FormatBGRA8:
		data := utils.CloneBytes(img.Data)
		conv.BGRAToRGBA(data)
		stride := img.Stride
		if stride == 0 {
			stride = img.Width * 4
		}
		return &image.RGBA{
			Pix:    data,
			Stride: stride,
			Rect:   image.Rect(0, 0, img.Width, img.Height),
		}, nil

	case core.FormatRGB8, core.FormatBGR8:
		src := img.Data
		if img.Format == core.FormatBGR8 {
			src = utils.CloneBytes(src)
			conv.BGRToRGB(src)
		}
		m := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		for i, j := 0, 0; i+2 < len(src) && j+3 < len(m.Pix); i, j = i+3, j+4 {
			m.Pix[j] = src[i]
			m.Pix[j+1] = src[i+1]
			m.Pix[j+2] = src[i+2]
			m.Pix[j+3] = 0xFF
		}
		return m, nil

	default:
		return nil, apperrors.New(apperrors.CategoryEncode, "encoder.input",
			fmt.Errorf("%w: %s", apperrors.ErrInvalidFormat, img.Format))
	}
}
