package utils

import (
	"image"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// DetectFormat sniffs the first bytes of an encoded frame and returns its format.
func DetectFormat(data []byte) core.Format {
	if len(data) < 4 {
		return core.FormatUnknown
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return core.FormatJPEG
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return core.FormatPNG
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return core.FormatWebP
	}
	// Fallback to net/http sniffing.
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return core.FormatJPEG
	case "image/png":
		return core.FormatPNG
	case "image/webp":
		return core.FormatWebP
	}
	return core.FormatUnknown
}

// ScaleDimensions computes output (w, h) preserving aspect ratio.
// Pass 0 for either axis to calculate it from the other.
func ScaleDimensions(srcW, srcH, targetW, targetH int) (int, int) {
	if targetW == 0 && targetH == 0 {
		return srcW, srcH
	}
	if targetW == 0 {
		ratio := float64(targetH) / float64(srcH)
		return int(float64(srcW) * ratio), targetH
	}
	if targetH == 0 {
		ratio := float64(targetW) / float64(srcW)
		return targetW, int(float64(srcH) * ratio)
	}
	return targetW, targetH
}

// ToRGBA wraps a RawImage in an *image.RGBA without copying when the frame is
// already tightly packed RGBA; other formats return false.
func ToRGBA(img *core.RawImage) (*image.RGBA, bool) {
	if img == nil || img.Format != core.FormatRGBA8 {
		return nil, false
	}
	stride := img.Stride
	if stride == 0 {
		stride = img.Width * 4
	}
	return &image.RGBA{
		Pix:    img.Data,
		Stride: stride,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}, true
}

// FromRGBA converts an *image.RGBA back into a RawImage, reusing its pixel
// slice.
func FromRGBA(img *image.RGBA) *core.RawImage {
	b := img.Bounds()
	return core.NewRawImageWithStride(img.Pix, b.Dx(), b.Dy(), core.FormatRGBA8, img.Stride)
}

// Downscale resizes an RGBA frame so its width does not exceed maxWidth,
// preserving aspect ratio.  Frames at or under the limit are returned
// unchanged.  Approximate bilinear filtering keeps the per-frame cost low
// enough for real-time use.
func Downscale(img *core.RawImage, maxWidth int) (*core.RawImage, error) {
	if maxWidth <= 0 || img.Width <= maxWidth {
		return img, nil
	}
	src, ok := ToRGBA(img)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryPipeline, "utils.downscale", apperrors.ErrInvalidFormat)
	}
	w, h := ScaleDimensions(img.Width, img.Height, maxWidth, 0)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return FromRGBA(dst), nil
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
