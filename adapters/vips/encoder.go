// Package vips provides a libvips-powered encoder backend.  It trades the
// pure-Go codecs for libvips throughput when cgo is acceptable.
package vips

import (
	"context"
	"fmt"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
	"github.com/Skryldev/screen-streamer/pixel"
	"github.com/Skryldev/screen-streamer/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Backend is a libvips-powered ImageEncoder covering WebP, PNG and JPEG.
// Safe for concurrent use across goroutines.
type Backend struct {
	cfg  BackendConfig
	conv *pixel.Converter
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg, conv: pixel.NewConverter()}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

func (b *Backend) CanEncode(f core.Format) bool {
	switch f {
	case core.FormatJPEG, core.FormatPNG, core.FormatWebP:
		return true
	}
	return false
}

// Encode compresses a raw frame to WebP, the streaming default.  Use For()
// to bind the backend to another container format.
func (b *Backend) Encode(ctx context.Context, img *core.RawImage, cfg core.EncodeConfig) ([]byte, error) {
	return b.EncodeAs(ctx, img, core.FormatWebP, cfg)
}

// For returns an ImageEncoder bound to one output format, suitable for
// registering the same backend under several formats.
func (b *Backend) For(format core.Format) core.ImageEncoder {
	return boundEncoder{backend: b, format: format}
}

type boundEncoder struct {
	backend *Backend
	format  core.Format
}

func (e boundEncoder) Encode(ctx context.Context, img *core.RawImage, cfg core.EncodeConfig) ([]byte, error) {
	return e.backend.EncodeAs(ctx, img, e.format, cfg)
}

func (e boundEncoder) CanEncode(f core.Format) bool { return f == e.format }

// EncodeAs compresses a raw frame into the given container format.
func (b *Backend) EncodeAs(ctx context.Context, img *core.RawImage, format core.Format, cfg core.EncodeConfig) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode", err)
	}

	ref, err := b.importFrame(img)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	quality := cfg.Quality
	if quality <= 0 {
		quality = b.cfg.DefaultQuality
	}

	switch format {
	case core.FormatWebP:
		ep := govips.NewWebpExportParams()
		ep.Quality = quality
		ep.Lossless = cfg.Lossless
		ep.ReductionEffort = cfg.Effort
		ep.StripMetadata = true
		buf, _, err := ref.ExportWebp(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.webp", err)
		}
		return buf, nil

	case core.FormatPNG:
		ep := govips.NewPngExportParams()
		ep.StripMetadata = true
		buf, _, err := ref.ExportPng(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.png", err)
		}
		return buf, nil

	case core.FormatJPEG:
		ep := govips.NewJpegExportParams()
		ep.Quality = quality
		ep.StripMetadata = true
		buf, _, err := ref.ExportJpeg(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.jpeg", err)
		}
		return buf, nil

	default:
		return nil, apperrors.New(apperrors.CategoryEncode, "vips.encode",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedCodec, format))
	}
}

// importFrame wraps raw pixels in a vips image without an intermediate
// container encode.
func (b *Backend) importFrame(img *core.RawImage) (*govips.ImageRef, error) {
	if img == nil || !img.IsValid() {
		return nil, apperrors.New(apperrors.CategoryEncode, "vips.import", apperrors.ErrEmptyInput)
	}

	var data []byte
	var bands int
	switch img.Format {
	case core.FormatRGBA8:
		data, bands = img.Data, 4
	case core.FormatBGRA8:
		data = utils.CloneBytes(img.Data)
		b.conv.BGRAToRGBA(data)
		bands = 4
	case core.FormatRGB8:
		data, bands = img.Data, 3
	default:
		return nil, apperrors.New(apperrors.CategoryEncode, "vips.import",
			fmt.Errorf("%w: %s", apperrors.ErrInvalidFormat, img.Format))
	}

	ref, err := govips.NewImageFromMemory(data, img.Width, img.Height, bands)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.import", err)
	}
	return ref, nil
}

var _ core.ImageEncoder = (*Backend)(nil)
