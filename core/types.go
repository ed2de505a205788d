package core

import (
	"fmt"
	"os"
	"time"
)

// PixelFormat identifies the channel order and width of packed pixel data.
type PixelFormat string

const (
	FormatRGBA8  PixelFormat = "RGBA8"
	FormatBGRA8  PixelFormat = "BGRA8"
	FormatRGB8   PixelFormat = "RGB8"
	FormatBGR8   PixelFormat = "BGR8"
	FormatGray8  PixelFormat = "Gray8"
	FormatGrayA8 PixelFormat = "GrayA8"
)

// BytesPerPixel returns the packed size of one pixel.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA8, FormatBGRA8:
		return 4
	case FormatRGB8, FormatBGR8:
		return 3
	case FormatGrayA8:
		return 2
	case FormatGray8:
		return 1
	}
	return 0
}

// HasAlpha reports whether the format carries an alpha channel.
func (f PixelFormat) HasAlpha() bool {
	return f == FormatRGBA8 || f == FormatBGRA8 || f == FormatGrayA8
}

// ChannelCount returns the number of channels, alpha included.
func (f PixelFormat) ChannelCount() int { return f.BytesPerPixel() }

func (f PixelFormat) String() string { return string(f) }

// Format identifies an output image codec.
type Format string

const (
	FormatWebP    Format = "webp"
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatUnknown Format = "unknown"
)

// RawImage is an owned pixel buffer produced by capture and consumed by
// encoders.  It is treated as immutable once constructed.
type RawImage struct {
	Data   []byte
	Width  int
	Height int
	Format PixelFormat
	// Stride is bytes per row and may include padding.
	Stride int
}

// NewRawImage builds a RawImage with a tightly packed stride.
func NewRawImage(data []byte, width, height int, format PixelFormat) *RawImage {
	return &RawImage{
		Data:   data,
		Width:  width,
		Height: height,
		Format: format,
		Stride: width * format.BytesPerPixel(),
	}
}

// NewRawImageWithStride builds a RawImage with an explicit row stride.
func NewRawImageWithStride(data []byte, width, height int, format PixelFormat, stride int) *RawImage {
	return &RawImage{Data: data, Width: width, Height: height, Format: format, Stride: stride}
}

// Size returns the byte length of the pixel buffer.
func (r *RawImage) Size() int { return len(r.Data) }

// PixelCount returns width × height.
func (r *RawImage) PixelCount() int { return r.Width * r.Height }

// IsValid reports whether the buffer is large enough for the declared
// dimensions and stride.
func (r *RawImage) IsValid() bool {
	return len(r.Data) >= r.Stride*r.Height
}

// PixelAt returns the packed bytes of the pixel at (x, y), or nil when the
// coordinates are out of bounds.
func (r *RawImage) PixelAt(x, y int) []byte {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return nil
	}
	bpp := r.Format.BytesPerPixel()
	off := y*r.Stride + x*bpp
	if off+bpp > len(r.Data) {
		return nil
	}
	return r.Data[off : off+bpp]
}

// DisplayInfo describes one attached display.
type DisplayInfo struct {
	Index       int
	Name        string
	Width       int
	Height      int
	X           int
	Y           int
	ScaleFactor float64
	IsPrimary   bool
	RefreshRate int
	ColorDepth  int
}

// PixelCount returns the total pixel count of the display.
func (d DisplayInfo) PixelCount() int { return d.Width * d.Height }

// Bounds returns the display area as a Rectangle in virtual-desktop
// coordinates.
func (d DisplayInfo) Bounds() Rectangle {
	return Rectangle{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
}

// Rectangle is a screen region in virtual-desktop coordinates.
type Rectangle struct {
	X, Y          int
	Width, Height int
}

// ContainsPoint reports whether (px, py) lies inside the rectangle.
func (r Rectangle) ContainsPoint(px, py int) bool {
	return px >= r.X && py >= r.Y && px < r.X+r.Width && py < r.Y+r.Height
}

// Area returns width × height.
func (r Rectangle) Area() int { return r.Width * r.Height }

// EncodeConfig carries codec parameters.  Quality is 0-100; Effort trades
// encode speed for compression (0 fastest .. 6 best; maps to the WebP
// "method" parameter).
type EncodeConfig struct {
	Quality  int
	Effort   int
	Lossless bool
	// Passes is the number of entropy-analysis passes (1-10, 0 = codec default).
	Passes int
}

// FastEncode favours latency over size.
func FastEncode() EncodeConfig { return EncodeConfig{Quality: 75, Effort: 0, Passes: 1} }

// BalancedEncode is a reasonable quality/speed trade-off.
func BalancedEncode() EncodeConfig { return EncodeConfig{Quality: 85, Effort: 4, Passes: 6} }

// HighQualityEncode favours fidelity.
func HighQualityEncode() EncodeConfig { return EncodeConfig{Quality: 95, Effort: 6, Passes: 10} }

// LosslessEncode enables lossless compression.
func LosslessEncode() EncodeConfig {
	return EncodeConfig{Quality: 100, Effort: 6, Passes: 1, Lossless: true}
}

// Validate reports configuration errors.
func (c EncodeConfig) Validate() error {
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("encode config: quality must be 0-100, got %d", c.Quality)
	}
	if c.Effort < 0 || c.Effort > 6 {
		return fmt.Errorf("encode config: effort must be 0-6, got %d", c.Effort)
	}
	if c.Passes < 0 || c.Passes > 10 {
		return fmt.Errorf("encode config: passes must be 0-10, got %d", c.Passes)
	}
	return nil
}

// Screenshot is a single encoded capture with its metadata.
type Screenshot struct {
	Data         []byte
	Width        int
	Height       int
	DisplayIndex int
	Meta         CaptureMetadata
}

// Size returns the encoded byte length.
func (s *Screenshot) Size() int { return len(s.Data) }

// Save writes the encoded bytes to path.
func (s *Screenshot) Save(path string) error {
	return os.WriteFile(path, s.Data, 0o644)
}

// CaptureMetadata records how a Screenshot was produced.
type CaptureMetadata struct {
	Timestamp        time.Time
	CaptureDuration  time.Duration
	EncodingDuration time.Duration
	OriginalSize     int
	CompressedSize   int
	Implementation   string
}

// CompressionRatio returns compressed/original in 0.0-1.0.
func (m CaptureMetadata) CompressionRatio() float64 {
	if m.OriginalSize == 0 {
		return 0
	}
	return float64(m.CompressedSize) / float64(m.OriginalSize)
}

// SpaceSavingsPercent returns how much smaller the encoded frame is.
func (m CaptureMetadata) SpaceSavingsPercent() float64 {
	if m.OriginalSize == 0 {
		return 0
	}
	return (1 - m.CompressionRatio()) * 100
}

// TotalDuration returns capture plus encode time.
func (m CaptureMetadata) TotalDuration() time.Duration {
	return m.CaptureDuration + m.EncodingDuration
}

// PerformanceStats accumulates single-shot capture statistics on the facade.
type PerformanceStats struct {
	TotalCaptures      uint64
	SuccessfulCaptures uint64
	FailedCaptures     uint64
	TotalBytesCaptured uint64
	TotalBytesEncoded  uint64
	TotalCaptureTime   time.Duration
	TotalEncodingTime  time.Duration
	FastestCapture     time.Duration
	SlowestCapture     time.Duration
}

// SuccessRate returns the percentage of captures that succeeded.
func (p PerformanceStats) SuccessRate() float64 {
	if p.TotalCaptures == 0 {
		return 0
	}
	return float64(p.SuccessfulCaptures) / float64(p.TotalCaptures) * 100
}

// AverageCaptureTime returns the mean capture duration.
func (p PerformanceStats) AverageCaptureTime() time.Duration {
	if p.SuccessfulCaptures == 0 {
		return 0
	}
	return p.TotalCaptureTime / time.Duration(p.SuccessfulCaptures)
}

// AverageCompressionRatio returns encoded/captured bytes.
func (p PerformanceStats) AverageCompressionRatio() float64 {
	if p.TotalBytesCaptured == 0 {
		return 0
	}
	return float64(p.TotalBytesEncoded) / float64(p.TotalBytesCaptured)
}
