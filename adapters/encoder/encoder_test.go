package encoder

import (
	"bytes"
	"context"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/webp"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// testFrame builds a small gradient frame in the given pixel format.
func testFrame(t *testing.T, format core.PixelFormat, w, h int) *core.RawImage {
	t.Helper()
	bpp := format.BytesPerPixel()
	data := make([]byte, w*h*bpp)
	for i := range data {
		data[i] = byte(i)
	}
	if format.HasAlpha() {
		for i := bpp - 1; i < len(data); i += bpp {
			data[i] = 0xFF
		}
	}
	return core.NewRawImage(data, w, h, format)
}

func TestWebPEncodeDecodable(t *testing.T) {
	enc := NewWebP(80)
	img := testFrame(t, core.FormatRGBA8, 48, 32)

	data, err := enc.Encode(context.Background(), img, core.EncodeConfig{Quality: 80})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 48 || b.Dy() != 32 {
		t.Errorf("decoded dimensions: got %dx%d, want 48x32", b.Dx(), b.Dy())
	}
}

func TestWebPLossless(t *testing.T) {
	enc := NewWebP(80)
	img := testFrame(t, core.FormatRGBA8, 16, 16)

	data, err := enc.Encode(context.Background(), img, core.EncodeConfig{Lossless: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := webp.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode lossless: %v", err)
	}
}

func TestWebPAcceptsBGRA(t *testing.T) {
	enc := NewWebP(80)
	img := testFrame(t, core.FormatBGRA8, 16, 16)
	original := append([]byte(nil), img.Data...)

	if _, err := enc.Encode(context.Background(), img, core.EncodeConfig{Quality: 80}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Conversion must not mutate the caller's frame.
	if !bytes.Equal(img.Data, original) {
		t.Error("input frame mutated during encode")
	}
}

func TestPNGEncodeDecodable(t *testing.T) {
	enc := NewPNG()
	img := testFrame(t, core.FormatRGBA8, 20, 10)

	data, err := enc.Encode(context.Background(), img, core.EncodeConfig{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("decoded dimensions: got %dx%d, want 20x10", b.Dx(), b.Dy())
	}
}

func TestJPEGEncodeDecodable(t *testing.T) {
	enc := NewJPEG(85)
	img := testFrame(t, core.FormatRGB8, 20, 10)

	data, err := enc.Encode(context.Background(), img, core.EncodeConfig{Quality: 85})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestEncodeRejectsNilFrame(t *testing.T) {
	enc := NewWebP(80)
	_, err := enc.Encode(context.Background(), nil, core.EncodeConfig{})
	if err == nil {
		t.Fatal("expected error for nil frame")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryEncode) {
		t.Errorf("error category: got %v", err)
	}
}

func TestEncodeRejectsCancelledContext(t *testing.T) {
	enc := NewPNG()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := enc.Encode(ctx, testFrame(t, core.FormatRGBA8, 4, 4), core.EncodeConfig{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestCanEncode(t *testing.T) {
	if !NewWebP(0).CanEncode(core.FormatWebP) || NewWebP(0).CanEncode(core.FormatPNG) {
		t.Error("webp CanEncode wrong")
	}
	if !NewPNG().CanEncode(core.FormatPNG) || NewPNG().CanEncode(core.FormatJPEG) {
		t.Error("png CanEncode wrong")
	}
	if !NewJPEG(0).CanEncode(core.FormatJPEG) || NewJPEG(0).CanEncode(core.FormatWebP) {
		t.Error("jpeg CanEncode wrong")
	}
}
