//go:build windows

package zerocopy

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
	"github.com/Skryldev/screen-streamer/memorypool"
	"github.com/Skryldev/screen-streamer/pixel"
)

const supported = true

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	gdi32              = windows.NewLazySystemDLL("gdi32.dll")
	procGetDesktopWnd  = user32.NewProc("GetDesktopWindow")
	procGetDC          = user32.NewProc("GetDC")
	procReleaseDC      = user32.NewProc("ReleaseDC")
	procGetSysMetrics  = user32.NewProc("GetSystemMetrics")
	procCreateCompatDC = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC       = gdi32.NewProc("DeleteDC")
	procCreateDIBSec   = gdi32.NewProc("CreateDIBSection")
	procSelectObject   = gdi32.NewProc("SelectObject")
	procDeleteObject   = gdi32.NewProc("DeleteObject")
	procBitBlt         = gdi32.NewProc("BitBlt")
)

const (
	smCxScreen   = 0
	smCyScreen   = 1
	biRGB        = 0
	dibRGBColors = 0
	srcCopy      = 0x00CC0020
)

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// gdiCapturer blits the desktop into a DIB section whose backing memory is
// directly mapped, avoiding the GetDIBits copy the normal GDI path needs.
// Only the primary display is reachable this way; other indices fail and
// the optimizer falls back.
type gdiCapturer struct {
	pool *memorypool.Pool
	conv *pixel.Converter
}

func newPlatformCapturer(pool *memorypool.Pool, conv *pixel.Converter) platformCapturer {
	return &gdiCapturer{pool: pool, conv: conv}
}

func (g *gdiCapturer) capture(displayIndex int) (*core.RawImage, error) {
	if displayIndex != 0 {
		return nil, apperrors.New(apperrors.CategoryPlatform, "gdi.capture",
			fmt.Errorf("dib-section path reaches the primary display only, index %d requested", displayIndex))
	}

	desktop, _, _ := procGetDesktopWnd.Call()
	desktopDC, _, _ := procGetDC.Call(desktop)
	if desktopDC == 0 {
		return nil, apperrors.New(apperrors.CategoryPlatform, "gdi.getdc", fmt.Errorf("GetDC failed"))
	}
	defer procReleaseDC.Call(desktop, desktopDC)

	memDC, _, _ := procCreateCompatDC.Call(desktopDC)
	if memDC == 0 {
		return nil, apperrors.New(apperrors.CategoryPlatform, "gdi.createdc", fmt.Errorf("CreateCompatibleDC failed"))
	}
	defer procDeleteDC.Call(memDC)

	w, _, _ := procGetSysMetrics.Call(smCxScreen)
	h, _, _ := procGetSysMetrics.Call(smCyScreen)
	width, height := int(int32(w)), int(int32(h))
	if width <= 0 || height <= 0 {
		return nil, apperrors.New(apperrors.CategoryPlatform, "gdi.metrics", apperrors.ErrInvalidDimensions)
	}

	bi := bitmapInfo{Header: bitmapInfoHeader{
		Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:       int32(width),
		Height:      -int32(height), // top-down DIB
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}}

	var bits unsafe.Pointer
	hbitmap, _, _ := procCreateDIBSec.Call(
		memDC,
		uintptr(unsafe.Pointer(&bi)),
		dibRGBColors,
		uintptr(unsafe.Pointer(&bits)),
		0, 0,
	)
	if hbitmap == 0 || bits == nil {
		return nil, apperrors.New(apperrors.CategoryPlatform, "gdi.dibsection", fmt.Errorf("CreateDIBSection failed"))
	}
	defer procDeleteObject.Call(hbitmap)

	old, _, _ := procSelectObject.Call(memDC, hbitmap)
	defer procSelectObject.Call(memDC, old)

	ok, _, _ := procBitBlt.Call(memDC, 0, 0, uintptr(width), uintptr(height), desktopDC, 0, 0, srcCopy)
	if ok == 0 {
		return nil, apperrors.New(apperrors.CategoryPlatform, "gdi.bitblt", fmt.Errorf("BitBlt failed"))
	}

	// The blit landed in our mapped DIB memory; one copy into a pooled
	// buffer replaces the blit + GetDIBits pair of the normal path.
	size := width * height * 4
	buf, err := g.pool.Acquire(size)
	if err != nil {
		return nil, err
	}
	src := unsafe.Slice((*byte)(bits), size)
	copy(buf.Data(), src)

	data := buf.Detach()
	g.conv.BGRAToRGBA(data)
	return core.NewRawImage(data, width, height, core.FormatRGBA8), nil
}
