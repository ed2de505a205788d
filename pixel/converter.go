// Package pixel provides channel-order conversions over packed pixel
// buffers.  The execution strategy (block width) is chosen once at
// construction from the CPU's vector capabilities and reused for the
// lifetime of the Converter.
package pixel

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// blockWidth selects how many bytes a conversion processes per inner-loop
// iteration.  Wide blocks are written as fixed-count unrolled swaps so the
// compiler can keep them in vector registers.
type blockWidth int

const (
	blockScalar blockWidth = 4  // one pixel at a time
	block16     blockWidth = 16 // 4 RGBA pixels
	block32     blockWidth = 32 // 8 RGBA pixels
)

// Converter performs pixel-format conversions with a fixed execution
// strategy.  Safe for concurrent use.
type Converter struct {
	width    blockWidth
	features []string
}

// NewConverter detects CPU vector capabilities and returns a Converter
// locked to the widest available strategy.
func NewConverter() *Converter {
	c := &Converter{width: blockScalar}

	if cpu.X86.HasAVX2 {
		c.width = block32
		c.features = append(c.features, "AVX2")
	}
	if cpu.X86.HasSSE41 {
		if c.width < block16 {
			c.width = block16
		}
		c.features = append(c.features, "SSE4.1")
	}
	if cpu.X86.HasSSSE3 {
		if c.width < block16 {
			c.width = block16
		}
		c.features = append(c.features, "SSSE3")
	}
	if cpu.ARM64.HasASIMD {
		if c.width < block16 {
			c.width = block16
		}
		c.features = append(c.features, "NEON")
	}
	return c
}

// Capabilities returns a summary of the detected instruction sets.
func (c *Converter) Capabilities() string {
	if len(c.features) == 0 {
		return "None (scalar)"
	}
	return strings.Join(c.features, ", ")
}

// BGRAToRGBA swaps the blue and red channels of every 4-byte pixel in place.
// Applying it twice restores the original buffer.  A trailing partial pixel
// is left untouched.
func (c *Converter) BGRAToRGBA(data []byte) {
	n := len(data) &^ 3 // complete pixels only

	i := 0
	switch c.width {
	case block32:
		for ; i+32 <= n; i += 32 {
			b := data[i : i+32 : i+32]
			b[0], b[2] = b[2], b[0]
			b[4], b[6] = b[6], b[4]
			b[8], b[10] = b[10], b[8]
			b[12], b[14] = b[14], b[12]
			b[16], b[18] = b[18], b[16]
			b[20], b[22] = b[22], b[20]
			b[24], b[26] = b[26], b[24]
			b[28], b[30] = b[30], b[28]
		}
	case block16:
		for ; i+16 <= n; i += 16 {
			b := data[i : i+16 : i+16]
			b[0], b[2] = b[2], b[0]
			b[4], b[6] = b[6], b[4]
			b[8], b[10] = b[10], b[8]
			b[12], b[14] = b[14], b[12]
		}
	}
	// Scalar tail (and the whole buffer on the scalar strategy).
	for ; i+4 <= n; i += 4 {
		data[i], data[i+2] = data[i+2], data[i]
	}
}

// BGRToRGB swaps the blue and red channels of every 3-byte pixel in place.
// The 3-byte stride defeats wide blocking, so this is always scalar.
// A trailing partial pixel is left untouched.
func (c *Converter) BGRToRGB(data []byte) {
	n := len(data) - len(data)%3
	for i := 0; i+3 <= n; i += 3 {
		data[i], data[i+2] = data[i+2], data[i]
	}
}

// RGBAToRGB drops the alpha channel, writing three output bytes for every
// four input bytes.  dst must hold 3*len(src)/4 bytes for well-formed input;
// conversion stops at whichever buffer runs out of complete pixels first.
func (c *Converter) RGBAToRGB(src, dst []byte) {
	pixels := len(src) / 4
	if d := len(dst) / 3; d < pixels {
		pixels = d
	}

	si, di := 0, 0
	for p := 0; p < pixels; p++ {
		dst[di] = src[si]
		dst[di+1] = src[si+1]
		dst[di+2] = src[si+2]
		si += 4
		di += 3
	}
}
