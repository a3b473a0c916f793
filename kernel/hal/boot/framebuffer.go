// Package boot describes the data handed to the kernel by the loader.
package boot

import (
	"mikango/kernel"
	"unsafe"
)

// PixelFormat describes the byte order of a 32-bit frame buffer pixel.
type PixelFormat uint32

// Supported pixel formats. The fourth byte of each pixel is reserved.
const (
	PixelFormatRGB PixelFormat = iota
	PixelFormatBGR
)

const bytesPerPixel = 4

// ErrInvalidFrameBuffer is returned when the loader supplied frame buffer
// description cannot be used.
var ErrInvalidFrameBuffer = &kernel.Error{Module: "boot", Message: "invalid frame buffer configuration"}

// FrameBufferConfig describes the linear frame buffer set up by the loader.
// Its layout is shared with the loader and must not change.
type FrameBufferConfig struct {
	FrameBuffer          uintptr
	PixelsPerScanLine    uint32
	HorizontalResolution uint32
	VerticalResolution   uint32
	PixelFormat          PixelFormat
}

// FrameBufferConfigAt returns the configuration the loader placed at addr.
func FrameBufferConfigAt(addr uintptr) *FrameBufferConfig {
	return (*FrameBufferConfig)(unsafe.Pointer(addr))
}

// Validate checks that c describes a usable frame buffer.
func (c *FrameBufferConfig) Validate() *kernel.Error {
	switch {
	case c == nil, c.FrameBuffer == 0:
		return ErrInvalidFrameBuffer
	case c.HorizontalResolution == 0, c.VerticalResolution == 0:
		return ErrInvalidFrameBuffer
	case c.PixelsPerScanLine < c.HorizontalResolution:
		return ErrInvalidFrameBuffer
	case c.PixelFormat != PixelFormatRGB && c.PixelFormat != PixelFormatBGR:
		return ErrInvalidFrameBuffer
	}

	return nil
}

// Size returns the size of the frame buffer in bytes.
func (c *FrameBufferConfig) Size() uintptr {
	return uintptr(c.PixelsPerScanLine) * uintptr(c.VerticalResolution) * bytesPerPixel
}
