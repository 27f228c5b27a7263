// Package pixel defines the raw RGBA buffer consumed by the comparison
// engine and normalizes the image shapes callers are allowed to supply.
//
// The engine never decodes compressed formats. A Buffer is already-decoded
// RGBA, 8 bits per channel, row-major, 4 bytes per pixel. Zero width or
// height is valid and denotes a trivially identical empty image.
package pixel

import (
	"encoding/base64"
	"fmt"
)

// Buffer is an immutable raw RGBA image. Invariant:
// len(Pix) == Width*Height*4. Components treat it as read-only for the
// duration of a validation call.
type Buffer struct {
	Pix    []byte
	Width  int
	Height int
}

// Meta carries externally supplied dimensions for raw byte or base64 input.
type Meta struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// New allocates a zeroed (all transparent black) buffer.
func New(width, height int) *Buffer {
	return &Buffer{
		Pix:    make([]byte, width*height*4),
		Width:  width,
		Height: height,
	}
}

// Empty reports whether the buffer has zero area.
func (b *Buffer) Empty() bool {
	return b.Width == 0 || b.Height == 0
}

// Offset returns the index of pixel (x, y) in Pix. No bounds check.
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * 4
}

// LuminanceAt returns the ITU-R BT.601 luminance of pixel (x, y).
// Alpha is ignored throughout the engine.
func (b *Buffer) LuminanceAt(x, y int) float64 {
	o := b.Offset(x, y)
	return 0.299*float64(b.Pix[o]) + 0.587*float64(b.Pix[o+1]) + 0.114*float64(b.Pix[o+2])
}

// Normalize converts a caller-supplied image into a Buffer.
//
// Accepted shapes:
//   - *Buffer or Buffer — used as-is after an invariant check
//   - []byte            — raw RGBA bytes, dimensions from meta
//   - string            — base64-encoded raw RGBA bytes, dimensions from meta
//
// This path never decodes a compressed format; it reinterprets raw bytes
// as RGBA.
func Normalize(img any, meta Meta) (*Buffer, error) {
	switch v := img.(type) {
	case *Buffer:
		return checked(v)
	case Buffer:
		return checked(&v)
	case []byte:
		return fromRaw(v, meta)
	case string:
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("pixel: decode base64: %v: %w", err, ErrInputShape)
		}
		return fromRaw(raw, meta)
	default:
		return nil, fmt.Errorf("pixel: got %T: %w", img, ErrInputShape)
	}
}

func fromRaw(raw []byte, meta Meta) (*Buffer, error) {
	if meta.Width < 0 || meta.Height < 0 {
		return nil, ErrMissingDimensions
	}
	if meta.Width == 0 || meta.Height == 0 {
		// A zero dimension with no bytes is the legitimate empty image.
		// Bytes without dimensions means the caller forgot the meta.
		if len(raw) == 0 {
			return &Buffer{Width: meta.Width, Height: meta.Height}, nil
		}
		return nil, ErrMissingDimensions
	}
	return checked(&Buffer{Pix: raw, Width: meta.Width, Height: meta.Height})
}

func checked(b *Buffer) (*Buffer, error) {
	want := b.Width * b.Height * 4
	if len(b.Pix) != want {
		return nil, fmt.Errorf("pixel: %d bytes for %dx%d, want %d (width*height*4): %w",
			len(b.Pix), b.Width, b.Height, want, ErrInputShape)
	}
	return b, nil
}

// SameSize reports whether two buffers have identical dimensions.
func SameSize(a, b *Buffer) bool {
	return a.Width == b.Width && a.Height == b.Height
}
