package pixel

import "errors"

// ErrInputShape is returned when an image argument is neither a pixel
// buffer, a raw RGBA byte slice, nor a base64 string — or when the byte
// count does not satisfy the width*height*4 invariant.
var ErrInputShape = errors.New("pixel: image must be a *pixel.Buffer, raw RGBA []byte, or base64 string")

// ErrMissingDimensions is returned when raw bytes or a base64 string are
// supplied without explicit width and height.
var ErrMissingDimensions = errors.New("pixel: raw image bytes require explicit width and height")

// ErrDimensionMismatch is returned when two buffers that must be compared
// do not share the same width and height. The engine never resizes.
var ErrDimensionMismatch = errors.New("pixel: image dimensions differ")
