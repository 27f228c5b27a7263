package pixel

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestNormalize_Passthrough(t *testing.T) {
	// WHAT: A well-formed *Buffer is returned unchanged.
	// WHY: Pre-built descriptors must not be copied or re-validated away.
	src := New(3, 2)
	got, err := Normalize(src, Meta{})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != src {
		t.Error("expected the same *Buffer back")
	}
}

func TestNormalize_RawBytes(t *testing.T) {
	// WHAT: Raw RGBA bytes plus meta dimensions build a buffer.
	// WHY: Callers hand over capture output without re-wrapping it.
	raw := make([]byte, 2*2*4)
	got, err := Normalize(raw, Meta{Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Width != 2 || got.Height != 2 {
		t.Errorf("dimensions = %dx%d, want 2x2", got.Width, got.Height)
	}
}

func TestNormalize_Base64(t *testing.T) {
	// WHAT: A base64 string decodes to raw RGBA.
	// WHY: The capture collaborator returns base64-encoded output.
	raw := []byte{255, 0, 0, 255}
	enc := base64.StdEncoding.EncodeToString(raw)
	got, err := Normalize(enc, Meta{Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Pix[0] != 255 {
		t.Errorf("Pix[0] = %d, want 255", got.Pix[0])
	}
}

func TestNormalize_BadShape(t *testing.T) {
	// WHAT: Unsupported types surface ErrInputShape.
	// WHY: Contract violations must not be silently coerced.
	if _, err := Normalize(42, Meta{}); !errors.Is(err, ErrInputShape) {
		t.Errorf("err = %v, want ErrInputShape", err)
	}
}

func TestNormalize_InvariantViolation(t *testing.T) {
	// WHAT: Byte count must equal width*height*4.
	// WHY: A truncated buffer would make every downstream index unsafe.
	raw := make([]byte, 7)
	if _, err := Normalize(raw, Meta{Width: 2, Height: 2}); !errors.Is(err, ErrInputShape) {
		t.Errorf("err = %v, want ErrInputShape", err)
	}
}

func TestNormalize_MissingDimensions(t *testing.T) {
	// WHAT: Raw bytes without meta dimensions are rejected.
	// WHY: Raw RGBA carries no intrinsic geometry.
	raw := make([]byte, 16)
	if _, err := Normalize(raw, Meta{}); !errors.Is(err, ErrMissingDimensions) {
		t.Errorf("err = %v, want ErrMissingDimensions", err)
	}
}

func TestNormalize_EmptyImage(t *testing.T) {
	// WHAT: Zero bytes with a zero dimension is the valid empty image —
	// either axis alone suffices, and the non-zero axis is preserved.
	// WHY: Zero width or height means trivially identical, not an error.
	for _, meta := range []Meta{{}, {Width: 0, Height: 5}, {Width: 7, Height: 0}} {
		got, err := Normalize([]byte{}, meta)
		if err != nil {
			t.Fatalf("Normalize(%dx%d): %v", meta.Width, meta.Height, err)
		}
		if !got.Empty() {
			t.Errorf("Normalize(%dx%d): expected an empty buffer", meta.Width, meta.Height)
		}
		if got.Width != meta.Width || got.Height != meta.Height {
			t.Errorf("dims = %dx%d, want %dx%d", got.Width, got.Height, meta.Width, meta.Height)
		}
	}
}

func TestNormalize_NegativeDimensions(t *testing.T) {
	// WHAT: Negative dimensions are rejected even with empty bytes.
	// WHY: Only zero is the trivially-identical degenerate shape.
	if _, err := Normalize([]byte{}, Meta{Width: -1, Height: 5}); !errors.Is(err, ErrMissingDimensions) {
		t.Errorf("err = %v, want ErrMissingDimensions", err)
	}
}

func TestLuminanceAt(t *testing.T) {
	// WHAT: Luminance follows 0.299R + 0.587G + 0.114B, alpha ignored.
	// WHY: The SSIM comparator depends on this exact weighting.
	b := New(1, 1)
	b.Pix[0], b.Pix[1], b.Pix[2], b.Pix[3] = 255, 255, 255, 0
	if got := b.LuminanceAt(0, 0); got != 255 {
		t.Errorf("white luminance = %v, want 255", got)
	}
	b.Pix[0], b.Pix[1], b.Pix[2] = 255, 0, 0
	if got := b.LuminanceAt(0, 0); got != 0.299*float64(255) {
		t.Errorf("red luminance = %v, want %v", got, 0.299*float64(255))
	}
}
