package ssim

import (
	"errors"
	"math"
	"testing"

	"github.com/hazyhaar/regard/pixel"
)

// fill paints every pixel of b with the given RGB value, alpha 255.
func fill(b *pixel.Buffer, r, g, bl byte) {
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, 255
	}
}

// gradient paints a deterministic non-uniform pattern.
func gradient(b *pixel.Buffer) {
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			o := b.Offset(x, y)
			b.Pix[o] = byte((x * 7) % 256)
			b.Pix[o+1] = byte((y * 13) % 256)
			b.Pix[o+2] = byte((x + y) % 256)
			b.Pix[o+3] = 255
		}
	}
}

func TestCompare_Reflexive(t *testing.T) {
	// WHAT: ssim(X, X) == 1 for any non-degenerate X.
	// WHY: Reflexivity is the baseline sanity property of the metric.
	img := pixel.New(32, 24)
	gradient(img)
	got, err := Compare(img, img)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("Compare(X, X) = %v, want 1.0", got)
	}
}

func TestCompare_UniformIdentical(t *testing.T) {
	// WHAT: Two identical uniform images score exactly 1.
	// WHY: Zero variance and zero covariance must not destabilize the formula.
	a := pixel.New(16, 16)
	b := pixel.New(16, 16)
	got, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got != 1 {
		t.Errorf("uniform black pair = %v, want 1.0", got)
	}
}

func TestCompare_EmptyImage(t *testing.T) {
	// WHAT: Zero width or height scores 1.0 immediately.
	// WHY: Degenerate images are defined as trivially identical, not errors.
	a := &pixel.Buffer{Width: 0, Height: 10}
	b := &pixel.Buffer{Width: 0, Height: 10}
	got, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got != 1 {
		t.Errorf("empty pair = %v, want 1.0", got)
	}
}

func TestCompare_BlackVsWhite(t *testing.T) {
	// WHAT: All-black vs all-white yields similarity close to 0.
	// WHY: Extreme dissimilarity is the other anchor of the metric.
	a := pixel.New(16, 16)
	b := pixel.New(16, 16)
	fill(b, 255, 255, 255)
	got, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got > 0.01 {
		t.Errorf("black vs white = %v, want close to 0", got)
	}
}

func TestCompare_DimensionMismatch(t *testing.T) {
	// WHAT: Differing dimensions are an error, never resized.
	// WHY: Silent truncation would invent or hide differences.
	a := pixel.New(8, 8)
	b := pixel.New(8, 9)
	if _, err := Compare(a, b); !errors.Is(err, pixel.ErrDimensionMismatch) {
		t.Errorf("err = %v, want pixel.ErrDimensionMismatch", err)
	}
}

func TestCompare_EdgeReplication(t *testing.T) {
	// WHAT: Images not divisible by the window stride still compare to 1.
	// WHY: Boundary windows clamp coordinates instead of zero-padding;
	// zero-padding would drag identical borders below 1.
	img := pixel.New(13, 9)
	gradient(img)
	got, err := Compare(img, img)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("Compare(X, X) on 13x9 = %v, want 1.0", got)
	}
}

func TestCompare_LocalizedChange(t *testing.T) {
	// WHAT: A small local change lowers the score but keeps it well above 0.
	// WHY: The windowed mean localizes damage instead of averaging it away
	// globally; untouched windows still score 1.
	a := pixel.New(64, 64)
	b := pixel.New(64, 64)
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			o := b.Offset(x, y)
			b.Pix[o], b.Pix[o+1], b.Pix[o+2], b.Pix[o+3] = 255, 255, 255, 255
		}
	}
	got, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got >= 0.95 || got <= 0.5 {
		t.Errorf("localized change = %v, want in (0.5, 0.95)", got)
	}
}
