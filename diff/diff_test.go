package diff

import (
	"errors"
	"testing"

	"github.com/hazyhaar/regard/pixel"
)

// paint sets a rectangle of pixels to the given RGB value, alpha 255.
func paint(b *pixel.Buffer, x0, y0, w, h int, r, g, bl byte) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			o := b.Offset(x, y)
			b.Pix[o], b.Pix[o+1], b.Pix[o+2], b.Pix[o+3] = r, g, bl, 255
		}
	}
}

func TestDetect_SingleComponent(t *testing.T) {
	// WHAT: One white square on black yields exactly one region with an
	// exact bounding box and pixel count.
	// WHY: The detector must report components, not individual pixels.
	a := pixel.New(32, 32)
	b := pixel.New(32, 32)
	paint(b, 5, 5, 10, 10, 255, 255, 255)

	regions, err := Detect(a, b, DefaultThreshold)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(regions))
	}
	want := Region{X: 5, Y: 5, Width: 10, Height: 10, PixelCount: 100}
	if regions[0] != want {
		t.Errorf("region = %+v, want %+v", regions[0], want)
	}
}

func TestDetect_FourConnectivity(t *testing.T) {
	// WHAT: Two diagonally adjacent pixels form two components.
	// WHY: Connectivity is N/S/E/W only; diagonals never connect.
	a := pixel.New(8, 8)
	b := pixel.New(8, 8)
	paint(b, 2, 2, 1, 1, 255, 255, 255)
	paint(b, 3, 3, 1, 1, 255, 255, 255)

	regions, err := Detect(a, b, DefaultThreshold)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(regions) != 2 {
		t.Errorf("regions = %d, want 2 (diagonals must not connect)", len(regions))
	}
}

func TestDetect_ThresholdBoundary(t *testing.T) {
	// WHAT: A summed channel delta equal to the threshold is not flagged;
	// one above is.
	// WHY: The contract is strictly greater-than.
	a := pixel.New(4, 4)
	b := pixel.New(4, 4)
	paint(b, 0, 0, 1, 1, 10, 0, 0) // delta sum == 10
	paint(b, 2, 2, 1, 1, 11, 0, 0) // delta sum == 11

	regions, err := Detect(a, b, 10)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(regions))
	}
	if regions[0].X != 2 || regions[0].Y != 2 {
		t.Errorf("flagged region at (%d,%d), want (2,2)", regions[0].X, regions[0].Y)
	}
}

func TestDetect_ChannelsSummed(t *testing.T) {
	// WHAT: Small per-channel deltas that sum past the threshold are flagged.
	// WHY: The threshold applies to the channel sum, not per channel.
	a := pixel.New(2, 2)
	b := pixel.New(2, 2)
	paint(b, 0, 0, 1, 1, 4, 4, 4) // each channel below 10, sum 12

	regions, err := Detect(a, b, 10)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(regions) != 1 {
		t.Errorf("regions = %d, want 1 (channel deltas must be summed)", len(regions))
	}
}

func TestDetect_AlphaIgnored(t *testing.T) {
	// WHAT: An alpha-only change produces no regions.
	// WHY: Alpha is excluded from the per-pixel flag.
	a := pixel.New(2, 2)
	b := pixel.New(2, 2)
	b.Pix[3] = 255

	regions, err := Detect(a, b, DefaultThreshold)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("regions = %d, want 0", len(regions))
	}
}

func TestDetect_EmptyImage(t *testing.T) {
	// WHAT: Zero-area inputs return no regions and no error.
	// WHY: Degenerate images are trivially identical by definition.
	a := &pixel.Buffer{Width: 10, Height: 0}
	b := &pixel.Buffer{Width: 10, Height: 0}
	regions, err := Detect(a, b, DefaultThreshold)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if regions != nil {
		t.Errorf("regions = %v, want nil", regions)
	}
}

func TestDetect_DimensionMismatch(t *testing.T) {
	// WHAT: Differing dimensions surface pixel.ErrDimensionMismatch.
	// WHY: Resize or truncation would fabricate differences.
	a := pixel.New(4, 4)
	b := pixel.New(4, 5)
	if _, err := Detect(a, b, DefaultThreshold); !errors.Is(err, pixel.ErrDimensionMismatch) {
		t.Errorf("err = %v, want pixel.ErrDimensionMismatch", err)
	}
}

func TestDetect_SparseComponentCount(t *testing.T) {
	// WHAT: PixelCount counts visited pixels, not bounding-box area.
	// WHY: An L-shaped component is sparser than its box.
	a := pixel.New(16, 16)
	b := pixel.New(16, 16)
	paint(b, 2, 2, 6, 1, 255, 255, 255) // horizontal arm
	paint(b, 2, 3, 1, 5, 255, 255, 255) // vertical arm, connected at (2,2)

	regions, err := Detect(a, b, DefaultThreshold)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(regions))
	}
	r := regions[0]
	if r.PixelCount != 11 {
		t.Errorf("PixelCount = %d, want 11", r.PixelCount)
	}
	if r.Width != 6 || r.Height != 6 {
		t.Errorf("box = %dx%d, want 6x6", r.Width, r.Height)
	}
}

func TestMerge_FixedPointPair(t *testing.T) {
	// WHAT: Two boxes with a 5px gap merge into one union box with summed
	// counts; a third box 20px away stays separate.
	// WHY: Literal fixed-point case from the merge contract.
	in := []Region{
		{X: 0, Y: 0, Width: 10, Height: 10, PixelCount: 40},
		{X: 15, Y: 0, Width: 10, Height: 10, PixelCount: 30},
		{X: 45, Y: 0, Width: 10, Height: 10, PixelCount: 20},
	}
	out := Merge(in, 10)
	if len(out) != 2 {
		t.Fatalf("merged regions = %d, want 2", len(out))
	}
	want := Region{X: 0, Y: 0, Width: 25, Height: 10, PixelCount: 70}
	if out[0] != want {
		t.Errorf("merged = %+v, want %+v", out[0], want)
	}
	if out[1] != in[2] {
		t.Errorf("far region changed: %+v", out[1])
	}
}

func TestMerge_ChainWithinPass(t *testing.T) {
	// WHAT: A grown box absorbs a later region that was out of range of the
	// original box but within range of the union.
	// WHY: The survivor keeps scanning with its updated bounds inside the
	// same pass; chains collapse greedily in list order.
	in := []Region{
		{X: 0, Y: 0, Width: 10, Height: 10, PixelCount: 1},
		{X: 15, Y: 0, Width: 10, Height: 10, PixelCount: 1},
		{X: 30, Y: 0, Width: 10, Height: 10, PixelCount: 1},
	}
	out := Merge(in, 10)
	if len(out) != 1 {
		t.Fatalf("merged regions = %d, want 1", len(out))
	}
	want := Region{X: 0, Y: 0, Width: 40, Height: 10, PixelCount: 3}
	if out[0] != want {
		t.Errorf("merged = %+v, want %+v", out[0], want)
	}
}

func TestMerge_Untouched(t *testing.T) {
	// WHAT: Regions out of range pass through unchanged, in order.
	// WHY: Merging must not perturb isolated regions.
	in := []Region{
		{X: 0, Y: 0, Width: 5, Height: 5, PixelCount: 5},
		{X: 100, Y: 100, Width: 5, Height: 5, PixelCount: 5},
	}
	out := Merge(in, 10)
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("out = %+v, want inputs unchanged", out)
	}
}

func TestMerge_VerticalGap(t *testing.T) {
	// WHAT: Both axes must be within range; a large vertical gap blocks a
	// merge even when boxes overlap horizontally.
	// WHY: The gap test is per-axis, not euclidean.
	in := []Region{
		{X: 0, Y: 0, Width: 10, Height: 10, PixelCount: 1},
		{X: 0, Y: 30, Width: 10, Height: 10, PixelCount: 1},
	}
	out := Merge(in, 10)
	if len(out) != 2 {
		t.Errorf("merged regions = %d, want 2", len(out))
	}
}

func TestDetectMerge_AccountingInvariant(t *testing.T) {
	// WHAT: Total PixelCount equals the flagged-pixel count before and
	// after merging.
	// WHY: Merging regroups pixels; it must never create or lose any.
	a := pixel.New(48, 48)
	b := pixel.New(48, 48)
	paint(b, 2, 2, 4, 4, 255, 0, 0)
	paint(b, 10, 2, 3, 3, 0, 255, 0)
	paint(b, 40, 40, 5, 2, 0, 0, 255)

	raw, err := Detect(a, b, DefaultThreshold)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	wantTotal := 4*4 + 3*3 + 5*2

	total := 0
	for _, r := range raw {
		total += r.PixelCount
	}
	if total != wantTotal {
		t.Errorf("raw total = %d, want %d", total, wantTotal)
	}

	merged := Merge(raw, DefaultMergeDistance)
	total = 0
	for _, r := range merged {
		total += r.PixelCount
	}
	if total != wantTotal {
		t.Errorf("merged total = %d, want %d", total, wantTotal)
	}
}
