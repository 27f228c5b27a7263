package report

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/regard/classify"
	"github.com/hazyhaar/regard/diff"
	"github.com/hazyhaar/regard/pixel"
)

func TestOverlay_DrawsOutline(t *testing.T) {
	// WHAT: A high-severity region gets a red outline on the overlay; pixels
	// well inside the region stay untouched.
	// WHY: Outlines must mark regions without obscuring their content.
	actual := pixel.New(40, 40)
	regions := []classify.Region{{
		Region:   diff.Region{X: 10, Y: 10, Width: 20, Height: 20, PixelCount: 400},
		Severity: classify.SeverityHigh,
	}}

	img := Overlay(actual, regions)

	// The stroke straddles the box edge.
	edge := img.RGBAAt(10, 20)
	if edge.R < 100 {
		t.Errorf("edge pixel = %+v, want a red stroke", edge)
	}
	center := img.RGBAAt(20, 20)
	if center.R != 0 || center.G != 0 || center.B != 0 {
		t.Errorf("center pixel = %+v, want untouched black", center)
	}
}

func TestOverlay_DoesNotMutateInput(t *testing.T) {
	actual := pixel.New(20, 20)
	regions := []classify.Region{{
		Region:   diff.Region{X: 2, Y: 2, Width: 10, Height: 10, PixelCount: 100},
		Severity: classify.SeverityMedium,
	}}

	Overlay(actual, regions)

	for i, v := range actual.Pix {
		if v != 0 {
			t.Fatalf("input buffer mutated at byte %d", i)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(pixel.New(8, 8), nil)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("bounds = %v, want 8x8", img.Bounds())
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.png")
	if err := WritePNG(path, pixel.New(4, 4), nil); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}
