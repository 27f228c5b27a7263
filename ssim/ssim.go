// Package ssim implements a windowed structural similarity index over two
// equal-sized RGBA buffers. The metric is luminance-only: each pixel is
// reduced to BT.601 luminance and compared through 8x8 windows slid with a
// stride of 4 in both axes.
package ssim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/hazyhaar/regard/pixel"
)

const (
	windowSize   = 8
	windowStride = 4

	// Stabilizing constants for 8-bit dynamic range: (0.01*255)^2 and (0.03*255)^2.
	c1 = 6.5025
	c2 = 58.5225
)

// Compare returns the mean SSIM score of a against b, clamped to [0, 1].
//
// Both buffers must have identical dimensions; otherwise the error wraps
// pixel.ErrDimensionMismatch. A zero-area pair is trivially identical and
// scores 1.0 regardless of pixel content.
func Compare(a, b *pixel.Buffer) (float64, error) {
	if !pixel.SameSize(a, b) {
		return 0, fmt.Errorf("ssim: baseline %dx%d vs actual %dx%d: %w",
			a.Width, a.Height, b.Width, b.Height, pixel.ErrDimensionMismatch)
	}
	if a.Empty() {
		return 1, nil
	}

	lumA := make([]float64, windowSize*windowSize)
	lumB := make([]float64, windowSize*windowSize)
	var scores []float64

	for y := 0; y < a.Height; y += windowStride {
		for x := 0; x < a.Width; x += windowStride {
			fillWindow(lumA, a, x, y)
			fillWindow(lumB, b, x, y)
			scores = append(scores, windowScore(lumA, lumB))
		}
	}

	// Clamp only the final average: individual windows may legitimately go
	// slightly negative on pathological content.
	return math.Max(0, math.Min(1, stat.Mean(scores, nil))), nil
}

// fillWindow samples an 8x8 luminance window at (x0, y0). Windows that
// extend past the image boundary replicate the edge pixel rather than
// zero-padding, so border windows keep meaningful statistics.
func fillWindow(dst []float64, img *pixel.Buffer, x0, y0 int) {
	i := 0
	for dy := 0; dy < windowSize; dy++ {
		y := y0 + dy
		if y >= img.Height {
			y = img.Height - 1
		}
		for dx := 0; dx < windowSize; dx++ {
			x := x0 + dx
			if x >= img.Width {
				x = img.Width - 1
			}
			dst[i] = img.LuminanceAt(x, y)
			i++
		}
	}
}

func windowScore(la, lb []float64) float64 {
	muA, varA := stat.PopMeanVariance(la, nil)
	muB, varB := stat.PopMeanVariance(lb, nil)

	var cov float64
	for i := range la {
		cov += (la[i] - muA) * (lb[i] - muB)
	}
	cov /= float64(len(la))

	den := (muA*muA + muB*muB + c1) * (varA + varB + c2)
	if den == 0 {
		// Both windows uniformly black: identical by definition.
		return 1
	}
	return ((2*muA*muB + c1) * (2*cov + c2)) / den
}
