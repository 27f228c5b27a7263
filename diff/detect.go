// Package diff localizes the pixels that changed between two equal-sized
// RGBA buffers and groups them into axis-aligned regions: a per-pixel
// threshold map, 4-connectivity flood fill into raw regions, then an
// iterative proximity merge into stable clusters.
package diff

import (
	"fmt"

	"github.com/hazyhaar/regard/pixel"
)

// Defaults for the detection and merge knobs.
const (
	DefaultThreshold     = 10
	DefaultMergeDistance = 10
)

// Region is an axis-aligned bounding box over changed pixels. PixelCount
// counts the flagged pixels the region was built from — never more than the
// box area, and often much less once boxes are merged.
type Region struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	Width      int `json:"width"`
	Height     int `json:"height"`
	PixelCount int `json:"pixelCount"`
}

// Area returns the bounding-box area.
func (r Region) Area() int { return r.Width * r.Height }

// Detect compares a and b pixel by pixel and returns one raw Region per
// connected component of changed pixels.
//
// A pixel is flagged when |dR|+|dG|+|dB| > threshold (alpha excluded,
// channels summed). Components are 4-connected (no diagonals) and collected
// by BFS flood fill, scanning row-major for unvisited seeds, so the output
// order is deterministic. Zero-area inputs yield no regions.
func Detect(a, b *pixel.Buffer, threshold int) ([]Region, error) {
	if !pixel.SameSize(a, b) {
		return nil, fmt.Errorf("diff: baseline %dx%d vs actual %dx%d: %w",
			a.Width, a.Height, b.Width, b.Height, pixel.ErrDimensionMismatch)
	}
	if a.Empty() {
		return nil, nil
	}

	w, h := a.Width, a.Height
	flagged := make([]bool, w*h)
	for i := 0; i < w*h; i++ {
		o := i * 4
		d := absDiff(a.Pix[o], b.Pix[o]) +
			absDiff(a.Pix[o+1], b.Pix[o+1]) +
			absDiff(a.Pix[o+2], b.Pix[o+2])
		flagged[i] = d > threshold
	}

	visited := make([]bool, w*h)
	var regions []Region
	var queue []int

	for seed := 0; seed < w*h; seed++ {
		if !flagged[seed] || visited[seed] {
			continue
		}
		regions = append(regions, fillComponent(flagged, visited, &queue, seed, w, h))
	}
	return regions, nil
}

// fillComponent runs a BFS flood fill from seed and returns the component's
// bounding box plus its exact flagged-pixel count.
func fillComponent(flagged, visited []bool, queue *[]int, seed, w, h int) Region {
	q := (*queue)[:0]
	q = append(q, seed)
	visited[seed] = true

	minX, minY := seed%w, seed/w
	maxX, maxY := minX, minY
	count := 0

	for len(q) > 0 {
		idx := q[0]
		q = q[1:]
		count++

		x, y := idx%w, idx/w
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}

		// 4-connectivity: N, S, W, E.
		if y > 0 {
			q = push(flagged, visited, q, idx-w)
		}
		if y < h-1 {
			q = push(flagged, visited, q, idx+w)
		}
		if x > 0 {
			q = push(flagged, visited, q, idx-1)
		}
		if x < w-1 {
			q = push(flagged, visited, q, idx+1)
		}
	}
	*queue = q[:0]

	return Region{
		X:          minX,
		Y:          minY,
		Width:      maxX - minX + 1,
		Height:     maxY - minY + 1,
		PixelCount: count,
	}
}

func push(flagged, visited []bool, q []int, idx int) []int {
	if flagged[idx] && !visited[idx] {
		visited[idx] = true
		q = append(q, idx)
	}
	return q
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
