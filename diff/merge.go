package diff

// Merge clusters raw regions whose boxes lie within mergeDistance of each
// other on both axes. Full passes repeat until one completes with zero
// merges (fixed point).
//
// Within a pass, regions are visited in list order; each survivor absorbs
// every later region within range, growing as it goes, and newly grown
// bounds are compared against the remaining candidates in the same pass.
// The greedy list-order traversal is intentionally order-dependent: when
// three or more regions are mutually close, other traversals would produce
// different (still valid) partitions, so the order here is part of the
// contract.
func Merge(regions []Region, mergeDistance int) []Region {
	if len(regions) < 2 {
		return regions
	}

	rs := make([]Region, len(regions))
	copy(rs, regions)

	for {
		merged := false
		consumed := make([]bool, len(rs))

		for i := 0; i < len(rs); i++ {
			if consumed[i] {
				continue
			}
			for j := i + 1; j < len(rs); j++ {
				if consumed[j] {
					continue
				}
				if axisGap(rs[i].X, rs[i].Width, rs[j].X, rs[j].Width) <= mergeDistance &&
					axisGap(rs[i].Y, rs[i].Height, rs[j].Y, rs[j].Height) <= mergeDistance {
					rs[i] = union(rs[i], rs[j])
					consumed[j] = true
					merged = true
				}
			}
		}

		if merged {
			kept := rs[:0]
			for i, r := range rs {
				if !consumed[i] {
					kept = append(kept, r)
				}
			}
			rs = kept
			continue
		}
		return rs
	}
}

// axisGap is the empty distance between two intervals on one axis; zero
// when they touch or overlap.
func axisGap(a, aw, b, bw int) int {
	gap := max(a, b) - min(a+aw, b+bw)
	if gap < 0 {
		return 0
	}
	return gap
}

// union returns the bounding box covering both regions with their pixel
// counts summed. Merging regroups flagged pixels; it never changes the
// total count.
func union(a, b Region) Region {
	x := min(a.X, b.X)
	y := min(a.Y, b.Y)
	return Region{
		X:          x,
		Y:          y,
		Width:      max(a.X+a.Width, b.X+b.Width) - x,
		Height:     max(a.Y+a.Height, b.Y+b.Height) - y,
		PixelCount: a.PixelCount + b.PixelCount,
	}
}
