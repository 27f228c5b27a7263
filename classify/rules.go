package classify

import "github.com/hazyhaar/regard/diff"

// rule pairs a geometry predicate with the category it implies.
type rule struct {
	name     string
	match    func(diff.Region) bool
	category Category
}

// categoryRules is evaluated in order; the first match wins. The precedence
// matters: a 100x10 strip is spacing even though it also sits near an edge,
// and the near-edge rule only catches regions that survived the four
// geometry rules above it.
var categoryRules = []rule{
	{
		// Wide flat strip: aspect ratio >= 5, degenerate heights included.
		name:     "wide strip",
		match:    func(r diff.Region) bool { return r.Height == 0 || r.Width >= 5*r.Height },
		category: CategorySpacing,
	},
	{
		// Tall narrow strip.
		name:     "tall strip",
		match:    func(r diff.Region) bool { return r.Width == 0 || r.Height >= 5*r.Width },
		category: CategoryAlignment,
	},
	{
		// Large and densely changed: a block of pixels flipped wholesale.
		name:     "dense block",
		match:    func(r diff.Region) bool { return r.Area() >= 10000 && float64(r.PixelCount)/float64(r.Area()) > 0.6 },
		category: CategoryColor,
	},
	{
		// Small and sparse: glyph-scale churn.
		name:     "glyph scale",
		match:    func(r diff.Region) bool { return r.Area() < 500 && r.PixelCount < 200 },
		category: CategoryTypography,
	},
	{
		// Hugging the top or left edge of the viewport.
		name:     "near edge",
		match:    func(r diff.Region) bool { return r.X < 20 || r.Y < 20 },
		category: CategoryAlignment,
	},
}

// CategoryOf runs the ordered rule table; regions matching no rule default
// to size (element moved or resized).
func CategoryOf(r diff.Region) Category {
	for _, ru := range categoryRules {
		if ru.match(r) {
			return ru.category
		}
	}
	return CategorySize
}
