// Package suggest turns classified diff regions into human-readable fix
// suggestions and aggregates them into deduplicated, prioritized tasks.
package suggest

import (
	"fmt"

	"github.com/hazyhaar/regard/classify"
	"github.com/hazyhaar/regard/diff"
)

// Viewport defaults used by the positional selector heuristic when the
// caller supplies no geometry.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// Metadata scopes suggestion building. Selector, when set, is the component
// under test and is used verbatim for every suggestion.
type Metadata struct {
	Selector       string
	ViewportWidth  int
	ViewportHeight int
}

// Suggestion is a stateless remediation hint derived from one region.
type Suggestion struct {
	Selector    string            `json:"selector"`
	Category    classify.Category `json:"category"`
	Description string            `json:"description"`
	Severity    classify.Severity `json:"severity"`
	Region      diff.Region       `json:"region"`
}

// BuildSuggestions derives one suggestion per classified region. Selectors
// come from the metadata when present, otherwise from the region's position
// within the viewport.
func BuildSuggestions(regions []classify.Region, meta Metadata) []Suggestion {
	vw := meta.ViewportWidth
	if vw <= 0 {
		vw = DefaultViewportWidth
	}
	vh := meta.ViewportHeight
	if vh <= 0 {
		vh = DefaultViewportHeight
	}

	out := make([]Suggestion, 0, len(regions))
	for _, r := range regions {
		selector := meta.Selector
		if selector == "" {
			selector = positionalSelector(r.Region, vw, vh)
		}
		category := r.Category()
		out = append(out, Suggestion{
			Selector:    selector,
			Category:    category,
			Description: describe(category, r.Region),
			Severity:    r.Severity,
			Region:      r.Region,
		})
	}
	return out
}

// positionalSelector maps a region's box to the page role most likely to
// contain it: top 10% header, bottom 10% footer, left 15% navigation,
// right 15% complementary, everything else main content.
func positionalSelector(r diff.Region, vw, vh int) string {
	switch {
	case r.Y < vh/10:
		return "header"
	case r.Y+r.Height > vh*9/10:
		return "footer"
	case r.X < vw*15/100:
		return "nav, aside"
	case r.X+r.Width > vw*85/100:
		return `[role="complementary"]`
	default:
		return "main"
	}
}

// describe renders the per-category product copy, embedding the region's
// geometry so a reader can find the spot without a diff viewer.
func describe(c classify.Category, r diff.Region) string {
	switch c {
	case classify.CategorySpacing:
		return fmt.Sprintf("Spacing drift across a %dx%d band at (%d, %d): check margins and padding in this strip.",
			r.Width, r.Height, r.X, r.Y)
	case classify.CategoryAlignment:
		return fmt.Sprintf("Misalignment near (%d, %d): a %dx%d block shifted against its neighbors or the viewport edge.",
			r.X, r.Y, r.Width, r.Height)
	case classify.CategoryColor:
		return fmt.Sprintf("Color change over a %dx%d area at (%d, %d): background or theme colors differ from the baseline.",
			r.Width, r.Height, r.X, r.Y)
	case classify.CategoryTypography:
		return fmt.Sprintf("Small text difference at (%d, %d) in a %dx%d box: font, weight or glyph rendering changed.",
			r.X, r.Y, r.Width, r.Height)
	case classify.CategoryVisibility:
		return fmt.Sprintf("Element at (%d, %d) appeared or disappeared relative to the baseline.", r.X, r.Y)
	default:
		return fmt.Sprintf("Element at (%d, %d) changed size or position: a %dx%d area differs from the baseline.",
			r.X, r.Y, r.Width, r.Height)
	}
}
