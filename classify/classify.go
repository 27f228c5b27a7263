// Package classify assigns a severity and a probable UI-defect category to
// merged diff regions. Severity is density-based; category comes from an
// ordered geometry-heuristic rule table where the first match wins.
package classify

import (
	"encoding/json"

	"github.com/hazyhaar/regard/diff"
)

// Severity grades how much of a region's box actually changed.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Category names the probable root cause class of a region.
type Category string

const (
	CategorySpacing    Category = "spacing"
	CategoryAlignment  Category = "alignment"
	CategoryColor      Category = "color"
	CategoryTypography Category = "typography"
	CategorySize       Category = "size"

	// CategoryVisibility is never produced by the rule table; callers may
	// assign it out of band.
	CategoryVisibility Category = "visibility"
)

// Region is a merged diff region with its severity attached. The category
// is computed on demand rather than stored.
type Region struct {
	diff.Region
	Severity Severity
}

// Category evaluates the rule table against the region's geometry.
func (r Region) Category() Category {
	return CategoryOf(r.Region)
}

// MarshalJSON includes the computed category alongside the stored fields.
func (r Region) MarshalJSON() ([]byte, error) {
	type wire struct {
		diff.Region
		Severity Severity `json:"severity"`
		Category Category `json:"category"`
	}
	return json.Marshal(wire{r.Region, r.Severity, r.Category()})
}

// All classifies every region, preserving order.
func All(regions []diff.Region) []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = Region{Region: r, Severity: SeverityOf(r)}
	}
	return out
}

// SeverityOf grades a region by the density of flagged pixels inside its
// box: high at >= 0.5, medium at >= 0.2, low otherwise. A zero-area box is
// low by definition rather than a division error.
func SeverityOf(r diff.Region) Severity {
	area := r.Area()
	if area == 0 {
		return SeverityLow
	}
	density := float64(r.PixelCount) / float64(area)
	switch {
	case density >= 0.5:
		return SeverityHigh
	case density >= 0.2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
