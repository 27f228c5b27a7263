package validate

import (
	"github.com/hazyhaar/regard/diff"
	"github.com/hazyhaar/regard/pixel"
)

// Default knobs for a validation call.
const (
	DefaultThreshold     = 0.95
	DefaultMaxIterations = 3
)

// Options parameterizes one validation call. Zero values mean "use the
// default" for every knob.
type Options struct {
	// URL is the page to capture when no actual image is supplied.
	URL string

	// Selector scopes the component under test. Empty means full viewport.
	Selector string

	// BaselineImage and ActualImage accept any shape pixel.Normalize does:
	// *pixel.Buffer, raw RGBA []byte, or base64 string.
	BaselineImage any
	ActualImage   any

	// ImageMeta supplies dimensions for raw byte or base64 images.
	ImageMeta pixel.Meta

	// Threshold is the minimum similarity to pass. Default 0.95.
	Threshold float64

	// MaxIterations bounds the fix-and-retry loop. Default 3.
	MaxIterations int

	// DiffThreshold is the per-pixel summed channel delta above which a
	// pixel is flagged. Default 10.
	DiffThreshold int

	// MergeDistance is the maximum per-axis gap between regions that still
	// merge. Default 10.
	MergeDistance int

	// KeepAnimations skips the animation-freeze capture instruction.
	// The default (false) freezes animations before capturing.
	KeepAnimations bool

	// ExcludeSelectors lists volatile elements to hide before capture.
	ExcludeSelectors []string

	// CaptureName names the emitted screenshot instruction. Defaults to
	// "actual" for Validate and "baseline" for CreateBaseline.
	CaptureName string

	// ViewportWidth and ViewportHeight drive the positional selector
	// heuristic when suggestions are built. Defaults 1280x800.
	ViewportWidth  int
	ViewportHeight int
}

func (o *Options) applyDefaults() {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.DiffThreshold <= 0 {
		o.DiffThreshold = diff.DefaultThreshold
	}
	if o.MergeDistance <= 0 {
		o.MergeDistance = diff.DefaultMergeDistance
	}
}
