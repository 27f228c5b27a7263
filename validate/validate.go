// Package validate is the top-level entry point of the visual regression
// engine. It composes the comparator, detector, merger, classifier and task
// builder into a single pass/fail verdict, and — when no actual image is
// supplied — emits capture instructions for the external browser
// collaborator instead.
//
// The engine is a one-shot pure computation: no browser, no decoding of
// compressed formats, no persisted state between calls. Only the result
// timestamp touches the clock, and that is injectable.
package validate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/regard/classify"
	"github.com/hazyhaar/regard/diff"
	"github.com/hazyhaar/regard/idgen"
	"github.com/hazyhaar/regard/instruction"
	"github.com/hazyhaar/regard/pixel"
	"github.com/hazyhaar/regard/ssim"
	"github.com/hazyhaar/regard/suggest"
)

// Recapture lets a caller plug fix-and-retry behavior into the bounded
// iteration loop: given the options of the failed pass, it returns a fresh
// actual image (any accepted pixel shape) to re-compare.
type Recapture func(opts Options) (any, error)

// Engine runs validations. Safe for concurrent use: it carries only
// configuration, never per-call state.
type Engine struct {
	logger    *slog.Logger
	newID     idgen.Generator
	now       func() time.Time
	recapture Recapture
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIDGenerator sets the task ID generator. Default: task_-prefixed UUIDv7.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithClock injects the timestamp source for emitted results. The
// comparison core never reads it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRecapture installs the fix-and-retry hook used by the bounded
// iteration loop. Without it the loop terminates after one increment,
// since there is nothing new to compare.
func WithRecapture(r Recapture) Option {
	return func(e *Engine) { e.recapture = r }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.Default(),
		newID:  idgen.Prefixed("task_", idgen.Default),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Result is the outcome of one validation call.
type Result struct {
	Passed              bool                      `json:"passed"`
	Similarity          float64                   `json:"similarity"`
	DiffRegions         []classify.Region         `json:"diffRegions"`
	FixSuggestions      []suggest.Suggestion      `json:"fixSuggestions"`
	FixTasks            []suggest.Task            `json:"fixTasks"`
	Iterations          int                       `json:"iterations"`
	CaptureInstructions []instruction.Instruction `json:"captureInstructions,omitempty"`
	Timestamp           time.Time                 `json:"timestamp"`
}

// Validate compares a baseline against an actual image and produces a
// verdict with localized, classified regions and remediation tasks.
//
// With no actual image it instead returns the capture instructions the
// collaborator must execute to produce one. An actual image without a
// baseline is a contract violation (ErrMissingBaseline). Dimension
// mismatches surface pixel.ErrDimensionMismatch; the engine never resizes.
func (e *Engine) Validate(opts Options) (*Result, error) {
	opts.applyDefaults()

	if opts.ActualImage == nil {
		name := opts.CaptureName
		if name == "" {
			name = "actual"
		}
		e.logger.Debug("validate: no actual image, emitting capture instructions",
			"url", opts.URL, "capture", name)
		return &Result{
			Passed:              false,
			Similarity:          0,
			DiffRegions:         []classify.Region{},
			FixSuggestions:      []suggest.Suggestion{},
			FixTasks:            []suggest.Task{},
			Iterations:          0,
			CaptureInstructions: e.captureInstructions(opts, name),
			Timestamp:           e.now(),
		}, nil
	}

	if opts.BaselineImage == nil {
		return nil, ErrMissingBaseline
	}

	baseline, err := pixel.Normalize(opts.BaselineImage, opts.ImageMeta)
	if err != nil {
		return nil, fmt.Errorf("validate: baseline: %w", err)
	}
	actual, err := pixel.Normalize(opts.ActualImage, opts.ImageMeta)
	if err != nil {
		return nil, fmt.Errorf("validate: actual: %w", err)
	}

	res, err := e.compare(baseline, actual, opts)
	if err != nil {
		return nil, err
	}
	res.Iterations = 1

	// Bounded fix-and-retry loop. Each round increments the iteration
	// count; without a recapture hook there is nothing new to compare and
	// the loop stops after one increment.
	for !res.Passed && res.Iterations < opts.MaxIterations {
		res.Iterations++
		if e.recapture == nil {
			break
		}
		img, err := e.recapture(opts)
		if err != nil {
			return nil, fmt.Errorf("validate: recapture: %w", err)
		}
		actual, err = pixel.Normalize(img, opts.ImageMeta)
		if err != nil {
			return nil, fmt.Errorf("validate: recaptured actual: %w", err)
		}
		next, err := e.compare(baseline, actual, opts)
		if err != nil {
			return nil, err
		}
		next.Iterations = res.Iterations
		res = next
	}

	e.logger.Info("validate: done",
		"passed", res.Passed,
		"similarity", res.Similarity,
		"regions", len(res.DiffRegions),
		"tasks", len(res.FixTasks),
		"iterations", res.Iterations)
	return res, nil
}

// compare runs one comparator + detector + merger + classifier pass and,
// on failure, the suggestion/task builder.
func (e *Engine) compare(baseline, actual *pixel.Buffer, opts Options) (*Result, error) {
	similarity, err := ssim.Compare(baseline, actual)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	raw, err := diff.Detect(baseline, actual, opts.DiffThreshold)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	regions := classify.All(diff.Merge(raw, opts.MergeDistance))

	res := &Result{
		Passed:         similarity >= opts.Threshold,
		Similarity:     similarity,
		DiffRegions:    regions,
		FixSuggestions: []suggest.Suggestion{},
		FixTasks:       []suggest.Task{},
		Timestamp:      e.now(),
	}
	if !res.Passed {
		meta := suggest.Metadata{
			Selector:       opts.Selector,
			ViewportWidth:  opts.ViewportWidth,
			ViewportHeight: opts.ViewportHeight,
		}
		res.FixSuggestions = suggest.BuildSuggestions(regions, meta)
		res.FixTasks = suggest.BuildTasks(res.FixSuggestions, e.newID)
	}
	return res, nil
}

// ValidatePage is the page-level variant: identical to Validate but always
// full-viewport, so any selector in the options is ignored.
func (e *Engine) ValidatePage(opts Options) (*Result, error) {
	opts.Selector = ""
	return e.Validate(opts)
}

// Baseline is a reference image wrapped with creation metadata.
type Baseline struct {
	Image     *pixel.Buffer `json:"-"`
	Name      string        `json:"name"`
	URL       string        `json:"url,omitempty"`
	Selector  string        `json:"selector,omitempty"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	CreatedAt time.Time     `json:"createdAt"`
}

// CreateBaseline wraps a supplied image into a baseline descriptor with a
// creation timestamp. Without an image it returns the capture instructions
// for a screenshot named "baseline" instead.
func (e *Engine) CreateBaseline(opts Options) (*Baseline, []instruction.Instruction, error) {
	opts.applyDefaults()
	name := opts.CaptureName
	if name == "" {
		name = "baseline"
	}

	if opts.BaselineImage == nil {
		return nil, e.captureInstructions(opts, name), nil
	}

	buf, err := pixel.Normalize(opts.BaselineImage, opts.ImageMeta)
	if err != nil {
		return nil, nil, fmt.Errorf("validate: baseline: %w", err)
	}
	return &Baseline{
		Image:     buf,
		Name:      name,
		URL:       opts.URL,
		Selector:  opts.Selector,
		Width:     buf.Width,
		Height:    buf.Height,
		CreatedAt: e.now(),
	}, nil, nil
}

// captureInstructions builds the ordered sequence for the collaborator:
// optional navigation, animation freeze unless kept, selector hiding only
// when exclusions exist, and always a trailing named screenshot.
func (e *Engine) captureInstructions(opts Options, name string) []instruction.Instruction {
	var b instruction.Builder
	if opts.URL != "" {
		b.Navigate(opts.URL)
	}
	if !opts.KeepAnimations {
		b.FreezeAnimations()
	}
	b.HideSelectors(opts.ExcludeSelectors)
	b.Screenshot(name, opts.Selector)
	return b.Instructions()
}
