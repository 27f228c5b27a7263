// Package instruction models the declarative capture sequence the engine
// hands to an external browser-automation collaborator. The engine never
// drives a browser; it emits an ordered list of these descriptors and later
// receives raw pixels back.
//
// The variant set is closed: navigate, freeze animations, hide selectors,
// screenshot. Each variant carries typed parameters and renders to the
// opaque wire form {tool, params}.
package instruction

import "strings"

// Tool names understood by the capture collaborator.
const (
	ToolNavigate         = "navigate"
	ToolFreezeAnimations = "freeze_animations"
	ToolHideSelectors    = "hide_selectors"
	ToolScreenshot       = "screenshot"
)

// DefaultFreezeStyle is the stylesheet injected to stop animations,
// transitions and the text caret from perturbing captures.
const DefaultFreezeStyle = `*, *::before, *::after { animation: none !important; transition: none !important; caret-color: transparent !important; }`

// Instruction is the opaque wire form of one capture step.
type Instruction struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// Step is one typed capture action.
type Step interface {
	Instruction() Instruction
}

// Navigate loads a URL before capturing.
type Navigate struct {
	URL string
}

func (n Navigate) Instruction() Instruction {
	return Instruction{Tool: ToolNavigate, Params: map[string]any{"url": n.URL}}
}

// FreezeAnimations injects a style payload that suppresses animations. An
// empty Style uses DefaultFreezeStyle.
type FreezeAnimations struct {
	Style string
}

func (f FreezeAnimations) Instruction() Instruction {
	style := f.Style
	if style == "" {
		style = DefaultFreezeStyle
	}
	return Instruction{Tool: ToolFreezeAnimations, Params: map[string]any{"style": style}}
}

// HideSelectors makes volatile elements invisible before capture.
type HideSelectors struct {
	Selectors []string
}

func (h HideSelectors) Instruction() Instruction {
	return Instruction{Tool: ToolHideSelectors, Params: map[string]any{
		"selectors": h.Selectors,
		"query":     EscapeSelectorList(h.Selectors),
	}}
}

// Screenshot captures the page (or the element matching Selector) under the
// given name, requesting base64-encoded output.
type Screenshot struct {
	Name     string
	Selector string
}

func (s Screenshot) Instruction() Instruction {
	params := map[string]any{"name": s.Name, "encoding": "base64"}
	if s.Selector != "" {
		params["selector"] = s.Selector
	}
	return Instruction{Tool: ToolScreenshot, Params: params}
}

// EscapeSelectorList joins selectors into a single DOM-query argument with
// double quotes escaped, safe to embed in a quoted querySelectorAll call.
func EscapeSelectorList(selectors []string) string {
	escaped := make([]string, len(selectors))
	for i, s := range selectors {
		escaped[i] = strings.ReplaceAll(s, `"`, `\"`)
	}
	return strings.Join(escaped, ", ")
}

// Builder assembles an ordered capture sequence.
type Builder struct {
	steps []Step
}

// Navigate appends a navigation step.
func (b *Builder) Navigate(url string) *Builder {
	b.steps = append(b.steps, Navigate{URL: url})
	return b
}

// FreezeAnimations appends the animation-suppression step with the default
// style payload.
func (b *Builder) FreezeAnimations() *Builder {
	b.steps = append(b.steps, FreezeAnimations{})
	return b
}

// HideSelectors appends a selector-hide step. No-op for an empty list.
func (b *Builder) HideSelectors(selectors []string) *Builder {
	if len(selectors) > 0 {
		b.steps = append(b.steps, HideSelectors{Selectors: selectors})
	}
	return b
}

// Screenshot appends the capture step.
func (b *Builder) Screenshot(name, selector string) *Builder {
	b.steps = append(b.steps, Screenshot{Name: name, Selector: selector})
	return b
}

// Steps returns the typed sequence in order.
func (b *Builder) Steps() []Step {
	return b.steps
}

// Instructions renders the sequence to its wire form.
func (b *Builder) Instructions() []Instruction {
	out := make([]Instruction, len(b.steps))
	for i, s := range b.steps {
		out[i] = s.Instruction()
	}
	return out
}
