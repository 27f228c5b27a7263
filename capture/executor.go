package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/regard/instruction"
	"github.com/hazyhaar/regard/pixel"
)

// Executor runs instruction sequences against a managed browser.
type Executor struct {
	mgr *Manager
}

// NewExecutor wraps a started Manager.
func NewExecutor(mgr *Manager) *Executor {
	return &Executor{mgr: mgr}
}

// Run executes the instruction sequence on a fresh page and returns the
// pixels of the screenshot step. Sequences without a screenshot step are
// an error: a capture that produces nothing is a caller bug.
func (e *Executor) Run(ctx context.Context, instrs []instruction.Instruction) (*pixel.Buffer, error) {
	page, err := e.mgr.openPage(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	var shot *pixel.Buffer
	for _, in := range instrs {
		switch in.Tool {
		case instruction.ToolNavigate:
			if err := e.navigate(ctx, page, in); err != nil {
				return nil, err
			}
		case instruction.ToolFreezeAnimations:
			if err := freezeAnimations(ctx, page, in); err != nil {
				return nil, err
			}
		case instruction.ToolHideSelectors:
			if err := hideSelectors(ctx, page, in); err != nil {
				return nil, err
			}
		case instruction.ToolScreenshot:
			shot, err = screenshot(ctx, page, in)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("capture: unknown tool %q", in.Tool)
		}
	}
	if shot == nil {
		return nil, fmt.Errorf("capture: sequence has no screenshot step")
	}
	return shot, nil
}

func (e *Executor) navigate(ctx context.Context, page *rod.Page, in instruction.Instruction) error {
	url := stringParam(in, "url")
	if url == "" {
		return fmt.Errorf("capture: navigate: missing url")
	}

	navCtx, cancel := context.WithTimeout(ctx, e.mgr.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("capture: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		e.mgr.cfg.Logger.Warn("capture: wait load timeout", "url", url, "error", err)
	}
	return nil
}

func freezeAnimations(ctx context.Context, page *rod.Page, in instruction.Instruction) error {
	style := stringParam(in, "style")
	if style == "" {
		style = instruction.DefaultFreezeStyle
	}
	_, err := page.Context(ctx).Eval(`(css) => {
		const style = document.createElement('style');
		style.textContent = css;
		document.head.appendChild(style);
	}`, style)
	if err != nil {
		return fmt.Errorf("capture: freeze animations: %w", err)
	}
	return nil
}

func hideSelectors(ctx context.Context, page *rod.Page, in instruction.Instruction) error {
	query := stringParam(in, "query")
	if query == "" {
		return nil
	}
	_, err := page.Context(ctx).Eval(`(query) => {
		for (const el of document.querySelectorAll(query)) {
			el.style.visibility = 'hidden';
		}
	}`, query)
	if err != nil {
		return fmt.Errorf("capture: hide selectors: %w", err)
	}
	return nil
}

func screenshot(ctx context.Context, page *rod.Page, in instruction.Instruction) (*pixel.Buffer, error) {
	var (
		bin []byte
		err error
	)
	if sel := stringParam(in, "selector"); sel != "" {
		el, elErr := page.Context(ctx).Element(sel)
		if elErr != nil {
			return nil, fmt.Errorf("capture: element %q: %w", sel, elErr)
		}
		bin, err = el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	} else {
		bin, err = page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("capture: screenshot: %w", err)
	}
	return DecodePNG(bin)
}

// DecodePNG converts PNG bytes to a pixel buffer.
func DecodePNG(data []byte) (*pixel.Buffer, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("capture: decode png: %w", err)
	}
	return FromImage(img), nil
}

// FromImage flattens any image.Image into a raw RGBA pixel buffer.
func FromImage(img image.Image) *pixel.Buffer {
	bounds := img.Bounds()
	buf := pixel.New(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			o := buf.Offset(x-bounds.Min.X, y-bounds.Min.Y)
			buf.Pix[o] = byte(r >> 8)
			buf.Pix[o+1] = byte(g >> 8)
			buf.Pix[o+2] = byte(b >> 8)
			buf.Pix[o+3] = byte(a >> 8)
		}
	}
	return buf
}

// stringParam extracts a string parameter, tolerating the post-JSON form
// where values arrive as any.
func stringParam(in instruction.Instruction, key string) string {
	v, ok := in.Params[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
