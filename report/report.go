// Package report renders validation results into reviewable artifacts:
// the actual screenshot with classified diff regions outlined by severity.
package report

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/fogleman/gg"

	"github.com/hazyhaar/regard/classify"
	"github.com/hazyhaar/regard/pixel"
)

// severityColor maps a severity to its outline color.
var severityColor = map[classify.Severity][3]int{
	classify.SeverityHigh:   {220, 38, 38},
	classify.SeverityMedium: {245, 158, 11},
	classify.SeverityLow:    {250, 204, 21},
}

// Overlay draws severity-colored outlines around the diff regions on a copy
// of the actual image.
func Overlay(actual *pixel.Buffer, regions []classify.Region) *image.RGBA {
	img := toRGBA(actual)
	dc := gg.NewContextForRGBA(img)
	dc.SetLineWidth(2)

	for _, r := range regions {
		c, ok := severityColor[r.Severity]
		if !ok {
			c = severityColor[classify.SeverityLow]
		}
		dc.SetRGBA255(c[0], c[1], c[2], 255)
		dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
		dc.Stroke()
	}
	return img
}

// EncodePNG renders the overlay and returns it as PNG bytes.
func EncodePNG(actual *pixel.Buffer, regions []classify.Region) ([]byte, error) {
	var w bytes.Buffer
	if err := png.Encode(&w, Overlay(actual, regions)); err != nil {
		return nil, fmt.Errorf("report: encode png: %w", err)
	}
	return w.Bytes(), nil
}

// WritePNG renders the overlay to a PNG file.
func WritePNG(path string, actual *pixel.Buffer, regions []classify.Region) error {
	data, err := EncodePNG(actual, regions)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

// toRGBA copies a pixel buffer into a drawable image. The raw layout is
// already RGBA row-major, so the pix slice transfers directly.
func toRGBA(buf *pixel.Buffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	copy(img.Pix, buf.Pix)
	return img
}
