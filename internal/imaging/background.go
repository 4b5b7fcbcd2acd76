package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultBackground is used when flattening transparency for formats without alpha.
var DefaultBackground color.Color = color.White

// ParseBackground parses a "#rrggbb" or "#rgb" hex color.
// An empty string yields DefaultBackground.
func ParseBackground(hex string) (color.Color, error) {
	if hex == "" {
		return DefaultBackground, nil
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid background color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// flatten composites img over an opaque background. Opaque images are
// returned unchanged.
func flatten(img image.Image, bg color.Color) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	if bg == nil {
		bg = DefaultBackground
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
