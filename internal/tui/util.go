package tui

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"pointmap/internal/colormap"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// over composites c onto bg using c's alpha and returns a hex colour. With no
// background the colour is taken as opaque.
func over(c colormap.Color, bg color.Color) string {
	fg, _ := colorful.MakeColor(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
	if bg == nil {
		return fg.Hex()
	}
	under, ok := colorful.MakeColor(bg)
	if !ok {
		return fg.Hex()
	}
	return under.BlendRgb(fg, float64(c.A)/255).Hex()
}

// hexOf converts an image colour to hex; transparent yields "".
func hexOf(c color.Color) string {
	if c == nil {
		return ""
	}
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return ""
	}
	return cc.Hex()
}
