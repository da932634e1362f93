// Package colormap turns intensity samples into RGBA colours on a
// blue-green-red ramp.
package colormap

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Ceiling is the intensity mapped to the red end of the ramp.
	Ceiling = 3.0
	// Alpha is the fixed opacity of every mapped colour.
	Alpha = 200
)

// Color is an 8-bit, non-premultiplied RGBA colour.
type Color struct {
	R, G, B, A uint8
}

// NRGBA converts c for use with image/draw.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Hex formats the RGB channels as #rrggbb, dropping alpha.
func (c Color) Hex() string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

// Transparent is returned for samples that cannot be placed on the ramp.
var Transparent = Color{}

// Lookup maps v onto the ramp. Values outside [0, Ceiling] clamp to the
// ends. ok is false for NaN, which has no place on the ramp.
func Lookup(v float64) (c Color, ok bool) {
	if math.IsNaN(v) {
		return Transparent, false
	}
	n := math.Min(1, math.Max(0, v/Ceiling))
	return Color{
		R: channel(n),
		G: channel(1 - math.Abs(n-0.5)*2),
		B: channel(1 - n),
		A: Alpha,
	}, true
}

// MapIntensity is Lookup without the ok flag; NaN maps to Transparent.
func MapIntensity(v float64) Color {
	c, _ := Lookup(v)
	return c
}

// channel scales f in [0, 1] to a byte, rounding half away from zero.
func channel(f float64) uint8 {
	return uint8(math.Round(255 * f))
}
