package colormap

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapIntensity(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want Color
	}{
		{"zero", 0, Color{0, 0, 255, 200}},
		{"below range", -4.2, Color{0, 0, 255, 200}},
		{"negative infinity", math.Inf(-1), Color{0, 0, 255, 200}},
		{"ceiling", 3, Color{255, 0, 0, 200}},
		{"above range", 12, Color{255, 0, 0, 200}},
		{"positive infinity", math.Inf(1), Color{255, 0, 0, 200}},
		{"midpoint", 1.5, Color{128, 255, 128, 200}},
		{"quarter", 0.75, Color{64, 128, 191, 200}},
		{"nan", math.NaN(), Transparent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapIntensity(tt.in))
		})
	}
}

func TestLookupNaN(t *testing.T) {
	_, ok := Lookup(math.NaN())
	assert.False(t, ok)
	_, ok = Lookup(1)
	assert.True(t, ok)
}

func TestRampIsMonotonic(t *testing.T) {
	prev := MapIntensity(0)
	for i := 1; i <= 300; i++ {
		c := MapIntensity(float64(i) / 100)
		assert.GreaterOrEqual(t, c.R, prev.R, "red at %d", i)
		assert.LessOrEqual(t, c.B, prev.B, "blue at %d", i)
		assert.Equal(t, uint8(Alpha), c.A)
		prev = c
	}
}

func TestColorConversions(t *testing.T) {
	c := Color{R: 255, G: 0, B: 0, A: 200}
	assert.Equal(t, color.NRGBA{R: 255, A: 200}, c.NRGBA())
	assert.Equal(t, "#ff0000", c.Hex())
	assert.Equal(t, "#0000ff", MapIntensity(0).Hex())
}
