package tui

import "pointmap/internal/colormap"

type brailleBuf struct {
	w, h int                // in cells
	m    [][]uint8          // per-cell 8-bit mask
	c    [][]colormap.Color // per-cell colour of the last dot set
}

func newBrailleBuf(w, h int) *brailleBuf {
	m := make([][]uint8, h)
	c := make([][]colormap.Color, h)
	for i := range m {
		m[i] = make([]uint8, w)
		c[i] = make([]colormap.Color, w)
	}
	return &brailleBuf{w: w, h: h, m: m, c: c}
}

// dotBits maps a micro-pixel inside a cell to its braille dot.
var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// setPixel sets a micro-pixel at micro coords (2x4 per cell) in colour c.
func (b *brailleBuf) setPixel(mx, my int, c colormap.Color) {
	if mx < 0 || my < 0 {
		return
	}
	cx, rx := mx/2, mx%2
	cy, ry := my/4, my%4
	if cy >= b.h || cx >= b.w {
		return
	}
	b.m[cy][cx] |= dotBits[rx][ry]
	b.c[cy][cx] = c
}

// drawDisc sets every micro-pixel within r of (mx, my).
func (b *brailleBuf) drawDisc(mx, my, r int, c colormap.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				b.setPixel(mx+dx, my+dy, c)
			}
		}
	}
}

// drawLineMicro draws a line on the microgrid using Bresenham
func (b *brailleBuf) drawLineMicro(x0, y0, x1, y1 int, c colormap.Color) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.setPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// glyph returns the braille rune of a cell, or a space when empty.
func (b *brailleBuf) glyph(x, y int) rune {
	mask := b.m[y][x]
	if mask == 0 {
		return ' '
	}
	return rune(0x2800 + int(mask))
}
