package tui

import (
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"pointmap/internal/geom"
	"pointmap/internal/scene"
)

const sidebarWidth = 28

type layout struct {
	contentW, contentH int
	sidebarW           int
	mapX, mapY         int
	mapW, mapH         int
}

// layout computes the screen regions; View and mouse handling must agree.
func (m Model) layout() layout {
	var lo layout
	if m.showSidebar {
		lo.sidebarW = sidebarWidth
	}
	headerHeight := 1
	footerHeight := 2
	lo.contentH = max(4, m.height-headerHeight-footerHeight)
	lo.contentW = max(10, m.width)
	lo.mapW = max(10, lo.contentW-lo.sidebarW-1)
	lo.mapH = lo.contentH
	if m.showSidebar {
		lo.mapX = lo.sidebarW + 1
	}
	lo.mapY = headerHeight
	return lo
}

// viewport is the map area in braille micro-pixels (2x4 per cell), which
// are close to square on common terminal fonts.
func (m Model) viewport() scene.Viewport {
	return scene.Viewport{View: m.view, Width: m.mapW * 2, Height: m.mapH * 4}
}

// cellToLonLat converts a map cell to the lon/lat at its centre.
func (m Model) cellToLonLat(cx, cy int) (float64, float64, bool) {
	if m.mapW <= 0 || m.mapH <= 0 {
		return 0, 0, false
	}
	lon, lat := m.viewport().Unproject(float64(cx*2+1), float64(cy*4+2))
	if lon < -180 || lon > 180 || math.IsNaN(lat) {
		return 0, 0, false
	}
	return lon, lat, true
}

// micro projects row i of the point layer to micro-pixels.
func (m Model) micro(vp scene.Viewport, i int) (int, int, bool) {
	pos := m.points.GetPosition(i)
	if math.IsNaN(pos[0]) || math.IsNaN(pos[1]) {
		return 0, 0, false
	}
	x, y := vp.Project(pos[0], pos[1])
	return int(math.Floor(x)), int(math.Floor(y)), true
}

// nearest returns the visible row closest to micro-pixel (mx, my).
func (m Model) nearest(mx, my int) (int, bool) {
	if m.points == nil || !m.visible[scene.PointLayerID] {
		return 0, false
	}
	vp := m.viewport()
	best, bestD := -1, math.MaxInt
	for i := range m.points.Len {
		px, py, ok := m.micro(vp, i)
		if !ok || m.points.GetFillColor(i).A == 0 {
			continue
		}
		dx, dy := px-mx, py-my
		if d := dx*dx + dy*dy; d < bestD {
			best, bestD = i, d
		}
	}
	return best, best >= 0
}

// inspectNearest finds the row closest to the viewport centre.
func (m Model) inspectNearest() (int, bool) {
	return m.nearest(m.mapW, m.mapH*2)
}

// dataBounds is the lon/lat box of all drawable rows.
func (m Model) dataBounds() (geom.BBox, bool) {
	var bb geom.BBox
	n := 0
	if m.points == nil {
		return bb, false
	}
	for i := range m.points.Len {
		p := m.points.GetPosition(i)
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			continue
		}
		if n == 0 {
			bb = geom.BBox{MinX: p[0], MinY: p[1], MaxX: p[0], MaxY: p[1]}
		} else {
			bb = bb.Extend(p[0], p[1])
		}
		n++
	}
	return bb, n > 0
}

type cell struct {
	r      rune
	fg, bg string
}

func (m Model) renderMap(w, h int) string {
	vp := scene.Viewport{View: m.view, Width: w * 2, Height: h * 4}
	br := newBrailleBuf(w, h)

	// Request bounds outline
	if m.visible[extentLayerID] {
		b := m.req.Bounds
		corners := [][2]float64{{b.MinX, b.MinY}, {b.MaxX, b.MinY}, {b.MaxX, b.MaxY}, {b.MinX, b.MaxY}}
		var mic [4][2]int
		for i, c := range corners {
			x, y := vp.Project(c[0], c[1])
			mic[i] = [2]int{int(math.Floor(x)), int(math.Floor(y))}
		}
		for i := range mic {
			p, q := mic[i], mic[(i+1)%len(mic)]
			br.drawLineMicro(p[0], p[1], q[0], q[1], extentColor)
		}
	}

	// Points, later rows on top
	if m.points != nil && m.visible[scene.PointLayerID] {
		r := max(0, m.points.RadiusMinPixels/2)
		for i := range m.points.Len {
			c := m.points.GetFillColor(i)
			if c.A == 0 {
				continue
			}
			mx, my, ok := m.micro(vp, i)
			if !ok {
				continue
			}
			br.drawDisc(mx, my, r, c)
		}
	}

	// Base map sampled at each cell centre
	var bms map[string]*scene.BitmapLayer
	if m.visible[scene.BaseLayerID] && m.profile != termenv.Ascii {
		bms = m.bitmaps()
	}

	grid := make([][]cell, h)
	for y := range h {
		grid[y] = make([]cell, w)
		for x := range w {
			var bg color.Color
			if len(bms) > 0 {
				lon, lat := vp.Unproject(float64(x*2+1), float64(y*4+2))
				t := maptile.At(orb.Point{lon, lat}, maptile.Zoom(m.tileZoom))
				if bm, ok := bms[scene.TileKey(t)]; ok {
					bg, _ = bm.Sample(lon, lat)
				}
			}
			c := cell{r: br.glyph(x, y), bg: hexOf(bg)}
			if c.r != ' ' {
				c.fg = over(br.c[y][x], bg)
			}
			grid[y][x] = c
		}
	}

	// Hover highlight: orange circle at the hovered point
	if m.hovering && m.hoverPoint {
		cx, cy := m.hoverMicX/2, m.hoverMicY/4
		if cy >= 0 && cy < h && cx >= 0 && cx < w {
			grid[cy][cx].r = '◯'
			grid[cy][cx].fg = string(hoverFg)
		}
	}

	lines := make([]string, h)
	for y, row := range grid {
		lines[y] = renderRow(row)
	}
	return strings.Join(lines, "\n")
}

// renderRow styles runs of cells sharing colours together.
func renderRow(row []cell) string {
	var sb strings.Builder
	for i := 0; i < len(row); {
		j := i
		runes := make([]rune, 0, len(row)-i)
		for j < len(row) && row[j].fg == row[i].fg && row[j].bg == row[i].bg {
			runes = append(runes, row[j].r)
			j++
		}
		st := lipgloss.NewStyle()
		if row[i].fg != "" {
			st = st.Foreground(lipgloss.Color(row[i].fg))
		}
		if row[i].bg != "" {
			st = st.Background(lipgloss.Color(row[i].bg))
		}
		if row[i].fg == "" && row[i].bg == "" {
			sb.WriteString(string(runes))
		} else {
			sb.WriteString(st.Render(string(runes)))
		}
		i = j
	}
	return sb.String()
}
