package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"pointmap/internal/pointsapi"
	"pointmap/internal/scene"
)

const (
	zoomStep = 0.25
	maxZoom  = 22
)

type reloadMsg struct {
	req     pointsapi.Request
	scene   scene.Scene
	release func()
	err     error
}

func reloadCmd(ctx context.Context, fn ReloadFunc, req pointsapi.Request) tea.Cmd {
	return func() tea.Msg {
		s, release, err := fn(ctx, req)
		return reloadMsg{req: req, scene: s, release: release, err: err}
	}
}

// resize re-lays out the screen after a size or sidebar change.
func (m *Model) resize() {
	lo := m.layout()
	m.mapW, m.mapH = lo.mapW, lo.mapH
	if m.showSidebar {
		m.l.SetSize(lo.sidebarW-2, lo.contentH-2)
	}
}

func (m *Model) setZoom(z float64) {
	m.view.Zoom = math.Max(0, math.Min(maxZoom, z))
	m.status = fmt.Sprintf("zoom: %.2f", m.view.Zoom)
}

func (m *Model) pan(dx, dy float64) {
	m.view = m.viewport().Pan(dx, dy)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		cmd := m.requestTiles()
		return m, cmd
	case tileMsg:
		m.handleTile(msg)
		return m, nil
	case reloadMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "reload error: " + msg.err.Error()
			return m, nil
		}
		if m.release != nil {
			m.release()
		}
		m.release = msg.release
		m.req = msg.req
		m.setScene(msg.scene)
		m.inspectPopup = ""
		m.refreshLayers()
		if m.showAttrs {
			m.refreshAttrsFromCurrent()
		}
		m.status = fmt.Sprintf("fetched %d rows", m.rows())
		cmd := m.requestTiles()
		return m, cmd
	case tea.KeyMsg:
		if m.queryMode {
			switch msg.String() {
			case "esc":
				m.queryMode = false
				m.ta.Blur()
				return m, nil
			case "enter":
				if m.loading {
					m.status = "fetch in progress"
					return m, nil
				}
				q := strings.TrimSpace(m.ta.Value())
				req, err := pointsapi.ParseQuery(q, m.req)
				if err != nil {
					m.status = "query error: " + err.Error()
					return m, nil
				}
				m.queryMode = false
				m.ta.Blur()
				m.loading = true
				m.status = "fetching " + req.Query()
				return m, reloadCmd(m.ctx, m.reload, req)
			}
			var cmd tea.Cmd
			m.ta, cmd = m.ta.Update(msg)
			return m, cmd
		}
		if m.showSidebar && (msg.String() == "up" || msg.String() == "down") {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			m.inspectPopup = ""
			m.showAttrs = false
		case "1":
			m.toggleLayer(scene.BaseLayerID)
		case "2":
			m.toggleLayer(scene.PointLayerID)
		case "3":
			m.toggleLayer(extentLayerID)
		case "+", "=":
			m.setZoom(m.view.Zoom + zoomStep)
		case "-", "_":
			m.setZoom(m.view.Zoom - zoomStep)
		case "tab":
			m.showSidebar = !m.showSidebar
			m.resize()
			if m.showSidebar {
				m.refreshLayers()
			}
		case "p":
			if m.reload == nil {
				m.status = "query editor: no points source"
				return m, nil
			}
			m.queryMode = true
			m.ta.SetValue(strings.ReplaceAll(m.req.Query(), "&", " "))
			m.status = "query mode"
			m.ta.Focus()
		case "r":
			if m.reload == nil || m.loading {
				return m, nil
			}
			m.loading = true
			m.status = "fetching " + m.req.Query()
			return m, reloadCmd(m.ctx, m.reload, m.req)
		case "h":
			m.helpVisible = !m.helpVisible
		case "a":
			m.showAttrs = !m.showAttrs
			if m.showAttrs {
				m.refreshAttrsFromCurrent()
			}
		case "f":
			bb, ok := m.dataBounds()
			if !ok {
				m.status = "fit: no points"
				return m, nil
			}
			m.view = scene.Fit(bb, m.mapW*2, m.mapH*4, float64(m.maxTileZoom()))
			m.status = fmt.Sprintf("fit to %d rows", m.rows())
		case "i":
			if m.inspectPopup != "" {
				m.inspectPopup = ""
				break
			}
			if i, ok := m.inspectNearest(); ok {
				m.inspectPopup = m.inspectText(i)
				m.status = "inspect popup"
			} else {
				m.inspectPopup = "no point nearby"
				m.status = m.inspectPopup
			}
		case "l":
			// toggle all layers
			all := m.visible[scene.PointLayerID] && m.visible[extentLayerID] &&
				(m.visible[scene.BaseLayerID] || m.loader == nil)
			for id := range m.visible {
				m.visible[id] = !all
			}
			if m.loader == nil {
				m.visible[scene.BaseLayerID] = false
			}
			m.refreshLayers()
			m.status = fmt.Sprintf("layers: base=%v pts=%v extent=%v",
				m.visible[scene.BaseLayerID], m.visible[scene.PointLayerID], m.visible[extentLayerID])
		case "enter":
			if m.showSidebar {
				if it, ok := m.l.SelectedItem().(layerItem); ok {
					m.toggleLayer(it.id)
				}
			}
		case "up":
			m.pan(0, -8)
		case "down":
			m.pan(0, 8)
		case "left":
			m.pan(-8, 0)
		case "right":
			m.pan(8, 0)
		}
		cmd := m.requestTiles()
		return m, cmd
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.setZoom(m.view.Zoom + zoomStep)
			cmd := m.requestTiles()
			return m, cmd
		case tea.MouseButtonWheelDown:
			m.setZoom(m.view.Zoom - zoomStep)
			cmd := m.requestTiles()
			return m, cmd
		}
		m.hover(msg.X, msg.Y)
	}
	return m, nil
}

// hover tracks the cursor over the map area.
func (m *Model) hover(x, y int) {
	lo := m.layout()
	if x < lo.mapX || x >= lo.mapX+lo.mapW || y < lo.mapY || y >= lo.mapY+lo.mapH {
		m.hovering = false
		m.hoverHasGeo = false
		return
	}
	m.hovering = true
	m.hoverCellX = x - lo.mapX
	m.hoverCellY = y - lo.mapY
	m.hoverLon, m.hoverLat, m.hoverHasGeo = m.cellToLonLat(m.hoverCellX, m.hoverCellY)

	// nearest point within a few cells, in micro coords
	hx, hy := m.hoverCellX*2, m.hoverCellY*4
	m.hoverPoint = false
	if i, ok := m.nearest(hx, hy); ok {
		px, py, _ := m.micro(m.viewport(), i)
		if abs(px-hx) <= 8 && abs(py-hy) <= 8 {
			m.hoverPoint = true
			m.hoverMicX, m.hoverMicY = px, py
		}
	}
}

func (m Model) rows() int {
	if m.points == nil {
		return 0
	}
	return m.points.Len
}

func (m Model) maxTileZoom() int {
	if m.base != nil {
		return m.base.MaxZoom
	}
	return maxZoom
}

func (m Model) inspectText(i int) string {
	p := m.points.GetPosition(i)
	c := m.points.GetFillColor(i)
	b := m.req.Bounds
	meta := []string{
		fmt.Sprintf("row: %d of %d", i, m.rows()),
		fmt.Sprintf("lon=%.6f lat=%.6f alt=%.2f", p[0], p[1], p[2]),
		"intensity: " + m.intensityText(i),
		fmt.Sprintf("color: %s alpha=%d", c.Hex(), c.A),
		fmt.Sprintf("bbox: [%g, %g, %g, %g]", b.MinX, b.MinY, b.MaxX, b.MaxY),
		fmt.Sprintf("z: [%g, %g] limit=%d", b.MinZ, b.MaxZ, m.req.Limit),
		"crs: EPSG:4326",
	}
	return strings.Join(meta, "\n")
}
