package tui

import (
	"fmt"

	list "github.com/charmbracelet/bubbles/list"

	"pointmap/internal/scene"
)

// extentLayerID is the outline of the current request bounds.
const extentLayerID = "query-extent"

type layerItem struct {
	id, title string
	visible   bool
	detail    string
}

func (l layerItem) Title() string {
	mark := "[ ]"
	if l.visible {
		mark = "[x]"
	}
	return mark + " " + l.title
}
func (l layerItem) Description() string { return l.detail }
func (l layerItem) FilterValue() string { return l.title }

func (m *Model) refreshLayers() {
	n := m.rows()
	tileDetail := "no tile source"
	if m.base != nil && m.loader != nil {
		tileDetail = fmt.Sprintf("tiles z%d", max(0, m.tileZoom))
	}
	b := m.req.Bounds
	items := []list.Item{
		layerItem{id: scene.BaseLayerID, title: "base map", visible: m.visible[scene.BaseLayerID], detail: tileDetail},
		layerItem{id: scene.PointLayerID, title: "points", visible: m.visible[scene.PointLayerID], detail: fmt.Sprintf("%d rows", n)},
		layerItem{id: extentLayerID, title: "query extent", visible: m.visible[extentLayerID],
			detail: fmt.Sprintf("%g,%g %g,%g", b.MinX, b.MinY, b.MaxX, b.MaxY)},
	}
	m.l.SetItems(items)
}

// toggleLayer flips the visibility of layer id.
func (m *Model) toggleLayer(id string) {
	if id == scene.BaseLayerID && m.loader == nil {
		m.status = "base map: no tile source"
		return
	}
	m.visible[id] = !m.visible[id]
	m.status = fmt.Sprintf("%s: %v", id, m.visible[id])
	m.refreshLayers()
}
