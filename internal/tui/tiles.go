package tui

import (
	"context"
	"image"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/paulmach/orb/maptile"

	"pointmap/internal/scene"
	"pointmap/internal/tiles"
)

type tileMsg struct {
	tile maptile.Tile
	img  image.Image
	err  error
}

func loadTile(ctx context.Context, l tiles.Loader, template string, t maptile.Tile) tea.Cmd {
	return func() tea.Msg {
		img, err := l.Load(ctx, template, t)
		return tileMsg{tile: t, img: img, err: err}
	}
}

// requestTiles starts loads for visible tiles not yet fetched. Changing the
// tile zoom drops everything cached for the previous zoom.
func (m *Model) requestTiles() tea.Cmd {
	if m.loader == nil || m.base == nil || !m.visible[scene.BaseLayerID] || m.mapW == 0 {
		return nil
	}
	z := m.base.ClampZoom(m.view.Zoom)
	if z != m.tileZoom {
		m.tileZoom = z
		m.tiles = map[string]image.Image{}
		m.pending = map[string]bool{}
	}
	var cmds []tea.Cmd
	for _, t := range m.viewport().Tiles(z) {
		key := scene.TileKey(t)
		if _, done := m.tiles[key]; done || m.pending[key] {
			continue
		}
		m.pending[key] = true
		cmds = append(cmds, loadTile(m.ctx, m.loader, m.base.Data, t))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleTile(msg tileMsg) {
	if int(msg.tile.Z) != m.tileZoom {
		return
	}
	key := scene.TileKey(msg.tile)
	delete(m.pending, key)
	if msg.err != nil {
		m.logger.Warn("tile failed", "tile", key, "err", msg.err)
		m.tiles[key] = nil
		return
	}
	m.tiles[key] = msg.img
}

// bitmaps returns the drawable base-map bitmaps keyed by tile.
func (m Model) bitmaps() map[string]*scene.BitmapLayer {
	out := make(map[string]*scene.BitmapLayer, len(m.tiles))
	if m.base == nil || m.base.RenderSubLayers == nil || m.tileZoom < 0 {
		return out
	}
	for _, t := range m.viewport().Tiles(m.tileZoom) {
		key := scene.TileKey(t)
		if bm, ok := m.base.RenderSubLayers(scene.Tile{Index: t, Content: m.tiles[key]}); ok {
			out[key] = bm
		}
	}
	return out
}
