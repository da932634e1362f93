// Package scene describes what a map shows: a tiled raster base layer and a
// scatter layer over a decoded point table, plus the initial camera. Renderers
// turn a Scene into pixels or terminal cells.
package scene

import (
	"context"
	"image"
	"image/color"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"pointmap/internal/colormap"
)

// Renderer draws a Scene onto its target.
type Renderer interface {
	Render(ctx context.Context, s Scene) error
}

// ViewState is the camera: centre and slippy-map zoom.
type ViewState struct {
	Longitude float64
	Latitude  float64
	Zoom      float64
}

// Layer is one visual layer of a scene.
type Layer interface {
	ID() string
}

// Scene is the full render input.
type Scene struct {
	Target           string // render destination; meaning depends on the renderer
	InitialViewState ViewState
	Controller       bool // whether the user may pan and zoom
	Layers           []Layer
}

// Tile is one slippy tile and its image once loaded.
type Tile struct {
	Index   maptile.Tile
	Content image.Image // nil until loaded
}

// BoundingBox returns the lon/lat bounds of the tile.
func (t Tile) BoundingBox() orb.Bound {
	return t.Index.Bound()
}

// TileLayer is a raster base map addressed by a {z}/{x}/{y} URL template.
type TileLayer struct {
	Name     string
	Data     string // URL template
	MinZoom  int
	MaxZoom  int
	TileSize int
	// RenderSubLayers turns a tile into a drawable bitmap; false means the
	// tile has nothing to draw yet.
	RenderSubLayers func(Tile) (*BitmapLayer, bool)
}

func (l *TileLayer) ID() string { return l.Name }

// ClampZoom returns the integer tile zoom used at view zoom z.
func (l *TileLayer) ClampZoom(z float64) int {
	iz := int(z + 0.5)
	if z < 0 {
		iz = 0
	}
	return max(l.MinZoom, min(l.MaxZoom, iz))
}

// BitmapLayer is an image stretched over lon/lat bounds.
type BitmapLayer struct {
	Name   string
	Image  image.Image
	Bounds orb.Bound
}

func (l *BitmapLayer) ID() string { return l.Name }

// Sample returns the bitmap colour at lon/lat, nearest-neighbour, with the
// vertical axis interpolated in Web Mercator space.
func (l *BitmapLayer) Sample(lon, lat float64) (color.Color, bool) {
	if l.Image == nil || !l.Bounds.Contains(orb.Point{lon, lat}) {
		return nil, false
	}
	b := l.Image.Bounds()
	fx := (lon - l.Bounds.Min.Lon()) / (l.Bounds.Max.Lon() - l.Bounds.Min.Lon())
	top, bottom := mercY(l.Bounds.Max.Lat()), mercY(l.Bounds.Min.Lat())
	fy := (mercY(lat) - top) / (bottom - top)
	px := b.Min.X + min(b.Dx()-1, int(fx*float64(b.Dx())))
	py := b.Min.Y + min(b.Dy()-1, int(fy*float64(b.Dy())))
	return l.Image.At(px, py), true
}

// ScatterLayer draws one disc per row of a table.
type ScatterLayer struct {
	Name            string
	Len             int
	GetPosition     func(i int) [3]float64
	GetFillColor    func(i int) colormap.Color
	GetIntensity    func(i int) float64 // raw value behind the colour; may be nil
	RadiusMinPixels int
}

func (l *ScatterLayer) ID() string { return l.Name }

// Layer finds a layer by ID.
func (s Scene) Layer(id string) (Layer, bool) {
	for _, l := range s.Layers {
		if l.ID() == id {
			return l, true
		}
	}
	return nil, false
}
