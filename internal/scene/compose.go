package scene

import (
	"pointmap/internal/colormap"
	"pointmap/internal/columnar"
)

// Layer IDs used by Compose.
const (
	BaseLayerID    = "base-map"
	PointLayerID   = "geoarrow-layer"
	DefaultTileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultTarget  = "deck-canvas"
)

// Options configure Compose.
type Options struct {
	Target          string
	View            ViewState
	TileURL         string
	MinZoom         int
	MaxZoom         int
	TileSize        int
	RadiusMinPixels int
}

// DefaultOptions returns the stock map: OSM tiles, camera at 20E 20N zoom 4.
func DefaultOptions() Options {
	return Options{
		Target:          DefaultTarget,
		View:            ViewState{Longitude: 20, Latitude: 20, Zoom: 4},
		TileURL:         DefaultTileURL,
		MinZoom:         0,
		MaxZoom:         19,
		TileSize:        256,
		RadiusMinPixels: 2,
	}
}

// Compose builds the base tile layer and the point layer for cols.
func Compose(cols columnar.Columns, opts Options) Scene {
	base := &TileLayer{
		Name:     BaseLayerID,
		Data:     opts.TileURL,
		MinZoom:  opts.MinZoom,
		MaxZoom:  opts.MaxZoom,
		TileSize: opts.TileSize,
		RenderSubLayers: func(t Tile) (*BitmapLayer, bool) {
			if t.Content == nil {
				return nil, false
			}
			return &BitmapLayer{
				Name:   BaseLayerID + "-" + TileKey(t.Index),
				Image:  t.Content,
				Bounds: t.BoundingBox(),
			}, true
		},
	}

	points := &ScatterLayer{
		Name:        PointLayerID,
		Len:         cols.Len(),
		GetPosition: cols.Position,
		GetFillColor: func(i int) colormap.Color {
			return colormap.MapIntensity(cols.Intensity(i))
		},
		GetIntensity:    cols.Intensity,
		RadiusMinPixels: opts.RadiusMinPixels,
	}

	return Scene{
		Target:           opts.Target,
		InitialViewState: opts.View,
		Controller:       true,
		Layers:           []Layer{base, points},
	}
}
