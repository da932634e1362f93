package scene

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"pointmap/internal/geom"
)

// maxLat is the latitude limit of the Web Mercator square.
const maxLat = 85.05112878

// worldTile is the side of the world in pixels at zoom 0.
const worldTile = 256.0

func mercX(lon float64) float64 { return (lon + 180) / 360 }

func mercY(lat float64) float64 {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	phi := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) / 2
}

func invMercY(y float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
}

// TileKey formats a tile as z/x/y.
func TileKey(t maptile.Tile) string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Viewport is a ViewState seen through a Width x Height pixel window.
type Viewport struct {
	View   ViewState
	Width  int
	Height int
}

func (v Viewport) worldSize() float64 {
	return worldTile * math.Exp2(v.View.Zoom)
}

// Project maps lon/lat to window pixels; (0,0) is the top-left corner.
func (v Viewport) Project(lon, lat float64) (x, y float64) {
	ws := v.worldSize()
	x = (mercX(lon)-mercX(v.View.Longitude))*ws + float64(v.Width)/2
	y = (mercY(lat)-mercY(v.View.Latitude))*ws + float64(v.Height)/2
	return x, y
}

// Unproject maps window pixels back to lon/lat.
func (v Viewport) Unproject(x, y float64) (lon, lat float64) {
	ws := v.worldSize()
	mx := (x-float64(v.Width)/2)/ws + mercX(v.View.Longitude)
	my := (y-float64(v.Height)/2)/ws + mercY(v.View.Latitude)
	return mx*360 - 180, invMercY(my)
}

// Bounds returns the lon/lat rectangle visible in the window, clipped to the
// Mercator square.
func (v Viewport) Bounds() orb.Bound {
	west, north := v.Unproject(0, 0)
	east, south := v.Unproject(float64(v.Width), float64(v.Height))
	return orb.Bound{
		Min: orb.Point{math.Max(-180, west), math.Max(-maxLat, south)},
		Max: orb.Point{math.Min(180, east), math.Min(maxLat, north)},
	}
}

// Tiles lists the slippy tiles at zoom z that intersect the window, row by
// row from the north-west corner.
func (v Viewport) Tiles(z int) []maptile.Tile {
	b := v.Bounds()
	if b.Min.Lon() >= b.Max.Lon() || b.Min.Lat() >= b.Max.Lat() {
		return nil
	}
	zoom := maptile.Zoom(z)
	nw := maptile.At(orb.Point{b.Min.Lon(), b.Max.Lat()}, zoom)
	se := maptile.At(orb.Point{b.Max.Lon(), b.Min.Lat()}, zoom)
	limit := uint32(1)<<uint(z) - 1
	var out []maptile.Tile
	for y := nw.Y; y <= min(se.Y, limit); y++ {
		for x := nw.X; x <= min(se.X, limit); x++ {
			out = append(out, maptile.New(x, y, zoom))
		}
	}
	return out
}

// Pan moves the centre by dx, dy window pixels.
func (v Viewport) Pan(dx, dy float64) ViewState {
	lon, lat := v.Unproject(float64(v.Width)/2+dx, float64(v.Height)/2+dy)
	out := v.View
	out.Longitude = math.Max(-180, math.Min(180, lon))
	out.Latitude = math.Max(-maxLat, math.Min(maxLat, lat))
	return out
}

// Fit returns a view centred on bb at the largest zoom that keeps it inside a
// width x height window, capped at maxZoom.
func Fit(bb geom.BBox, width, height int, maxZoom float64) ViewState {
	cx := (bb.MinX + bb.MaxX) / 2
	cy := invMercY((mercY(bb.MinY) + mercY(bb.MaxY)) / 2)
	dx := mercX(bb.MaxX) - mercX(bb.MinX)
	dy := mercY(bb.MinY) - mercY(bb.MaxY)
	zoom := maxZoom
	if dx > 0 {
		zoom = math.Min(zoom, math.Log2(float64(width)/(dx*worldTile)))
	}
	if dy > 0 {
		zoom = math.Min(zoom, math.Log2(float64(height)/(dy*worldTile)))
	}
	return ViewState{Longitude: cx, Latitude: cy, Zoom: math.Max(0, zoom)}
}
