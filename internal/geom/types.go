package geom

import "math"

// BBox is a planar lon/lat rectangle.
type BBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Extent is a BBox bounded in altitude as well.
type Extent struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
	MinZ float64
	MaxZ float64
}

// Point is one sample of a point cloud.
type Point struct {
	Lon       float64
	Lat       float64
	Alt       float64
	Intensity float32
}

// Valid reports whether the box has a positive area.
func (b BBox) Valid() bool {
	return b.MaxX > b.MinX && b.MaxY > b.MinY
}

// Extend grows the box to include lon/lat. The zero BBox is treated as empty
// only by callers that track the first point themselves.
func (b BBox) Extend(lon, lat float64) BBox {
	b.MinX = math.Min(b.MinX, lon)
	b.MinY = math.Min(b.MinY, lat)
	b.MaxX = math.Max(b.MaxX, lon)
	b.MaxY = math.Max(b.MaxY, lat)
	return b
}

// Finite reports whether every coordinate and the intensity of p is a
// finite number. SQLite stores NaN as NULL, so non-finite samples are
// dropped at ingest.
func (p Point) Finite() bool {
	for _, v := range [...]float64{p.Lon, p.Lat, p.Alt, float64(p.Intensity)} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Contains reports whether p lies inside e, borders included.
func (e Extent) Contains(p Point) bool {
	return p.Lon >= e.MinX && p.Lon <= e.MaxX &&
		p.Lat >= e.MinY && p.Lat <= e.MaxY &&
		p.Alt >= e.MinZ && p.Alt <= e.MaxZ
}

// Bounds returns the planar bounding box of pts.
func Bounds(pts []Point) BBox {
	var bb BBox
	for i, p := range pts {
		if i == 0 {
			bb = BBox{MinX: p.Lon, MinY: p.Lat, MaxX: p.Lon, MaxY: p.Lat}
			continue
		}
		bb = bb.Extend(p.Lon, p.Lat)
	}
	return bb
}
