package geom

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	geojson "github.com/paulmach/go.geojson"
)

// LoadGeoJSON reads Point and MultiPoint geometries from a FeatureCollection,
// a single Feature or a bare geometry. A third coordinate is the altitude and
// the "intensity" property, when numeric, the intensity.
func LoadGeoJSON(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGeoJSON(f)
}

// ReadGeoJSON is LoadGeoJSON over an open reader.
func ReadGeoJSON(r io.Reader) ([]Point, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("invalid geojson: %w", err)
	}

	var features []*geojson.Feature
	switch head.Type {
	case "":
		return nil, errors.New("invalid geojson: missing type")
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("invalid geojson: %w", err)
		}
		features = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("invalid geojson: %w", err)
		}
		features = []*geojson.Feature{f}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("invalid geojson: %w", err)
		}
		features = []*geojson.Feature{geojson.NewFeature(g)}
	}

	var points []Point
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		var intensity float32
		if v, err := f.PropertyFloat64("intensity"); err == nil {
			if math.Abs(v) > math.MaxFloat32 {
				continue
			}
			intensity = float32(v)
		}
		switch f.Geometry.Type {
		case geojson.GeometryPoint:
			if p, ok := coordPoint(f.Geometry.Point, intensity); ok {
				points = append(points, p)
			}
		case geojson.GeometryMultiPoint:
			for _, c := range f.Geometry.MultiPoint {
				if p, ok := coordPoint(c, intensity); ok {
					points = append(points, p)
				}
			}
		}
	}
	if len(points) == 0 {
		return nil, errors.New("geojson: no points found")
	}
	return points, nil
}

func coordPoint(c []float64, intensity float32) (Point, bool) {
	if len(c) < 2 {
		return Point{}, false
	}
	p := Point{Lon: c[0], Lat: c[1], Intensity: intensity}
	if len(c) > 2 {
		p.Alt = c[2]
	}
	return p, p.Finite()
}

// LoadPoints loads any supported point file, picking the reader by extension.
func LoadPoints(path string) ([]Point, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		return LoadGeoJSON(path)
	case ".csv":
		return LoadCSV(path)
	case ".kml":
		return LoadKML(path)
	default:
		return nil, fmt.Errorf("unsupported file: %q", ext)
	}
}
