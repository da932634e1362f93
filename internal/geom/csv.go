package geom

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads a CSV with longitude/latitude columns and optional altitude
// and intensity columns.
// Column detection (case-insensitive):
//
//	lon|lng|long|longitude|x, lat|latitude|y, alt|altitude|elevation|z, intensity|value
func LoadCSV(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV is LoadCSV over an open reader.
func ReadCSV(r io.Reader) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("empty csv")
	}
	idxLat, idxLon, idxAlt, idxInt := -1, -1, -1, -1
	first := func(idx *int, i int) {
		if *idx == -1 {
			*idx = i
		}
	}
	for i, h := range recs[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lat", "latitude", "y":
			first(&idxLat, i)
		case "lon", "lng", "long", "longitude", "x":
			first(&idxLon, i)
		case "alt", "altitude", "elevation", "z":
			first(&idxAlt, i)
		case "intensity", "value":
			first(&idxInt, i)
		}
	}
	if idxLat == -1 || idxLon == -1 {
		return nil, errors.New("csv: latitude/longitude columns not found")
	}
	field := func(row []string, idx int) (float64, bool) {
		if idx < 0 || idx >= len(row) {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
		return v, err == nil
	}
	var points []Point
	for _, row := range recs[1:] {
		lon, ok1 := field(row, idxLon)
		lat, ok2 := field(row, idxLat)
		if !ok1 || !ok2 {
			continue
		}
		alt, _ := field(row, idxAlt)
		in, _ := field(row, idxInt)
		if math.Abs(in) > math.MaxFloat32 {
			continue
		}
		p := Point{Lon: lon, Lat: lat, Alt: alt, Intensity: float32(in)}
		if !p.Finite() {
			continue
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, errors.New("csv: no valid points parsed")
	}
	return points, nil
}
