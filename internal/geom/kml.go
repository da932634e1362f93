package geom

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
)

type kmlPlacemark struct {
	Point *struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"Point"`
	Data []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value"`
	} `xml:"ExtendedData>Data"`
}

// intensity reads an ExtendedData entry named intensity or value.
func (pm kmlPlacemark) intensity() float32 {
	for _, d := range pm.Data {
		switch strings.ToLower(d.Name) {
		case "intensity", "value":
			if v, err := strconv.ParseFloat(strings.TrimSpace(d.Value), 32); err == nil {
				return float32(v)
			}
		}
	}
	return 0
}

// LoadKML extracts Placemark points from a KML file, at any depth of
// Document and Folder nesting.
func LoadKML(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadKML(f)
}

// ReadKML is LoadKML over an open reader. Coordinates are "lon,lat[,alt]"
// tuples separated by whitespace.
func ReadKML(r io.Reader) ([]Point, error) {
	dec := xml.NewDecoder(r)
	var points []Point
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}
		var pm kmlPlacemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return nil, err
		}
		if pm.Point == nil {
			continue
		}
		in := pm.intensity()
		for _, tuple := range strings.Fields(pm.Point.Coordinates) {
			p, ok := kmlTuple(tuple)
			if !ok {
				continue
			}
			p.Intensity = in
			if p.Finite() {
				points = append(points, p)
			}
		}
	}
	if len(points) == 0 {
		return nil, errors.New("kml: no points found")
	}
	return points, nil
}

func kmlTuple(s string) (Point, bool) {
	vals := strings.Split(s, ",")
	if len(vals) < 2 {
		return Point{}, false
	}
	var c [3]float64
	for i := 0; i < len(vals) && i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(vals[i]), 64)
		if err != nil {
			if i < 2 {
				return Point{}, false
			}
			break
		}
		c[i] = v
	}
	return Point{Lon: c[0], Lat: c[1], Alt: c[2]}, true
}
