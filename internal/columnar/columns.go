package columnar

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Column names of a point table.
const (
	FieldGeometry  = "geometry"
	FieldIntensity = "intensity"
)

// Columns gives typed, row-indexed access to the geometry and intensity
// columns of a Table.
type Columns struct {
	table     *Table
	dim       int
	encoding  string
	geometry  []*array.FixedSizeList
	coords    []func(int) float64
	intensity []func(int) float64
}

// Resolve looks up the geometry and intensity columns of t.
//
// geometry must be a fixed-size list of 2 or 3 floats per row (GeoArrow
// interleaved point); intensity any integer or floating point column.
func Resolve(t *Table) (Columns, error) {
	c := Columns{table: t}

	gf, ok := t.Field(FieldGeometry)
	if !ok {
		return Columns{}, &MissingFieldError{Field: FieldGeometry, Available: t.FieldNames()}
	}
	inf, ok := t.Field(FieldIntensity)
	if !ok {
		return Columns{}, &MissingFieldError{Field: FieldIntensity, Available: t.FieldNames()}
	}

	lt, ok := gf.Type.(*arrow.FixedSizeListType)
	if !ok {
		return Columns{}, &FormatError{Field: FieldGeometry, Reason: "expected fixed-size list, got " + gf.Type.String()}
	}
	if lt.Len() != 2 && lt.Len() != 3 {
		return Columns{}, &FormatError{Field: FieldGeometry, Reason: "expected 2 or 3 coordinates per point"}
	}
	c.dim = int(lt.Len())
	if i := gf.Metadata.FindKey("ARROW:extension:name"); i >= 0 {
		c.encoding = gf.Metadata.Values()[i]
	}

	gchunks, _ := t.chunks(FieldGeometry)
	for _, ch := range gchunks {
		fl, ok := ch.(*array.FixedSizeList)
		if !ok {
			return Columns{}, &FormatError{Field: FieldGeometry, Reason: "unexpected array " + ch.DataType().String()}
		}
		vals, ok := floatReader(fl.ListValues())
		if !ok {
			return Columns{}, &FormatError{Field: FieldGeometry, Reason: "coordinates are not floating point: " + lt.Elem().String()}
		}
		c.geometry = append(c.geometry, fl)
		c.coords = append(c.coords, vals)
	}

	ichunks, _ := t.chunks(FieldIntensity)
	for _, ch := range ichunks {
		r, ok := numericReader(ch)
		if !ok {
			return Columns{}, &NumericDomainError{Field: FieldIntensity, Type: inf.Type}
		}
		c.intensity = append(c.intensity, r)
	}
	return c, nil
}

// Len returns the number of rows.
func (c Columns) Len() int {
	if c.table == nil {
		return 0
	}
	return c.table.NumRows()
}

// Dims is 2 for lon/lat and 3 for lon/lat/alt geometries.
func (c Columns) Dims() int { return c.dim }

// Encoding is the GeoArrow extension name of the geometry field, if any.
func (c Columns) Encoding() string { return c.encoding }

// Position returns lon, lat and altitude of row i. Altitude is 0 for 2D
// geometries; a null geometry yields NaN coordinates.
func (c Columns) Position(i int) [3]float64 {
	b, r := c.table.locate(i)
	fl := c.geometry[b]
	if fl.IsNull(r) {
		return [3]float64{math.NaN(), math.NaN(), math.NaN()}
	}
	start, _ := fl.ValueOffsets(r)
	vals := c.coords[b]
	s := int(start)
	p := [3]float64{vals(s), vals(s + 1), 0}
	if c.dim == 3 {
		p[2] = vals(s + 2)
	}
	return p
}

// Intensity returns the intensity of row i; null is NaN.
func (c Columns) Intensity(i int) float64 {
	b, r := c.table.locate(i)
	return c.intensity[b](r)
}

type valuer[T number] interface {
	Value(int) T
	IsNull(int) bool
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func reader[T number](a valuer[T]) func(int) float64 {
	return func(i int) float64 {
		if a.IsNull(i) {
			return math.NaN()
		}
		return float64(a.Value(i))
	}
}

func floatReader(a arrow.Array) (func(int) float64, bool) {
	switch a := a.(type) {
	case *array.Float64:
		return reader[float64](a), true
	case *array.Float32:
		return reader[float32](a), true
	}
	return nil, false
}

func numericReader(a arrow.Array) (func(int) float64, bool) {
	if r, ok := floatReader(a); ok {
		return r, true
	}
	switch a := a.(type) {
	case *array.Int8:
		return reader[int8](a), true
	case *array.Int16:
		return reader[int16](a), true
	case *array.Int32:
		return reader[int32](a), true
	case *array.Int64:
		return reader[int64](a), true
	case *array.Uint8:
		return reader[uint8](a), true
	case *array.Uint16:
		return reader[uint16](a), true
	case *array.Uint32:
		return reader[uint32](a), true
	case *array.Uint64:
		return reader[uint64](a), true
	}
	return nil, false
}
