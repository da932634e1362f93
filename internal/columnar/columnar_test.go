package columnar

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointmap/internal/geom"
)

func samplePoints(n int) []geom.Point {
	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = geom.Point{Lon: float64(i), Lat: float64(i) / 2, Alt: float64(i * 10), Intensity: float32(i%4) * 0.75}
	}
	return pts
}

// writeStream encodes records with an arbitrary schema.
func writeStream(t *testing.T, schema *arrow.Schema, recs ...arrow.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestEncodeDecodeHundredRows(t *testing.T) {
	pts := samplePoints(100)
	buf, err := EncodeBytes(pts)
	require.NoError(t, err)

	tbl, err := Decode(buf)
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, 100, tbl.NumRows())
	assert.Equal(t, 2, tbl.NumCols())
	assert.Equal(t, []string{"geometry", "intensity"}, tbl.FieldNames())

	cols, err := Resolve(tbl)
	require.NoError(t, err)
	assert.Equal(t, 100, cols.Len())
	assert.Equal(t, 3, cols.Dims())
	assert.Equal(t, "geoarrow.point", cols.Encoding())
	for _, i := range []int{0, 1, 57, 99} {
		p := pts[i]
		assert.Equal(t, [3]float64{p.Lon, p.Lat, p.Alt}, cols.Position(i))
		assert.InDelta(t, float64(p.Intensity), cols.Intensity(i), 1e-6)
	}
}

func TestDecodeInvalid(t *testing.T) {
	for name, buf := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not arrow"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(buf)
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "got %v", err)
		})
	}
}

func TestResolveMissingIntensity(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "geometry", Type: arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Float64)},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	gb := b.Field(0).(*array.FixedSizeListBuilder)
	gb.Append(true)
	gb.ValueBuilder().(*array.Float64Builder).AppendValues([]float64{1, 1}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	tbl, err := Decode(writeStream(t, schema, rec))
	require.NoError(t, err)
	defer tbl.Release()

	_, err = Resolve(tbl)
	var mf *MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "intensity", mf.Field)
	assert.Equal(t, []string{"geometry"}, mf.Available)
}

func TestResolveNonNumericIntensity(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "geometry", Type: arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Float64)},
		{Name: "intensity", Type: arrow.BinaryTypes.String},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.FixedSizeListBuilder).Append(true)
	b.Field(0).(*array.FixedSizeListBuilder).ValueBuilder().(*array.Float64Builder).AppendValues([]float64{1, 1}, nil)
	b.Field(1).(*array.StringBuilder).Append("high")
	rec := b.NewRecord()
	defer rec.Release()

	tbl := NewTable(schema, []arrow.Record{rec})
	defer tbl.Release()

	_, err := Resolve(tbl)
	var nd *NumericDomainError
	require.True(t, errors.As(err, &nd))
	assert.Contains(t, nd.Error(), "utf8")
}

func TestResolveRejectsNonListGeometry(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "geometry", Type: arrow.BinaryTypes.Binary},
		{Name: "intensity", Type: arrow.PrimitiveTypes.Float32},
	}, nil)
	tbl := NewTable(schema, nil)
	_, err := Resolve(tbl)
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "geometry", fe.Field)
}

func TestMultiBatch2DTable(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "intensity", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "geometry", Type: arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Float32)},
	}, nil)
	mk := func(coords [][2]float32, vals []int32, valid []bool) arrow.Record {
		b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		defer b.Release()
		b.Field(0).(*array.Int32Builder).AppendValues(vals, valid)
		gb := b.Field(1).(*array.FixedSizeListBuilder)
		vb := gb.ValueBuilder().(*array.Float32Builder)
		for _, c := range coords {
			gb.Append(true)
			vb.AppendValues(c[:], nil)
		}
		return b.NewRecord()
	}
	r1 := mk([][2]float32{{1, 1}, {2, 2}}, []int32{0, 3}, nil)
	r2 := mk([][2]float32{{5, 6}}, []int32{9}, []bool{false})
	defer r1.Release()
	defer r2.Release()

	tbl, err := Decode(writeStream(t, schema, r1, r2))
	require.NoError(t, err)
	defer tbl.Release()
	require.Equal(t, 3, tbl.NumRows())

	cols, err := Resolve(tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, cols.Dims())
	assert.Equal(t, "", cols.Encoding())
	assert.Equal(t, [3]float64{2, 2, 0}, cols.Position(1))
	assert.Equal(t, [3]float64{5, 6, 0}, cols.Position(2))
	assert.Equal(t, 3.0, cols.Intensity(1))
	assert.True(t, math.IsNaN(cols.Intensity(2)))
}

func TestEmptyTable(t *testing.T) {
	tbl := Empty()
	cols, err := Resolve(tbl)
	require.NoError(t, err)
	assert.Equal(t, 0, cols.Len())

	buf, err := EncodeBytes(nil)
	require.NoError(t, err)
	decoded, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.NumRows())
	assert.Equal(t, []string{"geometry", "intensity"}, decoded.FieldNames())
}
