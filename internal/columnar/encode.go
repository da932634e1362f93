package columnar

import (
	"bytes"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"pointmap/internal/geom"
)

// geoArrowPoint tags the geometry field as GeoArrow Point[xyz] in WGS 84.
var geoArrowPoint = arrow.NewMetadata(
	[]string{"ARROW:extension:name", "ARROW:extension:metadata"},
	[]string{"geoarrow.point", `{"geometry_type":"Point","coords":"xyz","crs":"EPSG:4326"}`},
)

// PointSchema is the schema of every table the points service emits.
func PointSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{
			Name:     FieldGeometry,
			Type:     arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Float64),
			Nullable: true,
			Metadata: geoArrowPoint,
		},
		{Name: FieldIntensity, Type: arrow.PrimitiveTypes.Float32, Nullable: true},
	}, nil)
}

// BuildRecord converts pts into one record batch of PointSchema. The caller
// releases the record.
func BuildRecord(mem memory.Allocator, pts []geom.Point) arrow.Record {
	b := array.NewRecordBuilder(mem, PointSchema())
	defer b.Release()

	gb := b.Field(0).(*array.FixedSizeListBuilder)
	vb := gb.ValueBuilder().(*array.Float64Builder)
	ib := b.Field(1).(*array.Float32Builder)
	gb.Reserve(len(pts))
	vb.Reserve(3 * len(pts))
	ib.Reserve(len(pts))
	for _, p := range pts {
		gb.Append(true)
		vb.UnsafeAppend(p.Lon)
		vb.UnsafeAppend(p.Lat)
		vb.UnsafeAppend(p.Alt)
		ib.UnsafeAppend(p.Intensity)
	}
	return b.NewRecord()
}

// Encode writes pts to w as an Arrow IPC stream.
func Encode(w io.Writer, pts []geom.Point) error {
	mem := memory.DefaultAllocator
	rec := BuildRecord(mem, pts)
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		_ = iw.Close()
		return fmt.Errorf("write record batch: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("close ipc stream: %w", err)
	}
	return nil
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(pts []geom.Point) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, pts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Empty returns a table with PointSchema and no rows.
func Empty() *Table {
	return ownTable(PointSchema(), nil)
}
