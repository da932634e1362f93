// Package columnar reads and writes the point tables exchanged between the
// points service and the viewer as Arrow IPC streams.
package columnar

import (
	"bytes"
	"errors"
	"io"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Table is a read-only view over the record batches of one stream. Rows are
// addressed by their index across all batches.
type Table struct {
	schema  *arrow.Schema
	records []arrow.Record
	starts  []int // first global row of each record
	rows    int
}

// NewTable wraps records sharing schema. It retains the records; call Release
// when done.
func NewTable(schema *arrow.Schema, records []arrow.Record) *Table {
	for _, rec := range records {
		rec.Retain()
	}
	return ownTable(schema, records)
}

// ownTable takes over the caller's references to records.
func ownTable(schema *arrow.Schema, records []arrow.Record) *Table {
	t := &Table{schema: schema}
	for _, rec := range records {
		t.records = append(t.records, rec)
		t.starts = append(t.starts, t.rows)
		t.rows += int(rec.NumRows())
	}
	return t
}

// Decode parses an Arrow IPC stream held in buf.
func Decode(buf []byte) (*Table, error) {
	if len(buf) == 0 {
		return nil, &FormatError{Reason: "empty buffer"}
	}
	return Read(bytes.NewReader(buf))
}

// Read parses an Arrow IPC stream from r.
func Read(r io.Reader) (*Table, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, &FormatError{Reason: "reading stream header", Err: err}
	}
	defer rdr.Release()

	var recs []arrow.Record
	for rdr.Next() {
		// the reader recycles its record on the next call to Next
		rec := rdr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		for _, rec := range recs {
			rec.Release()
		}
		return nil, &FormatError{Reason: "reading record batch", Err: err}
	}
	return ownTable(rdr.Schema(), recs), nil
}

// Schema returns the stream schema.
func (t *Table) Schema() *arrow.Schema { return t.schema }

// NumRows returns the row count across all batches.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of top-level fields.
func (t *Table) NumCols() int { return t.schema.NumFields() }

// FieldNames lists the top-level field names in schema order.
func (t *Table) FieldNames() []string {
	names := make([]string, 0, t.schema.NumFields())
	for _, f := range t.schema.Fields() {
		names = append(names, f.Name)
	}
	return names
}

// Field returns the first field named name.
func (t *Table) Field(name string) (arrow.Field, bool) {
	idx := t.schema.FieldIndices(name)
	if len(idx) == 0 {
		return arrow.Field{}, false
	}
	return t.schema.Field(idx[0]), true
}

// chunks returns the per-batch arrays of the first field named name.
func (t *Table) chunks(name string) ([]arrow.Array, bool) {
	idx := t.schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil, false
	}
	out := make([]arrow.Array, len(t.records))
	for i, rec := range t.records {
		out[i] = rec.Column(idx[0])
	}
	return out, true
}

// locate maps a global row to (batch, row within batch).
func (t *Table) locate(row int) (int, int) {
	b := sort.Search(len(t.starts), func(i int) bool { return t.starts[i] > row }) - 1
	if b < 0 {
		b = 0
	}
	return b, row - t.starts[b]
}

// Release drops the table's references to its record batches.
func (t *Table) Release() {
	for _, rec := range t.records {
		rec.Release()
	}
	t.records = nil
}
