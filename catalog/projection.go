package catalog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// WidenRecord returns a record with the full schema, taking columns present
// in rec by name and filling the rest with nulls. The caller owns the
// returned record; rec is left untouched.
func WidenRecord(mem memory.Allocator, full *arrow.Schema, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
	if rec.Schema().Equal(full) {
		rec.Retain()
		return rec, nil
	}

	rows := int(rec.NumRows())
	cols := make([]arrow.Array, full.NumFields())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i, f := range full.Fields() {
		idx := rec.Schema().FieldIndices(f.Name)
		if len(idx) == 0 {
			cols[i] = array.MakeArrayOfNull(mem, f.Type, rows)
			continue
		}
		col := rec.Column(idx[0])
		if !arrow.TypeEqual(col.DataType(), f.Type) {
			return nil, fmt.Errorf("column %s: got type %s, want %s", f.Name, col.DataType(), f.Type)
		}
		col.Retain()
		cols[i] = col
	}

	return array.NewRecordBatch(full, cols, int64(rows)), nil
}
