package restcatalog

import (
	"context"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/airport-openapi/catalog"
	"github.com/hugr-lab/airport-openapi/connector"
	"github.com/hugr-lab/airport-openapi/wire"
)

// scanReader drains its splits one after another, one page per batch.
type scanReader struct {
	refs int64

	ctx        context.Context
	cat        *Catalog
	schema     *arrow.Schema
	splits     []connector.Split
	columns    []connector.ColumnHandle
	constraint wire.TupleDomain

	next    int
	reader  *connector.PageReader
	current arrow.RecordBatch
	err     error
}

var _ array.RecordReader = (*scanReader)(nil)

func newScanReader(ctx context.Context, cat *Catalog, schema *arrow.Schema, splits []connector.Split, columns []connector.ColumnHandle, constraint wire.TupleDomain) *scanReader {
	return &scanReader{
		refs:       1,
		ctx:        ctx,
		cat:        cat,
		schema:     schema,
		splits:     splits,
		columns:    columns,
		constraint: constraint,
	}
}

func (r *scanReader) Schema() *arrow.Schema          { return r.schema }
func (r *scanReader) Record() arrow.RecordBatch      { return r.current }
func (r *scanReader) RecordBatch() arrow.RecordBatch { return r.current }
func (r *scanReader) Err() error                     { return r.err }

func (r *scanReader) Retain() {
	atomic.AddInt64(&r.refs, 1)
}

func (r *scanReader) Release() {
	if atomic.AddInt64(&r.refs, -1) == 0 {
		r.releaseCurrent()
	}
}

func (r *scanReader) releaseCurrent() {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
}

func (r *scanReader) Next() bool {
	r.releaseCurrent()

	for r.err == nil {
		if err := r.ctx.Err(); err != nil {
			r.err = err
			return false
		}

		if r.reader == nil {
			if r.next >= len(r.splits) {
				return false
			}
			pr, err := connector.NewPageReader(r.cat.svc, r.splits[r.next], r.columns, r.constraint, r.cat.cfg)
			if err != nil {
				r.err = err
				return false
			}
			r.next++
			r.reader = pr
		}

		page, err := r.reader.FetchNext(r.ctx)
		if err != nil {
			r.err = err
			return false
		}
		if r.reader.IsFinished() {
			r.cat.logger.DebugContext(r.ctx, "Split drained",
				"table", r.splits[r.next-1].Table.String(),
				"rows", r.reader.CompletedPositions(),
				"bytes", r.reader.CompletedBytes(),
				"read_time", r.reader.ReadTime(),
			)
			r.reader = nil
		}
		if page == nil {
			continue
		}

		rec, err := catalog.WidenRecord(r.cat.cfg.Allocator, r.schema, page.Record)
		page.Release()
		if err != nil {
			r.err = err
			return false
		}
		r.current = rec
		return true
	}
	return false
}
