package connector

import (
	"context"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-openapi/metrics"
	"github.com/hugr-lab/airport-openapi/remote"
	"github.com/hugr-lab/airport-openapi/wire"
)

// ReaderState is the lifecycle state of a PageReader.
type ReaderState int

const (
	// Active readers have more pages to fetch.
	Active ReaderState = iota
	// Exhausted readers have returned the last page of their split.
	Exhausted
)

func (s ReaderState) String() string {
	if s == Exhausted {
		return "exhausted"
	}
	return "active"
}

// Page is one decoded fetch-page response. It is owned by the caller, who
// must call Release.
type Page struct {
	// RowCount is the number of rows, also for count-only pages whose
	// record has no columns.
	RowCount int64
	Record   arrow.RecordBatch
	// NextToken is the continuation token that came with the page; nil on
	// the last page of the split.
	NextToken *string
}

// Release frees the page's Arrow memory.
func (p *Page) Release() {
	if p != nil && p.Record != nil {
		p.Record.Release()
		p.Record = nil
	}
}

// PageReader streams the pages of one split. It is not safe for concurrent
// use.
type PageReader struct {
	svc        Service
	split      Split
	columns    []ColumnHandle
	names      []string
	constraint wire.TupleDomain
	schema     *arrow.Schema
	mem        memory.Allocator
	logger     *slog.Logger

	state     ReaderState
	firstCall bool
	token     *string

	completedBytes     int64
	completedPositions int64
	readTime           time.Duration
}

// NewPageReader creates a reader for split returning the given columns, in
// order. The constraint is sent unchanged with every request.
func NewPageReader(svc Service, split Split, columns []ColumnHandle, constraint wire.TupleDomain, cfg Config) (*PageReader, error) {
	cfg = cfg.WithDefaults()

	names := make([]string, len(columns))
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		dt, err := c.Column.Type.ArrowType()
		if err != nil {
			return nil, remote.InvalidResponse("column %q: %w", c.Name(), err)
		}
		names[i] = c.Name()
		fields[i] = arrow.Field{Name: c.Name(), Type: dt, Nullable: true}
	}

	return &PageReader{
		svc:        svc,
		split:      split,
		columns:    columns,
		names:      names,
		constraint: constraint,
		schema:     arrow.NewSchema(fields, nil),
		mem:        cfg.Allocator,
		logger: cfg.Logger.With(
			"component", "page_reader",
			"table", split.Table.String(),
			"split", split.Token,
		),
		firstCall: true,
	}, nil
}

// Schema is the schema of every non-count-only page.
func (r *PageReader) Schema() *arrow.Schema {
	return r.schema
}

// State returns the reader's lifecycle state.
func (r *PageReader) State() ReaderState {
	return r.state
}

// IsFinished reports whether the last page has been returned.
func (r *PageReader) IsFinished() bool {
	return !r.firstCall && r.token == nil
}

// CompletedBytes is the total Arrow buffer size of returned pages.
func (r *PageReader) CompletedBytes() int64 {
	return r.completedBytes
}

// CompletedPositions is the total row count of returned pages.
func (r *PageReader) CompletedPositions() int64 {
	return r.completedPositions
}

// ReadTime is the wall time spent in successful remote calls.
func (r *PageReader) ReadTime() time.Duration {
	return r.readTime
}

// FetchNext fetches and decodes the next page. A nil page with a nil error
// means the response carried no rows; check IsFinished to tell whether more
// pages follow. On error the reader is unchanged and the call may be retried.
func (r *PageReader) FetchNext(ctx context.Context) (*Page, error) {
	if r.state == Exhausted {
		return nil, ErrReaderExhausted
	}

	start := time.Now()
	res, err := r.svc.FetchPage(ctx, remote.PageRequest{
		Table:      r.split.Table.wire(),
		Split:      r.split.Token,
		Columns:    r.names,
		Constraint: r.constraint,
		NextToken:  r.token,
	})
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	next := res.NextToken
	if next != nil && *next == "" {
		next = nil
	}

	page, err := r.decode(res)
	if err != nil {
		return nil, err
	}
	if page != nil {
		page.NextToken = next
	}

	r.firstCall = false
	r.token = next
	r.readTime += elapsed
	if next == nil {
		r.state = Exhausted
	}

	if page != nil {
		size := recordSize(page.Record)
		r.completedBytes += size
		r.completedPositions += page.RowCount
		metrics.PagesFetched.Inc()
		metrics.RowsFetched.Add(float64(page.RowCount))
		metrics.BytesFetched.Add(float64(size))
	}

	r.logger.DebugContext(ctx, "Fetched page",
		"rows", pageRows(page),
		"has_next", next != nil,
		"duration", elapsed,
	)
	return page, nil
}

func (r *PageReader) decode(res *wire.PageResult) (*Page, error) {
	if res.RowCount == nil || *res.RowCount == 0 {
		return nil, nil
	}
	rows := *res.RowCount
	if rows < 0 {
		return nil, remote.InvalidResponse("negative row count %d", rows)
	}
	if len(res.ColumnBlocks) != len(r.columns) {
		return nil, remote.InvalidResponse("requested %d columns, response has %d",
			len(r.columns), len(res.ColumnBlocks))
	}

	if len(r.columns) == 0 {
		rec := array.NewRecordBatch(arrow.NewSchema(nil, nil), nil, rows)
		return &Page{RowCount: rows, Record: rec}, nil
	}

	cols := make([]arrow.Array, 0, len(r.columns))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for i, block := range res.ColumnBlocks {
		col := r.columns[i]
		if !col.Column.Type.IsVarchar() {
			return nil, remote.NotImplemented("unsupported column type %s for column %q", col.Column.Type, col.Name())
		}
		arr, err := wire.DecodeVarchar(r.mem, block.VarcharData)
		if err != nil {
			return nil, remote.InvalidResponse("column %q: %w", col.Name(), err)
		}
		cols = append(cols, arr)
		if int64(arr.Len()) != rows {
			return nil, remote.InvalidResponse("column %q has %d rows, page has %d", col.Name(), arr.Len(), rows)
		}
	}

	return &Page{RowCount: rows, Record: array.NewRecordBatch(r.schema, cols, rows)}, nil
}

func recordSize(rec arrow.RecordBatch) int64 {
	var n int64
	for _, col := range rec.Columns() {
		n += dataSize(col.Data())
	}
	return n
}

func dataSize(d arrow.ArrayData) int64 {
	var n int64
	for _, buf := range d.Buffers() {
		if buf != nil {
			n += int64(buf.Len())
		}
	}
	for _, child := range d.Children() {
		n += dataSize(child)
	}
	return n
}

func pageRows(p *Page) int64 {
	if p == nil {
		return 0
	}
	return p.RowCount
}
