package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Table represents a queryable table with a fixed schema.
// Implementations MUST be goroutine-safe.
type Table interface {
	// Name returns the table name. MUST return non-empty string.
	Name() string

	// Comment returns optional table documentation.
	Comment() string

	// ArrowSchema returns the full logical schema of the table.
	ArrowSchema() *arrow.Schema

	// Scan returns a RecordReader over the rows selected by opts.
	// The reader schema MUST equal ArrowSchema(); columns outside
	// opts.Columns may be all null.
	// Caller MUST call reader.Release() to free memory.
	Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
}

// PartitionedTable is a Table whose scans split into independently
// readable partitions. Each partition becomes one Flight endpoint, so
// DuckDB can read them in parallel.
type PartitionedTable interface {
	Table

	// Partitions lists the partitions a scan with the given request reads.
	// An empty result means the table has no rows to read.
	Partitions(ctx context.Context, req *PartitionRequest) ([]Partition, error)
}
