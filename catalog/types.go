package catalog

// ScanOptions provides options for table scans.
type ScanOptions struct {
	// Columns to read. If nil/empty, read all columns.
	Columns []string

	// Filter is DuckDB's filter pushdown JSON. Implementations may use it
	// to narrow what they read; DuckDB re-applies it to the result.
	// If nil, no filtering.
	Filter []byte

	// Partition restricts the scan to a single partition token returned by
	// PartitionedTable.Partitions. Empty scans every partition.
	Partition string

	// BatchSize is a hint for RecordReader batch size.
	// Implementations MAY ignore this hint.
	BatchSize int
}

// PartitionRequest carries the scan shape a partition listing is made for.
type PartitionRequest struct {
	Columns []string
	Filter  []byte
}

// Partition is an opaque, independently readable slice of a table.
type Partition struct {
	Token string
}
