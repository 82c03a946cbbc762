// Package wire defines the JSON shapes exchanged with the remote REST
// service and the codec for its columnar block encoding.
//
// A varchar block is three parallel pieces: per-row null flags, per-row byte
// lengths, and the base64 encoding of every non-null value concatenated in row
// order. The same shape carries page columns in responses and constraint
// values in requests.
package wire

// SchemaTable identifies a remote table.
type SchemaTable struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// ColumnMetadata describes one column of a remote table.
type ColumnMetadata struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Comment *string `json:"comment,omitempty"`
}

// TableMetadata is the describe-table response.
type TableMetadata struct {
	SchemaTableName SchemaTable      `json:"schemaTableName"`
	Columns         []ColumnMetadata `json:"columns"`
	Comment         *string          `json:"comment,omitempty"`
}

// SplitsRequest is the list-splits request body.
type SplitsRequest struct {
	MaxSplitCount int `json:"maxSplitCount"`
}

// Splits is the list-splits response.
type Splits struct {
	Splits []string `json:"splits"`
}

// PageRowsRequest is the fetch-page request body.
// NextToken is nil on the first request of a split.
type PageRowsRequest struct {
	DesiredColumns   []string    `json:"desiredColumns"`
	OutputConstraint TupleDomain `json:"outputConstraint"`
	NextToken        *string     `json:"nextToken,omitempty"`
}

// PageResult is the fetch-page response.
// A nil NextToken marks the last page of the split.
type PageResult struct {
	RowCount     *int64  `json:"rowCount"`
	ColumnBlocks []Block `json:"columnBlocks"`
	NextToken    *string `json:"nextToken,omitempty"`
}

// Block is one encoded column. Only the varchar representation exists.
type Block struct {
	VarcharData *VarcharData `json:"varcharData,omitempty"`
}

// VarcharData is the null-bitmap + lengths + bytes encoding.
type VarcharData struct {
	Nulls []bool  `json:"nulls"`
	Sizes []int32 `json:"sizes"`
	Bytes string  `json:"bytes"`
}

// TupleDomain maps column names to the values they may take.
type TupleDomain struct {
	Domains map[string]Domain `json:"domains"`
}

// Domain is the constraint for a single column.
type Domain struct {
	NullAllowed bool     `json:"nullAllowed"`
	ValueSet    ValueSet `json:"valueSet"`
}

// ValueSet holds the allowed non-null values of a domain.
type ValueSet struct {
	Equatable *EquatableValueSet `json:"equatable,omitempty"`
}

// EquatableValueSet lists discrete allowed values, one block per value.
type EquatableValueSet struct {
	Values []Block `json:"values"`
}

// Error is the body the remote service sends with a failed response.
type Error struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
