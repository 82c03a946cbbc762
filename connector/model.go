// Package connector turns a remote REST catalog into scannable tables.
//
// Metadata resolves table descriptions through a refreshing cache,
// SplitSource partitions a scan, and PageReader streams the rows of one
// split as Arrow records. EncodePredicate converts column constraints to the
// wire tuple domain sent with every page request.
package connector

import (
	"context"
	"net/url"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/airport-openapi/remote"
	"github.com/hugr-lab/airport-openapi/wire"
)

// Service is the subset of the remote client the connector needs.
// *remote.Client implements it.
type Service interface {
	BaseURL() *url.URL
	ListSchemas(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, schema *string) ([]wire.SchemaTable, error)
	DescribeTable(ctx context.Context, table wire.SchemaTable) (*wire.TableMetadata, error)
	ListSplits(ctx context.Context, table wire.SchemaTable, maxSplitCount int) ([]string, error)
	FetchPage(ctx context.Context, req remote.PageRequest) (*wire.PageResult, error)
}

var _ Service = (*remote.Client)(nil)

// QualifiedTableName is a case-sensitive (schema, table) pair.
type QualifiedTableName struct {
	Schema string
	Table  string
}

func (n QualifiedTableName) String() string {
	return n.Schema + "." + n.Table
}

func (n QualifiedTableName) wire() wire.SchemaTable {
	return wire.SchemaTable{Schema: n.Schema, Table: n.Table}
}

func (n QualifiedTableName) key() string {
	return n.Schema + "\x00" + n.Table
}

func nameOf(st wire.SchemaTable) QualifiedTableName {
	return QualifiedTableName{Schema: st.Schema, Table: st.Table}
}

// ColumnDescriptor is one column of a described table.
type ColumnDescriptor struct {
	Name    string
	Type    TypeSignature
	Comment string
}

// TableDescription is an immutable decoded describe response.
type TableDescription struct {
	Name    QualifiedTableName
	Columns []ColumnDescriptor
	Comment string

	schema *arrow.Schema
}

// ArrowSchema returns the table's columns as an Arrow schema. Every field is
// nullable.
func (t *TableDescription) ArrowSchema() *arrow.Schema {
	return t.schema
}

// Column looks up a column by name.
func (t *TableDescription) Column(name string) (ColumnDescriptor, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// Handle is a reference the host engine hands back to the connector.
// The only implementations are TableHandle and ColumnHandle.
type Handle interface {
	handle()
}

// TableHandle refers to a described table.
type TableHandle struct {
	Table QualifiedTableName
}

// ColumnHandle refers to one column of a table. It is comparable and used
// as a map key for constraints.
type ColumnHandle struct {
	Table  QualifiedTableName
	Column ColumnDescriptor
}

func (TableHandle) handle()  {}
func (ColumnHandle) handle() {}

// Name returns the column name.
func (h ColumnHandle) Name() string {
	return h.Column.Name
}
