package flight

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-openapi/catalog"
	"github.com/hugr-lab/airport-openapi/internal/recovery"
)

// lookupTable resolves schemaName.tableName. Absent schemas and tables
// become NotFound.
func (s *Server) lookupTable(ctx context.Context, schemaName, tableName string) (catalog.Table, error) {
	schema, err := recovery.RecoverToValue(s.logger, "Schema", func() (catalog.Schema, error) {
		return s.catalog.Schema(ctx, schemaName)
	})
	if err != nil {
		return nil, toStatus(err, "failed to get schema")
	}
	if schema == nil {
		return nil, status.Errorf(codes.NotFound, "schema not found: %s", schemaName)
	}

	table, err := recovery.RecoverToValue(s.logger, "Table", func() (catalog.Table, error) {
		return schema.Table(ctx, tableName)
	})
	if err != nil {
		return nil, toStatus(err, "failed to get table")
	}
	if table == nil {
		return nil, status.Errorf(codes.NotFound, "table not found: %s.%s", schemaName, tableName)
	}
	return table, nil
}

// partitions lists the partitions of table. A table that cannot partition
// is read as one unnamed partition.
func (s *Server) partitions(ctx context.Context, table catalog.Table, req *catalog.PartitionRequest) ([]catalog.Partition, error) {
	pt, ok := table.(catalog.PartitionedTable)
	if !ok {
		return []catalog.Partition{{}}, nil
	}
	parts, err := recovery.RecoverToValue(s.logger, "Partitions", func() ([]catalog.Partition, error) {
		return pt.Partitions(ctx, req)
	})
	if err != nil {
		return nil, toStatus(err, "failed to list partitions")
	}
	return parts, nil
}

// endpoints builds one FlightEndpoint per partition.
func (s *Server) endpoints(schemaName, tableName string, parts []catalog.Partition, columns []string, filter []byte) ([]*flight.FlightEndpoint, error) {
	out := make([]*flight.FlightEndpoint, 0, len(parts))
	for _, p := range parts {
		td := TicketData{
			Schema:    schemaName,
			Table:     tableName,
			Partition: p.Token,
			Columns:   columns,
			Filter:    filter,
		}
		ticket, err := td.Encode()
		if err != nil {
			return nil, fmt.Errorf("partition %q: %w", p.Token, err)
		}

		endpoint := &flight.FlightEndpoint{
			Ticket: &flight.Ticket{Ticket: ticket},
		}
		if s.address != "" {
			endpoint.Location = []*flight.Location{{Uri: "grpc://" + s.address}}
		}
		out = append(out, endpoint)
	}
	return out, nil
}

// columnNames maps DuckDB column ids onto field names. Ids past the last
// field, such as DuckDB's row id, name no table column and are skipped.
func columnNames(schema *arrow.Schema, ids []uint64) []string {
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if id < uint64(schema.NumFields()) {
			names = append(names, schema.Field(int(id)).Name)
		}
	}
	return names
}
