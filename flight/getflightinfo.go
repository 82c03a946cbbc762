package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-openapi/catalog"
)

// GetFlightInfo returns the schema of a table and one endpoint per
// partition, without projection or filter.
//
// The descriptor.Path should contain [schema_name, table_name].
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)

	if desc.GetType() != flight.DescriptorPATH {
		return nil, status.Error(codes.InvalidArgument, "descriptor must be PATH type")
	}
	path := desc.GetPath()
	if len(path) != 2 {
		return nil, status.Error(codes.InvalidArgument, "path must contain exactly 2 elements: [schema_name, table_name]")
	}

	table, err := s.lookupTable(ctx, path[0], path[1])
	if err != nil {
		return nil, err
	}
	arrowSchema := table.ArrowSchema()
	if arrowSchema == nil {
		return nil, status.Errorf(codes.Internal, "table %s.%s has nil Arrow schema", path[0], path[1])
	}

	parts, err := s.partitions(ctx, table, &catalog.PartitionRequest{})
	if err != nil {
		return nil, err
	}
	endpoints, err := s.endpoints(path[0], path[1], parts, nil, nil)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}

	s.logger.DebugContext(ctx, "GetFlightInfo",
		"schema", path[0],
		"table", path[1],
		"endpoints", len(endpoints),
	)

	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(arrowSchema, s.allocator),
		FlightDescriptor: desc,
		Endpoint:         endpoints,
		TotalRecords:     -1,
		TotalBytes:       -1,
	}, nil
}

// GetSchema returns the Arrow schema of the table named by desc.
func (s *Server) GetSchema(ctx context.Context, desc *flight.FlightDescriptor) (*flight.SchemaResult, error) {
	path := desc.GetPath()
	if desc.GetType() != flight.DescriptorPATH || len(path) != 2 {
		return nil, status.Error(codes.InvalidArgument, "descriptor must be PATH type with 2 elements [schema, table]")
	}
	table, err := s.lookupTable(EnrichContextMetadata(ctx), path[0], path[1])
	if err != nil {
		return nil, err
	}
	return &flight.SchemaResult{Schema: flight.SerializeSchema(table.ArrowSchema(), s.allocator)}, nil
}
