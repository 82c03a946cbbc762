package flight

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/hugr-lab/airport-openapi/catalog"
	"github.com/hugr-lab/airport-openapi/internal/msgpack"
	"github.com/hugr-lab/airport-openapi/internal/recovery"
	"github.com/hugr-lab/airport-openapi/internal/serialize"
)

// DoAction serves the Airport actions DuckDB issues while attaching and
// planning scans.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.logger.DebugContext(ctx, "DoAction called",
		append([]any{"type", action.GetType(), "body_size", len(action.GetBody())}, logAttrs(ctx)...)...,
	)

	switch actionType := action.GetType(); actionType {
	// Required Airport actions
	case "list_schemas":
		return s.handleListSchemas(ctx, stream)

	case "endpoints":
		return s.handleEndpoints(ctx, action, stream)

	// Optional Airport actions
	case "list_tables":
		return s.handleListTables(ctx, action, stream)

	case "create_transaction":
		return s.handleCreateTransaction(ctx, stream)

	default:
		return status.Errorf(codes.Unimplemented, "unknown action type: %s", actionType)
	}
}

// ListActions advertises the supported actions.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	actions := []*flight.ActionType{
		{Type: "list_schemas", Description: "Serialized catalog of schemas and tables"},
		{Type: "endpoints", Description: "One endpoint per partition of a table scan"},
		{Type: "list_tables", Description: "Table names of one or all schemas"},
		{Type: "create_transaction", Description: "Always returns a nil identifier"},
	}
	for _, a := range actions {
		if err := stream.Send(a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) sendBody(stream flight.FlightService_DoActionServer, body []byte) error {
	if err := stream.Send(&flight.Result{Body: body}); err != nil {
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}
	return nil
}

// handleListSchemas returns the compressed catalog root.
// https://airport.query.farm/server_action_list_schemas.html
func (s *Server) handleListSchemas(ctx context.Context, stream flight.FlightService_DoActionServer) error {
	schemas, err := recovery.RecoverToValue(s.logger, "Schemas", func() ([]catalog.Schema, error) {
		return s.catalog.Schemas(ctx)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get schemas", "error", err)
		return toStatus(err, "failed to get schemas")
	}

	entries := make([]serialize.SchemaEntry, 0, len(schemas))
	for _, schema := range schemas {
		contents, err := s.schemaContents(ctx, schema)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to serialize schema contents",
				"schema", schema.Name(),
				"error", err,
			)
			return toStatus(err, "failed to serialize schema contents")
		}
		entries = append(entries, serialize.SchemaEntry{
			Name:        schema.Name(),
			Description: schema.Comment(),
			Contents:    contents,
		})
	}

	body, err := serialize.CatalogRoot(entries)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	if err := s.sendBody(stream, body); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Catalog served",
		"schema_count", len(schemas),
		"response_bytes", len(body),
	)
	return nil
}

// schemaContents serializes one FlightInfo per table of schema: a msgpack
// array of protobuf FlightInfo, compressed and wrapped.
func (s *Server) schemaContents(ctx context.Context, schema catalog.Schema) (serialize.Contents, error) {
	tables, err := recovery.RecoverToValue(s.logger, "Tables", func() ([]catalog.Table, error) {
		return schema.Tables(ctx)
	})
	if err != nil {
		return serialize.Contents{}, err
	}

	infos := make([][]byte, 0, len(tables))
	for _, table := range tables {
		arrowSchema := table.ArrowSchema()
		if arrowSchema == nil {
			continue
		}

		appMetadata, err := msgpack.Encode(map[string]interface{}{
			"type":         "table",
			"schema":       schema.Name(),
			"catalog":      "",
			"name":         table.Name(),
			"comment":      table.Comment(),
			"input_schema": nil,
			"action_name":  nil,
			"description":  nil,
			"extra_data":   nil,
		})
		if err != nil {
			return serialize.Contents{}, fmt.Errorf("failed to encode app metadata: %w", err)
		}

		ticket, err := EncodeTicket(schema.Name(), table.Name())
		if err != nil {
			return serialize.Contents{}, err
		}

		info, err := proto.Marshal(&flight.FlightInfo{
			Schema: flight.SerializeSchema(arrowSchema, s.allocator),
			FlightDescriptor: &flight.FlightDescriptor{
				Type: flight.DescriptorPATH,
				Path: []string{schema.Name(), table.Name()},
			},
			Endpoint:     []*flight.FlightEndpoint{{Ticket: &flight.Ticket{Ticket: ticket}}},
			TotalRecords: -1,
			TotalBytes:   -1,
			AppMetadata:  appMetadata,
		})
		if err != nil {
			return serialize.Contents{}, fmt.Errorf("failed to marshal FlightInfo: %w", err)
		}
		infos = append(infos, info)
	}

	uncompressed, err := msgpack.Encode(infos)
	if err != nil {
		return serialize.Contents{}, err
	}
	serialized, err := serialize.WrapCompressed(uncompressed)
	if err != nil {
		return serialize.Contents{}, err
	}

	s.logger.DebugContext(ctx, "Generated schema contents",
		"schema", schema.Name(),
		"tables", len(infos),
		"serialized_bytes", len(serialized),
	)
	return serialize.InlineContents(serialized), nil
}

// endpointsRequest mirrors Airport's get-flight-endpoints request.
type endpointsRequest struct {
	Descriptor string `msgpack:"descriptor"`
	Parameters struct {
		JSONFilters              string   `msgpack:"json_filters"`
		ColumnIDs                []uint64 `msgpack:"column_ids"`
		TableFunctionParameters  string   `msgpack:"table_function_parameters"`
		TableFunctionInputSchema string   `msgpack:"table_function_input_schema"`
		AtUnit                   string   `msgpack:"at_unit"`
		AtValue                  string   `msgpack:"at_value"`
	} `msgpack:"parameters"`
}

// handleEndpoints plans a scan: one endpoint per partition, each ticket
// carrying the projection and the filter JSON.
func (s *Server) handleEndpoints(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	var request endpointsRequest
	if err := msgpack.Decode(action.GetBody(), &request); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	desc := &flight.FlightDescriptor{}
	if err := proto.Unmarshal([]byte(request.Descriptor), desc); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid descriptor: %v", err)
	}
	if desc.GetType() != flight.DescriptorPATH || len(desc.GetPath()) != 2 {
		return status.Errorf(codes.InvalidArgument, "descriptor must be PATH type with 2 elements [schema, table]")
	}
	if request.Parameters.AtUnit != "" || request.Parameters.TableFunctionParameters != "" {
		return status.Errorf(codes.Unimplemented, "time travel and table functions are not supported")
	}

	var filter []byte
	if request.Parameters.JSONFilters != "" {
		filter = []byte(request.Parameters.JSONFilters)
		if !json.Valid(filter) {
			return status.Errorf(codes.InvalidArgument, "json_filters is not valid JSON")
		}
	}

	schemaName, tableName := desc.GetPath()[0], desc.GetPath()[1]
	table, err := s.lookupTable(ctx, schemaName, tableName)
	if err != nil {
		return err
	}
	columns := columnNames(table.ArrowSchema(), request.Parameters.ColumnIDs)

	parts, err := s.partitions(ctx, table, &catalog.PartitionRequest{Columns: columns, Filter: filter})
	if err != nil {
		return err
	}
	endpoints, err := s.endpoints(schemaName, tableName, parts, columns, filter)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}

	serialized := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		b, err := proto.Marshal(e)
		if err != nil {
			return status.Errorf(codes.Internal, "failed to marshal endpoint: %v", err)
		}
		serialized = append(serialized, string(b))
	}

	body, err := msgpack.Encode(serialized)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	if err := s.sendBody(stream, body); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Endpoints planned",
		append([]any{
			"schema", schemaName,
			"table", tableName,
			"endpoint_count", len(endpoints),
			"columns", len(columns),
			"has_filters", filter != nil,
		}, logAttrs(ctx)...)...,
	)
	return nil
}

// handleListTables returns the table names of one schema, or of every
// schema when none is given.
func (s *Server) handleListTables(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	var params struct {
		SchemaName string `msgpack:"schema_name"`
	}
	if len(action.GetBody()) > 0 {
		if err := msgpack.Decode(action.GetBody(), &params); err != nil {
			return status.Errorf(codes.InvalidArgument, "invalid parameters: %v", err)
		}
	}

	var response map[string]interface{}
	if params.SchemaName == "" {
		schemas, err := recovery.RecoverToValue(s.logger, "Schemas", func() ([]catalog.Schema, error) {
			return s.catalog.Schemas(ctx)
		})
		if err != nil {
			return toStatus(err, "failed to get schemas")
		}
		all := make(map[string][]string, len(schemas))
		for _, schema := range schemas {
			names, err := s.tableNames(ctx, schema)
			if err != nil {
				return toStatus(err, "failed to get tables")
			}
			all[schema.Name()] = names
		}
		response = map[string]interface{}{"tables": all}
	} else {
		schema, err := recovery.RecoverToValue(s.logger, "Schema", func() (catalog.Schema, error) {
			return s.catalog.Schema(ctx, params.SchemaName)
		})
		if err != nil {
			return toStatus(err, "failed to get schema")
		}
		if schema == nil {
			return status.Errorf(codes.NotFound, "schema not found: %s", params.SchemaName)
		}
		names, err := s.tableNames(ctx, schema)
		if err != nil {
			return toStatus(err, "failed to get tables")
		}
		response = map[string]interface{}{
			"schema": params.SchemaName,
			"tables": names,
		}
	}

	body, err := msgpack.Encode(response)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s.sendBody(stream, body)
}

func (s *Server) tableNames(ctx context.Context, schema catalog.Schema) ([]string, error) {
	tables, err := recovery.RecoverToValue(s.logger, "Tables", func() ([]catalog.Table, error) {
		return schema.Tables(ctx)
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name())
	}
	return names, nil
}

// handleCreateTransaction answers with a nil identifier; scans are read-only.
func (s *Server) handleCreateTransaction(ctx context.Context, stream flight.FlightService_DoActionServer) error {
	// The identifier key must be present, with a nil value.
	body, err := msgpack.Encode(map[string]interface{}{
		"identifier": nil,
	})
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s.sendBody(stream, body)
}
