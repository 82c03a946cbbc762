package flight

import (
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-openapi/internal/recovery"
	"github.com/hugr-lab/airport-openapi/metrics"
)

// DoGet streams the record batches of one ticket's partition.
//
// The handler:
//  1. Decodes the ticket (schema, table, partition, columns, filter)
//  2. Looks up the table in the catalog
//  3. Scans the partition with the ticket's projection and filter
//  4. Streams batches in the table's full schema; DuckDB projects client-side
//
// Cancelling the stream cancels the remote requests of the scan.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	td, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}

	table, err := s.lookupTable(ctx, td.Schema, td.Table)
	if err != nil {
		return err
	}
	fullSchema := table.ArrowSchema()
	if fullSchema == nil {
		return status.Errorf(codes.Internal, "table %s.%s has nil Arrow schema", td.Schema, td.Table)
	}

	reader, err := recovery.RecoverToValue(s.logger, "Scan", func() (array.RecordReader, error) {
		return table.Scan(ctx, td.ToScanOptions())
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Table scan failed",
			"schema", td.Schema,
			"table", td.Table,
			"partition", td.Partition,
			"error", err,
		)
		return toStatus(err, "table scan failed")
	}
	defer reader.Release()

	if !fullSchema.Equal(reader.Schema()) {
		return status.Errorf(codes.Internal,
			"schema mismatch: table has %d fields, reader has %d fields",
			fullSchema.NumFields(), reader.Schema().NumFields())
	}

	metrics.FlightStreamsActive.Inc()
	defer metrics.FlightStreamsActive.Dec()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(fullSchema), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	batches, rows := 0, int64(0)
	next := func() (bool, error) {
		return recovery.RecoverToValue(s.logger, "Next", func() (bool, error) {
			return reader.Next(), nil
		})
	}
	for {
		ok, err := next()
		if err != nil {
			return toStatus(err, "scan failed")
		}
		if !ok {
			break
		}

		record := reader.RecordBatch()
		if err := writer.Write(record); err != nil {
			s.logger.ErrorContext(ctx, "Failed to write record batch",
				"schema", td.Schema,
				"table", td.Table,
				"batch", batches,
				"error", err,
			)
			return status.Errorf(codes.Internal, "failed to write batch %d: %v", batches, err)
		}
		batches++
		rows += record.NumRows()
	}

	if err := reader.Err(); err != nil {
		s.logger.ErrorContext(ctx, "Scan failed during streaming",
			"schema", td.Schema,
			"table", td.Table,
			"partition", td.Partition,
			"batches_sent", batches,
			"error", err,
		)
		return toStatus(err, "scan failed")
	}

	s.logger.DebugContext(ctx, "DoGet completed",
		append([]any{
			"schema", td.Schema,
			"table", td.Table,
			"partition", td.Partition,
			"batches_sent", batches,
			"total_rows", rows,
		}, logAttrs(ctx)...)...,
	)
	return nil
}
