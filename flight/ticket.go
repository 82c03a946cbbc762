package flight

import (
	"encoding/json"
	"fmt"

	"github.com/hugr-lab/airport-openapi/catalog"
)

// TicketData represents the decoded content of a Flight ticket.
// A ticket names one table partition plus the projection and filter
// DuckDB sent with the endpoints request.
type TicketData struct {
	// Schema is the schema name (e.g., "main", "staging")
	Schema string `json:"schema"`

	// Table is the table name (e.g., "users", "orders")
	Table string `json:"table"`

	// Partition is the opaque partition token; empty reads the whole table.
	Partition string `json:"partition,omitempty"`

	// Columns to project (optional, nil means all columns)
	Columns []string `json:"columns,omitempty"`

	// Filter is DuckDB's filter pushdown JSON, passed through untouched.
	Filter json.RawMessage `json:"filter,omitempty"`
}

// EncodeTicket creates an opaque ticket for the whole of a table.
func EncodeTicket(schema, table string) ([]byte, error) {
	return (&TicketData{Schema: schema, Table: table}).Encode()
}

// Encode serializes the ticket. The ticket is JSON-encoded for transparency.
func (td *TicketData) Encode() ([]byte, error) {
	if td.Schema == "" {
		return nil, fmt.Errorf("schema name cannot be empty")
	}
	if td.Table == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	if len(td.Filter) > 0 && !json.Valid(td.Filter) {
		return nil, fmt.Errorf("filter is not valid JSON")
	}

	data, err := json.Marshal(td)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses an opaque ticket.
// Returns error if ticket is invalid or cannot be decoded.
func DecodeTicket(ticketBytes []byte) (*TicketData, error) {
	if len(ticketBytes) == 0 {
		return nil, fmt.Errorf("ticket cannot be empty")
	}

	var ticket TicketData
	if err := json.Unmarshal(ticketBytes, &ticket); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}

	if ticket.Schema == "" {
		return nil, fmt.Errorf("decoded ticket has empty schema name")
	}
	if ticket.Table == "" {
		return nil, fmt.Errorf("decoded ticket has empty table name")
	}

	return &ticket, nil
}

// ToScanOptions converts TicketData to catalog.ScanOptions.
func (td *TicketData) ToScanOptions() *catalog.ScanOptions {
	return &catalog.ScanOptions{
		Columns:   td.Columns,
		Filter:    td.Filter,
		Partition: td.Partition,
	}
}
