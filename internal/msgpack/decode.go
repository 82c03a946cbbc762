// Package msgpack encodes and decodes the MessagePack bodies of Airport
// actions: list_schemas, endpoints, list_tables and create_transaction
// requests and responses.
package msgpack

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrEmpty is returned by Decode for an empty body. DuckDB always sends a
// body for the actions that take one, so an empty one is a client bug.
var ErrEmpty = errors.New("empty msgpack body")

// Decode unmarshals data into v, which must be a pointer.
//
//	var req endpointsRequest
//	if err := msgpack.Decode(action.GetBody(), &req); err != nil {
//	    return status.Errorf(codes.InvalidArgument, "invalid endpoints request: %v", err)
//	}
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode msgpack: %w", err)
	}
	return nil
}

// Encode marshals v. Struct fields follow their msgpack tags; nil pointers
// and nil interfaces encode as nil, which DuckDB reads as NULL.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode msgpack: %w", err)
	}
	return data, nil
}
