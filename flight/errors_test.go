package flight

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-openapi/connector"
	"github.com/hugr-lab/airport-openapi/remote"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", &remote.ServiceError{StatusCode: 404, Message: "gone"}, codes.NotFound},
		{"table not found", fmt.Errorf("scan: %w", connector.ErrTableNotFound), codes.NotFound},
		{"retryable", &remote.ServiceError{StatusCode: 503, Retryable: true}, codes.Unavailable},
		{"server error", &remote.ServiceError{StatusCode: 500, Message: "boom"}, codes.Internal},
		{"transport", &remote.ServiceError{Message: "dial tcp: refused"}, codes.Internal},
		{"not implemented", remote.NotImplemented("column type %s", "bigint"), codes.Unimplemented},
		{"invalid response", remote.InvalidResponse("negative row count %d", -1), codes.Internal},
		{"cancelled", &remote.ServiceError{Message: "cancelled", Cause: context.Canceled}, codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"other", errors.New("other"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorCode(tt.err); got != tt.want {
				t.Errorf("errorCode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToStatusKeepsStatus(t *testing.T) {
	err := status.Error(codes.NotFound, "schema not found")
	if got := toStatus(err, "lookup"); got != err {
		t.Errorf("toStatus() = %v, want the original status", got)
	}
	if toStatus(nil, "lookup") != nil {
		t.Error("toStatus(nil) should be nil")
	}
}

func TestColumnNames(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "name", Type: arrow.BinaryTypes.String},
	}, nil)

	tests := []struct {
		name string
		ids  []uint64
		want []string
	}{
		{"none", nil, nil},
		{"reordered", []uint64{1, 0}, []string{"name", "id"}},
		{"row id skipped", []uint64{rowIDColumn, 1}, []string{"name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := columnNames(schema, tt.ids)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("columnNames() = %v, want %v", got, tt.want)
			}
		})
	}
}
