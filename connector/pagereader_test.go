package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-openapi/internal/fakeapi"
	"github.com/hugr-lab/airport-openapi/remote"
	"github.com/hugr-lab/airport-openapi/wire"
)

func int64ptr(n int64) *int64 { return &n }

func newReader(t *testing.T, api *fakeapi.API, mem memory.Allocator, split string, columns []ColumnHandle, constraint wire.TupleDomain) *PageReader {
	t.Helper()
	svc := newService(t, api)
	r, err := NewPageReader(svc, Split{Token: split, Table: users, Location: svc.BaseURL()}, columns, constraint,
		Config{Allocator: mem, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewPageReader failed: %v", err)
	}
	return r
}

func stringColumn(t *testing.T, p *Page, col int) []*string {
	t.Helper()
	arr, ok := p.Record.Column(col).(*array.String)
	if !ok {
		t.Fatalf("column %d is %T, want *array.String", col, p.Record.Column(col))
	}
	out := make([]*string, arr.Len())
	for i := range out {
		if !arr.IsNull(i) {
			v := arr.Value(i)
			out[i] = &v
		}
	}
	return out
}

func TestPageReaderTwoPages(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	api := fakeapi.New()
	api.AddTable(usersTable())
	api.ScriptPages("s1", "users", "a", map[string]wire.PageResult{
		"": {
			RowCount:     int64ptr(2),
			ColumnBlocks: []wire.Block{{VarcharData: wire.EncodeVarchar([][]byte{[]byte("alice"), nil})}},
			NextToken:    strptr("abc"),
		},
		"abc": {
			RowCount:     int64ptr(1),
			ColumnBlocks: []wire.Block{{VarcharData: wire.EncodeVarchar([][]byte{[]byte("carol")})}},
		},
	})
	r := newReader(t, api, mem, "a", []ColumnHandle{varcharColumn(users, "name")}, wire.TupleDomain{})
	ctx := context.Background()

	if r.IsFinished() {
		t.Fatal("new reader must not be finished")
	}

	p1, err := r.FetchNext(ctx)
	if err != nil {
		t.Fatalf("first FetchNext failed: %v", err)
	}
	defer p1.Release()
	if p1.RowCount != 2 || p1.NextToken == nil || *p1.NextToken != "abc" {
		t.Fatalf("unexpected first page %+v", p1)
	}
	vals := stringColumn(t, p1, 0)
	if *vals[0] != "alice" || vals[1] != nil {
		t.Errorf("unexpected values %v", vals)
	}
	if r.IsFinished() || r.State() != Active {
		t.Fatal("reader finished after the first page")
	}

	p2, err := r.FetchNext(ctx)
	if err != nil {
		t.Fatalf("second FetchNext failed: %v", err)
	}
	defer p2.Release()
	if p2.RowCount != 1 || p2.NextToken != nil {
		t.Fatalf("unexpected second page %+v", p2)
	}
	if !r.IsFinished() || r.State() != Exhausted {
		t.Fatal("reader should be finished after the second page")
	}

	if _, err := r.FetchNext(ctx); !errors.Is(err, ErrReaderExhausted) {
		t.Errorf("expected ErrReaderExhausted, got %v", err)
	}

	if r.CompletedPositions() != 3 {
		t.Errorf("CompletedPositions = %d, want 3", r.CompletedPositions())
	}
	if r.CompletedBytes() <= 0 {
		t.Errorf("CompletedBytes = %d, want > 0", r.CompletedBytes())
	}
	if r.ReadTime() <= 0 {
		t.Errorf("ReadTime = %s, want > 0", r.ReadTime())
	}

	var req wire.PageRowsRequest
	if err := json.Unmarshal(api.LastBody(http.MethodPost, usersPath+"/splits/a/rows"), &req); err != nil {
		t.Fatalf("bad request body: %v", err)
	}
	if req.NextToken == nil || *req.NextToken != "abc" {
		t.Errorf("second request token = %v, want abc", req.NextToken)
	}
	if len(req.DesiredColumns) != 1 || req.DesiredColumns[0] != "name" {
		t.Errorf("desiredColumns = %v", req.DesiredColumns)
	}
}

func TestPageReaderDrainsTable(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	api := fakeapi.New()
	api.AddTable(usersTable())
	cols := []ColumnHandle{varcharColumn(users, "id"), varcharColumn(users, "name")}
	ctx := context.Background()

	var ids []string
	for _, split := range []string{"a", "b"} {
		r := newReader(t, api, mem, split, cols, wire.TupleDomain{})
		for !r.IsFinished() {
			p, err := r.FetchNext(ctx)
			if err != nil {
				t.Fatalf("FetchNext failed: %v", err)
			}
			if p == nil {
				continue
			}
			if !p.Record.Schema().Equal(r.Schema()) {
				t.Errorf("page schema %s differs from reader schema %s", p.Record.Schema(), r.Schema())
			}
			for _, v := range stringColumn(t, p, 0) {
				ids = append(ids, *v)
			}
			p.Release()
		}
	}
	if len(ids) != 5 {
		t.Errorf("expected 5 rows across splits, got %v", ids)
	}
}

func TestPageReaderSendsConstraint(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	api := fakeapi.New()
	api.AddTable(usersTable())
	name := varcharColumn(users, "name")
	td, _ := EncodePredicate(map[ColumnHandle]Domain{name: SingleValue([]byte("carol"))})
	r := newReader(t, api, mem, "a", []ColumnHandle{varcharColumn(users, "id"), name}, td)

	var rows int64
	for !r.IsFinished() {
		p, err := r.FetchNext(context.Background())
		if err != nil {
			t.Fatalf("FetchNext failed: %v", err)
		}
		if p != nil {
			rows += p.RowCount
			if got := stringColumn(t, p, 1); *got[0] != "carol" {
				t.Errorf("unexpected row %v", got)
			}
			p.Release()
		}
	}
	if rows != 1 {
		t.Errorf("expected 1 filtered row, got %d", rows)
	}
}

func TestPageReaderCountOnlyAndEmpty(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	api := fakeapi.New()
	api.AddTable(usersTable())
	api.ScriptPages("s1", "users", "a", map[string]wire.PageResult{
		"":   {RowCount: int64ptr(5), ColumnBlocks: []wire.Block{}, NextToken: strptr("t1")},
		"t1": {RowCount: int64ptr(0), ColumnBlocks: []wire.Block{}, NextToken: strptr("t2")},
		"t2": {ColumnBlocks: []wire.Block{}},
	})
	r := newReader(t, api, mem, "a", nil, wire.TupleDomain{})
	ctx := context.Background()

	p, err := r.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext failed: %v", err)
	}
	if p == nil || p.RowCount != 5 || p.Record.NumCols() != 0 || p.Record.NumRows() != 5 {
		t.Fatalf("expected a count-only page of 5 rows, got %+v", p)
	}
	p.Release()

	for i := 0; i < 2; i++ {
		p, err := r.FetchNext(ctx)
		if err != nil {
			t.Fatalf("FetchNext failed: %v", err)
		}
		if p != nil {
			t.Fatalf("expected no page for an empty response, got %+v", p)
		}
	}
	if !r.IsFinished() {
		t.Error("reader should be finished")
	}
	if r.CompletedPositions() != 5 {
		t.Errorf("CompletedPositions = %d, want 5", r.CompletedPositions())
	}
}

func TestPageReaderEmptyTokenEndsSplit(t *testing.T) {
	api := fakeapi.New()
	api.AddTable(usersTable())
	api.ScriptPages("s1", "users", "a", map[string]wire.PageResult{
		"": {RowCount: int64ptr(0), ColumnBlocks: []wire.Block{}, NextToken: strptr("")},
	})
	r := newReader(t, api, memory.DefaultAllocator, "a", nil, wire.TupleDomain{})

	if _, err := r.FetchNext(context.Background()); err != nil {
		t.Fatalf("FetchNext failed: %v", err)
	}
	if !r.IsFinished() {
		t.Error("an empty token should end the split")
	}
}

func TestPageReaderProtocolErrors(t *testing.T) {
	name := varcharColumn(users, "name")
	one := wire.Block{VarcharData: wire.EncodeVarchar([][]byte{[]byte("x")})}

	tests := []struct {
		name    string
		columns []ColumnHandle
		page    wire.PageResult
		code    remote.ErrorCode
	}{
		{
			name:    "column count mismatch",
			columns: []ColumnHandle{name},
			page:    wire.PageResult{RowCount: int64ptr(1), ColumnBlocks: []wire.Block{one, one}},
			code:    remote.CodeInvalidResponse,
		},
		{
			name:    "row count mismatch",
			columns: []ColumnHandle{name},
			page:    wire.PageResult{RowCount: int64ptr(2), ColumnBlocks: []wire.Block{one}},
			code:    remote.CodeInvalidResponse,
		},
		{
			name:    "missing varchar data",
			columns: []ColumnHandle{name},
			page:    wire.PageResult{RowCount: int64ptr(1), ColumnBlocks: []wire.Block{{}}},
			code:    remote.CodeInvalidResponse,
		},
		{
			name:    "short payload",
			columns: []ColumnHandle{name},
			page: wire.PageResult{RowCount: int64ptr(1), ColumnBlocks: []wire.Block{{VarcharData: &wire.VarcharData{
				Nulls: []bool{false}, Sizes: []int32{10}, Bytes: "YWJj",
			}}}},
			code: remote.CodeInvalidResponse,
		},
		{
			name:    "non-varchar column",
			columns: []ColumnHandle{typedColumn(users, "age", "bigint")},
			page:    wire.PageResult{RowCount: int64ptr(1), ColumnBlocks: []wire.Block{one}},
			code:    remote.CodeNotImplemented,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)

			api := fakeapi.New()
			api.AddTable(usersTable())
			api.ScriptPages("s1", "users", "a", map[string]wire.PageResult{"": tt.page})
			r := newReader(t, api, mem, "a", tt.columns, wire.TupleDomain{})

			p, err := r.FetchNext(context.Background())
			if p != nil {
				p.Release()
				t.Fatal("expected no page")
			}
			if !remote.HasCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
			if r.IsFinished() || r.CompletedPositions() != 0 {
				t.Error("a failed decode must leave the reader unchanged")
			}
		})
	}
}

func TestPageReaderFailedFetchIsRetryable(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	api := fakeapi.New()
	api.AddTable(usersTable())
	r := newReader(t, api, mem, "a", []ColumnHandle{varcharColumn(users, "id")}, wire.TupleDomain{})
	ctx := context.Background()

	first, err := r.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext failed: %v", err)
	}
	firstRows := first.RowCount
	first.Release()
	bytesBefore := r.CompletedBytes()

	path := usersPath + "/splits/a/rows"
	api.Fail(http.MethodPost, path, fakeapi.Fault{
		Status: http.StatusServiceUnavailable,
		Body:   `{"message":"try later","retryable":true}`,
		Times:  1,
	})
	if _, err := r.FetchNext(ctx); !remote.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if r.CompletedPositions() != firstRows || r.CompletedBytes() != bytesBefore || r.IsFinished() {
		t.Fatal("failed fetch changed reader state")
	}

	second, err := r.FetchNext(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	defer second.Release()

	var req wire.PageRowsRequest
	if err := json.Unmarshal(api.LastBody(http.MethodPost, path), &req); err != nil {
		t.Fatalf("bad request body: %v", err)
	}
	if req.NextToken == nil || *req.NextToken != "2" {
		t.Errorf("retry must resend the same token, sent %v", req.NextToken)
	}
	if got := stringColumn(t, second, 0); *got[0] != "5" {
		t.Errorf("retry returned %v, want the row after the first page", got)
	}
}
