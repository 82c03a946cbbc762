package restcatalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-openapi/catalog"
	"github.com/hugr-lab/airport-openapi/connector"
	"github.com/hugr-lab/airport-openapi/internal/fakeapi"
	"github.com/hugr-lab/airport-openapi/remote"
	"github.com/hugr-lab/airport-openapi/wire"
)

func strptr(s string) *string { return &s }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func usersTable() *fakeapi.Table {
	return &fakeapi.Table{
		Schema:  "s1",
		Name:    "users",
		Comment: strptr("people"),
		Columns: []wire.ColumnMetadata{
			{Name: "id", Type: "varchar"},
			{Name: "name", Type: "varchar"},
		},
		Rows: [][]*string{
			{strptr("1"), strptr("alice")},
			{strptr("2"), nil},
			{strptr("3"), strptr("carol")},
			{strptr("4"), strptr("dave")},
			{strptr("5"), strptr("erin")},
		},
		Splits: []string{"a", "b"},
	}
}

func newCatalog(t *testing.T, api *fakeapi.API, mem memory.Allocator) *Catalog {
	t.Helper()
	srv := api.Serve(t)
	client, err := remote.New(remote.Config{BaseURL: srv.URL, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("remote.New failed: %v", err)
	}
	t.Cleanup(client.Close)

	cat, err := New(client, connector.Config{Logger: quietLogger(), Allocator: mem})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(cat.Close)
	return cat
}

func usersTableOf(t *testing.T, cat *Catalog) catalog.PartitionedTable {
	t.Helper()
	ctx := context.Background()
	s, err := cat.Schema(ctx, "s1")
	if err != nil || s == nil {
		t.Fatalf("Schema(s1) = %v, %v", s, err)
	}
	tbl, err := s.Table(ctx, "users")
	if err != nil || tbl == nil {
		t.Fatalf("Table(users) = %v, %v", tbl, err)
	}
	pt, ok := tbl.(catalog.PartitionedTable)
	if !ok {
		t.Fatalf("table %T is not partitioned", tbl)
	}
	return pt
}

// drain reads every batch and returns id -> name (nil for null names).
func drain(t *testing.T, r array.RecordReader) map[string]*string {
	t.Helper()
	out := map[string]*string{}
	for r.Next() {
		rec := r.RecordBatch()
		ids := rec.Column(0).(*array.String)
		names := rec.Column(1).(*array.String)
		for i := 0; i < int(rec.NumRows()); i++ {
			var name *string
			if names.IsValid(i) {
				name = strptr(names.Value(i))
			}
			id := "<null>"
			if ids.IsValid(i) {
				id = ids.Value(i)
			}
			out[id] = name
		}
	}
	if err := r.Err(); err != nil {
		t.Fatalf("reader error: %v", err)
	}
	return out
}

func TestSchemas(t *testing.T) {
	api := fakeapi.New()
	api.AddTable(usersTable())
	api.AddSchema("s2")
	cat := newCatalog(t, api, nil)
	ctx := context.Background()

	schemas, err := cat.Schemas(ctx)
	if err != nil {
		t.Fatalf("Schemas failed: %v", err)
	}
	if len(schemas) != 2 || schemas[0].Name() != "s1" || schemas[1].Name() != "s2" {
		t.Errorf("unexpected schemas %v", schemas)
	}

	missing, err := cat.Schema(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Schema(nope) = %v, %v", missing, err)
	}
}

func TestTables(t *testing.T) {
	api := fakeapi.New()
	api.AddTable(usersTable())
	cat := newCatalog(t, api, nil)
	ctx := context.Background()

	s, err := cat.Schema(ctx, "s1")
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	tables, err := s.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	tbl := tables[0]
	if tbl.Name() != "users" || tbl.Comment() != "people" {
		t.Errorf("unexpected table %s (%q)", tbl.Name(), tbl.Comment())
	}
	if tbl.ArrowSchema().NumFields() != 2 {
		t.Errorf("unexpected schema %s", tbl.ArrowSchema())
	}

	missing, err := s.Table(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Table(nope) = %v, %v", missing, err)
	}
}

func TestPartitions(t *testing.T) {
	api := fakeapi.New()
	api.AddTable(usersTable())
	tbl := usersTableOf(t, newCatalog(t, api, nil))

	parts, err := tbl.Partitions(context.Background(), &catalog.PartitionRequest{})
	if err != nil {
		t.Fatalf("Partitions failed: %v", err)
	}
	if len(parts) != 2 || parts[0].Token != "a" || parts[1].Token != "b" {
		t.Errorf("unexpected partitions %+v", parts)
	}
}

func TestScanAllSplits(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	api := fakeapi.New()
	api.AddTable(usersTable())
	tbl := usersTableOf(t, newCatalog(t, api, mem))

	r, err := tbl.Scan(context.Background(), &catalog.ScanOptions{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	rows := drain(t, r)
	r.Release()

	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) != 5 || ids[0] != "1" || ids[4] != "5" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if rows["2"] != nil {
		t.Errorf("row 2 should have a null name, got %q", *rows["2"])
	}
	if rows["3"] == nil || *rows["3"] != "carol" {
		t.Errorf("row 3 name = %v", rows["3"])
	}
}

func TestScanPartitionProjection(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	api := fakeapi.New()
	api.AddTable(usersTable())
	tbl := usersTableOf(t, newCatalog(t, api, mem))

	r, err := tbl.Scan(context.Background(), &catalog.ScanOptions{
		Columns:   []string{"name"},
		Partition: "b",
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	defer r.Release()

	if !r.Schema().Equal(tbl.ArrowSchema()) {
		t.Fatalf("reader schema %s, want the full table schema", r.Schema())
	}

	var names []string
	nulls := 0
	for r.Next() {
		rec := r.RecordBatch()
		if rec.Column(0).NullN() != int(rec.NumRows()) {
			t.Errorf("unprojected id column should be all null")
		}
		col := rec.Column(1).(*array.String)
		for i := 0; i < col.Len(); i++ {
			if col.IsNull(i) {
				nulls++
				continue
			}
			names = append(names, col.Value(i))
		}
	}
	if err := r.Err(); err != nil {
		t.Fatalf("reader error: %v", err)
	}
	if len(names) != 1 || names[0] != "dave" || nulls != 1 {
		t.Errorf("split b names = %v with %d nulls", names, nulls)
	}
}

func TestScanPushesDownEquality(t *testing.T) {
	api := fakeapi.New()
	api.AddTable(usersTable())
	tbl := usersTableOf(t, newCatalog(t, api, nil))

	filters := []byte(`{"filters":[{"expression_class":"BOUND_COMPARISON","type":"COMPARE_EQUAL","alias":"",` +
		`"left":{"expression_class":"BOUND_COLUMN_REF","type":"BOUND_COLUMN_REF","alias":"",` +
		`"return_type":{"id":"VARCHAR","type_info":null},"binding":{"table_index":0,"column_index":0},"depth":0},` +
		`"right":{"expression_class":"BOUND_CONSTANT","type":"VALUE_CONSTANT","alias":"",` +
		`"value":{"type":{"id":"VARCHAR","type_info":null},"is_null":false,"value":"carol"}}}],` +
		`"column_binding_names_by_index":["name"]}`)

	r, err := tbl.Scan(context.Background(), &catalog.ScanOptions{Filter: filters})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	defer r.Release()

	rows := drain(t, r)
	if len(rows) != 1 || rows["3"] == nil || *rows["3"] != "carol" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestScanUnknownColumn(t *testing.T) {
	api := fakeapi.New()
	api.AddTable(usersTable())
	tbl := usersTableOf(t, newCatalog(t, api, nil))

	if _, err := tbl.Scan(context.Background(), &catalog.ScanOptions{Columns: []string{"nope"}}); err == nil {
		t.Fatal("expected an error for an unknown column")
	}
}

func TestScanRemoteError(t *testing.T) {
	api := fakeapi.New()
	api.AddTable(usersTable())
	api.Fail(http.MethodPost, "/schemas/s1/tables/users/splits/a/rows", fakeapi.Fault{
		Status: http.StatusServiceUnavailable,
		Body:   `{"message":"busy","retryable":true}`,
	})
	tbl := usersTableOf(t, newCatalog(t, api, nil))

	r, err := tbl.Scan(context.Background(), &catalog.ScanOptions{Partition: "a"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	defer r.Release()

	if r.Next() {
		t.Fatal("expected no batches")
	}
	var se *remote.ServiceError
	if !errors.As(r.Err(), &se) || !se.Retryable || se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected retryable ServiceError, got %v", r.Err())
	}
}

func TestScanCancelled(t *testing.T) {
	api := fakeapi.New()
	api.AddTable(usersTable())
	tbl := usersTableOf(t, newCatalog(t, api, nil))

	ctx, cancel := context.WithCancel(context.Background())
	r, err := tbl.Scan(ctx, &catalog.ScanOptions{Partition: "a"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	defer r.Release()
	cancel()

	if r.Next() {
		t.Fatal("expected no batches after cancel")
	}
	if !errors.Is(r.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", r.Err())
	}
}
