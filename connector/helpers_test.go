package connector

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hugr-lab/airport-openapi/internal/fakeapi"
	"github.com/hugr-lab/airport-openapi/remote"
	"github.com/hugr-lab/airport-openapi/wire"
)

func strptr(s string) *string { return &s }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, api *fakeapi.API) *remote.Client {
	t.Helper()
	srv := api.Serve(t)
	c, err := remote.New(remote.Config{BaseURL: srv.URL, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("remote.New failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func usersTable() *fakeapi.Table {
	return &fakeapi.Table{
		Schema: "s1",
		Name:   "users",
		Columns: []wire.ColumnMetadata{
			{Name: "id", Type: "varchar"},
			{Name: "name", Type: "VARCHAR(64)", Comment: strptr("display name")},
		},
		Rows: [][]*string{
			{strptr("1"), strptr("alice")},
			{strptr("2"), nil},
			{strptr("3"), strptr("carol")},
			{strptr("4"), strptr("dave")},
			{strptr("5"), strptr("")},
		},
		Splits: []string{"a", "b"},
	}
}

func varcharColumn(table QualifiedTableName, name string) ColumnHandle {
	sig, _ := ParseTypeSignature("varchar")
	return ColumnHandle{Table: table, Column: ColumnDescriptor{Name: name, Type: sig}}
}

func typedColumn(table QualifiedTableName, name, typ string) ColumnHandle {
	sig, _ := ParseTypeSignature(typ)
	return ColumnHandle{Table: table, Column: ColumnDescriptor{Name: name, Type: sig}}
}
