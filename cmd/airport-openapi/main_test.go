package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/viper"

	"github.com/hugr-lab/airport-openapi/connector"
	"github.com/hugr-lab/airport-openapi/remote"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Set("base_url", "http://api.local")
	t.Cleanup(func() { viper.Set("base_url", "") })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Remote.BaseURL != "http://api.local" {
		t.Errorf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Server.Listen != ":50051" {
		t.Errorf("Listen = %q", cfg.Server.Listen)
	}
	if cfg.Server.MaxMessageSize != 16<<20 {
		t.Errorf("MaxMessageSize = %d", cfg.Server.MaxMessageSize)
	}
	if cfg.Remote.ReadTimeout != remote.DefaultTimeout {
		t.Errorf("ReadTimeout = %s", cfg.Remote.ReadTimeout)
	}
	if cfg.Tracing.Exporter != "none" {
		t.Errorf("Exporter = %q", cfg.Tracing.Exporter)
	}
}

func TestLoadConfigRequiresBaseURL(t *testing.T) {
	viper.Set("base_url", "")

	_, err := loadConfig()
	if !errors.Is(err, remote.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestMaskedConfig(t *testing.T) {
	var cfg Config
	cfg.Remote.Auth.BearerToken = "secret"
	cfg.Server.FlightToken = "flight"

	m := cfg.masked()
	if m.Remote.Auth.BearerToken != "****" || m.Server.FlightToken != "****" {
		t.Errorf("secrets not masked: %+v %+v", m.Remote.Auth, m.Server)
	}
	if cfg.Remote.Auth.BearerToken != "secret" {
		t.Error("masked modified the original")
	}
}

func TestParseConditions(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []condition
		wantErr bool
	}{
		{name: "empty"},
		{name: "simple", in: []string{"status=open"}, want: []condition{{"status", "open"}}},
		{name: "value with equals", in: []string{"q=a=b"}, want: []condition{{"q", "a=b"}}},
		{name: "empty value", in: []string{"q="}, want: []condition{{"q", ""}}},
		{name: "no equals", in: []string{"status"}, wantErr: true},
		{name: "no column", in: []string{"=x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseConditions(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("condition %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWriteRows(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "status", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).AppendValues([]string{"o1", "o2", "o3"}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"open", "shipped", ""}, []bool{true, true, false})
	rec := b.NewRecordBatch()
	defer rec.Release()

	page := &connector.Page{RowCount: rec.NumRows(), Record: rec}
	index := map[string]int{"id": 0, "status": 1}

	tests := []struct {
		name       string
		printed    []string
		conditions []condition
		max        int
		want       []string
	}{
		{name: "all", printed: []string{"id", "status"}, want: []string{
			`{"id":"o1","status":"open"}`,
			`{"id":"o2","status":"shipped"}`,
			`{"id":"o3","status":null}`,
		}},
		{name: "filtered", printed: []string{"id"}, conditions: []condition{{"status", "shipped"}}, want: []string{
			`{"id":"o2"}`,
		}},
		{name: "null never matches", printed: []string{"id"}, conditions: []condition{{"status", ""}}},
		{name: "limit", printed: []string{"id"}, max: 2, want: []string{`{"id":"o1"}`, `{"id":"o2"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := writeRows(json.NewEncoder(&buf), page, tt.printed, index, tt.conditions, tt.max)
			if err != nil {
				t.Fatalf("writeRows failed: %v", err)
			}
			got := strings.Fields(buf.String())
			if n != len(tt.want) || len(got) != len(tt.want) {
				t.Fatalf("wrote %d rows %v, want %v", n, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
