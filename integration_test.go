package airport_test

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

// openDuckDB opens an in-memory DuckDB with the Airport extension loaded.
// The test is skipped when the extension cannot be installed, e.g. offline.
func openDuckDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Skipf("DuckDB not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("INSTALL airport FROM community"); err != nil {
		t.Skipf("Airport extension not available: %v", err)
	}
	if _, err := db.Exec("LOAD airport"); err != nil {
		t.Skipf("Failed to load Airport extension: %v", err)
	}
	return db
}

// attach attaches the Flight server at address as name.
func attach(t *testing.T, db *sql.DB, name, address string) {
	t.Helper()
	query := fmt.Sprintf("ATTACH '' AS %s (TYPE airport, LOCATION 'grpc://%s')", name, address)
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to attach Flight server: %v", err)
	}
}

func TestDuckDBQuery(t *testing.T) {
	db := openDuckDB(t)
	server := newTestServer(t, ordersAPI(), nil)
	attach(t, db, "api", server.address)

	t.Run("count", func(t *testing.T) {
		var count int64
		if err := db.QueryRow("SELECT COUNT(*) FROM api.s1.orders").Scan(&count); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 rows, got %d", count)
		}
	})

	t.Run("filter", func(t *testing.T) {
		var id string
		if err := db.QueryRow("SELECT id FROM api.s1.orders WHERE status = 'shipped'").Scan(&id); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if id != "o2" {
			t.Errorf("expected o2, got %s", id)
		}
	})

	t.Run("nulls", func(t *testing.T) {
		var id string
		if err := db.QueryRow("SELECT id FROM api.s1.orders WHERE status IS NULL").Scan(&id); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if id != "o3" {
			t.Errorf("expected o3, got %s", id)
		}
	})

	t.Run("projection", func(t *testing.T) {
		rows, err := db.Query("SELECT status FROM api.s1.orders ORDER BY id")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		defer rows.Close()

		var got []sql.NullString
		for rows.Next() {
			var s sql.NullString
			if err := rows.Scan(&s); err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			got = append(got, s)
		}
		if err := rows.Err(); err != nil {
			t.Fatalf("rows error: %v", err)
		}
		if len(got) != 3 || got[0].String != "open" || got[2].Valid {
			t.Errorf("unexpected statuses %v", got)
		}
	})
}
