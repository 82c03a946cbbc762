// Package fakeapi is an in-memory implementation of the remote REST service
// used by tests. Tables hold varchar rows; splits partition rows round-robin
// and pages are cut by an offset token.
package fakeapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hugr-lab/airport-openapi/wire"
)

// DefaultPageSize is the number of rows per page when a table sets none.
const DefaultPageSize = 2

// Table is a remote table served by the fake API.
type Table struct {
	Schema  string
	Name    string
	Columns []wire.ColumnMetadata
	Comment *string

	// Rows are row-major values; a nil entry is a null.
	Rows [][]*string

	// Splits are the tokens returned by list-splits. Defaults to ["0"].
	Splits []string

	// PageSize caps rows per page. Defaults to DefaultPageSize.
	PageSize int
}

// Fault is an injected failure for one method and path.
type Fault struct {
	Status int
	Body   string
	// Times limits how often the fault fires. 0 means always.
	Times int
}

type tableKey struct{ schema, table string }

// API is the fake service. The zero value is not usable; call New.
type API struct {
	mu        sync.Mutex
	schemas   []string
	tables    map[tableKey]*Table
	order     map[string][]string
	describes map[tableKey]*wire.TableMetadata
	pages     map[string]map[string]wire.PageResult
	faults    map[string]*Fault
	calls     map[string]int
	bodies    map[string][]byte
	headers   http.Header

	router chi.Router
}

// New returns an empty fake API.
func New() *API {
	a := &API{
		tables:    make(map[tableKey]*Table),
		order:     make(map[string][]string),
		describes: make(map[tableKey]*wire.TableMetadata),
		pages:     make(map[string]map[string]wire.PageResult),
		faults:    make(map[string]*Fault),
		calls:     make(map[string]int),
		bodies:    make(map[string][]byte),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(a.record)
	r.Get("/schemas", a.listSchemas)
	r.Get("/schemas/{schema}/tables", a.listTables)
	r.Get("/schemas/{schema}/tables/{table}", a.describeTable)
	r.Post("/schemas/{schema}/tables/{table}/splits", a.listSplits)
	r.Post("/schemas/{schema}/tables/{table}/splits/{split}/rows", a.fetchRows)
	a.router = r
	return a
}

// Serve starts an httptest server that is closed with the test.
func (a *API) Serve(tb testing.TB) *httptest.Server {
	tb.Helper()
	srv := httptest.NewServer(a)
	tb.Cleanup(srv.Close)
	return srv
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// AddSchema registers an empty schema.
func (a *API) AddSchema(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addSchemaLocked(name)
}

func (a *API) addSchemaLocked(name string) {
	for _, s := range a.schemas {
		if s == name {
			return
		}
	}
	a.schemas = append(a.schemas, name)
}

// AddTable registers a table and its schema.
func (a *API) AddTable(t *Table) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addSchemaLocked(t.Schema)
	key := tableKey{t.Schema, t.Name}
	if _, ok := a.tables[key]; !ok {
		a.order[t.Schema] = append(a.order[t.Schema], t.Name)
	}
	a.tables[key] = t
}

// SetDescribe replaces the describe response of a table verbatim.
func (a *API) SetDescribe(schema, table string, md wire.TableMetadata) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.describes[tableKey{schema, table}] = &md
}

// ScriptPages makes fetch-rows for a split answer from a script instead of
// table rows. The script is keyed by request token, "" for the first call.
func (a *API) ScriptPages(schema, table, split string, pages map[string]wire.PageResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pages[splitPath(schema, table, split)] = pages
}

// Fail injects a failure for requests matching method and decoded path.
func (a *API) Fail(method, path string, f Fault) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.faults[method+" "+path] = &f
}

// Clear removes an injected failure.
func (a *API) Clear(method, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.faults, method+" "+path)
}

// Calls returns how many requests reached method and decoded path.
func (a *API) Calls(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method+" "+path]
}

// LastBody returns the last request body sent to method and decoded path.
func (a *API) LastBody(method, path string) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bodies[method+" "+path]
}

// LastHeaders returns the headers of the most recent request.
func (a *API) LastHeaders() http.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.headers.Clone()
}

func splitPath(schema, table, split string) string {
	return "/schemas/" + schema + "/tables/" + table + "/splits/" + split + "/rows"
}

// record counts the request, captures body and headers, and fires faults.
func (a *API) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		a.mu.Lock()
		a.calls[key]++
		a.bodies[key] = body
		a.headers = r.Header.Clone()
		var fault *Fault
		if f, ok := a.faults[key]; ok {
			fault = f
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					delete(a.faults, key)
				}
			}
		}
		a.mu.Unlock()

		if fault != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fault.Status)
			_, _ = io.WriteString(w, fault.Body)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// param returns the decoded path parameter. chi matches on the escaped path.
func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, retryable bool) {
	writeJSON(w, status, wire.Error{Message: msg, Retryable: retryable})
}

func (a *API) listSchemas(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	schemas := append([]string{}, a.schemas...)
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, schemas)
}

func (a *API) listTables(w http.ResponseWriter, r *http.Request) {
	schema := param(r, "schema")

	a.mu.Lock()
	found := false
	for _, s := range a.schemas {
		found = found || s == schema
	}
	names := append([]string{}, a.order[schema]...)
	a.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "schema not found: "+schema, false)
		return
	}

	out := make([]wire.SchemaTable, 0, len(names))
	for _, n := range names {
		out = append(out, wire.SchemaTable{Schema: schema, Table: n})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) lookup(r *http.Request) (*Table, tableKey) {
	key := tableKey{param(r, "schema"), param(r, "table")}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tables[key], key
}

func (a *API) describeTable(w http.ResponseWriter, r *http.Request) {
	t, key := a.lookup(r)

	a.mu.Lock()
	override := a.describes[key]
	a.mu.Unlock()
	if override != nil {
		writeJSON(w, http.StatusOK, override)
		return
	}

	if t == nil {
		writeError(w, http.StatusNotFound, "table not found: "+key.schema+"."+key.table, false)
		return
	}
	writeJSON(w, http.StatusOK, wire.TableMetadata{
		SchemaTableName: wire.SchemaTable{Schema: t.Schema, Table: t.Name},
		Columns:         t.Columns,
		Comment:         t.Comment,
	})
}

func (a *API) listSplits(w http.ResponseWriter, r *http.Request) {
	t, key := a.lookup(r)
	if t == nil {
		writeError(w, http.StatusNotFound, "table not found: "+key.schema+"."+key.table, false)
		return
	}

	var req wire.SplitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad splits request: "+err.Error(), false)
		return
	}

	splits := t.Splits
	if len(splits) == 0 {
		splits = []string{"0"}
	}
	if req.MaxSplitCount > 0 && len(splits) > req.MaxSplitCount {
		splits = splits[:req.MaxSplitCount]
	}
	writeJSON(w, http.StatusOK, wire.Splits{Splits: splits})
}

func (a *API) fetchRows(w http.ResponseWriter, r *http.Request) {
	var req wire.PageRowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad rows request: "+err.Error(), false)
		return
	}
	token := ""
	if req.NextToken != nil {
		token = *req.NextToken
	}

	a.mu.Lock()
	script := a.pages[r.URL.Path]
	a.mu.Unlock()
	if script != nil {
		page, ok := script[token]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown token: "+token, false)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}

	t, key := a.lookup(r)
	if t == nil {
		writeError(w, http.StatusNotFound, "table not found: "+key.schema+"."+key.table, false)
		return
	}

	page, err := t.page(param(r, "split"), token, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), false)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

// page cuts one page of the split's rows, filtered by the request constraint.
func (t *Table) page(split, token string, req wire.PageRowsRequest) (*wire.PageResult, error) {
	splits := t.Splits
	if len(splits) == 0 {
		splits = []string{"0"}
	}
	splitIdx := -1
	for i, s := range splits {
		if s == split {
			splitIdx = i
		}
	}
	if splitIdx < 0 {
		return nil, badRequest("unknown split: " + split)
	}

	colIdx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		colIdx[c.Name] = i
	}
	for _, c := range req.DesiredColumns {
		if _, ok := colIdx[c]; !ok {
			return nil, badRequest("unknown column: " + c)
		}
	}

	var rows [][]*string
	for i, row := range t.Rows {
		if i%len(splits) != splitIdx {
			continue
		}
		if matches(row, colIdx, req.OutputConstraint) {
			rows = append(rows, row)
		}
	}

	offset := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 || n > len(rows) {
			return nil, badRequest("bad token: " + token)
		}
		offset = n
	}

	size := t.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(rows)
	end := offset + size
	if end > total {
		end = total
	}
	rows = rows[offset:end]

	count := int64(len(rows))
	page := &wire.PageResult{RowCount: &count, ColumnBlocks: []wire.Block{}}
	for _, c := range req.DesiredColumns {
		values := make([][]byte, len(rows))
		for i, row := range rows {
			if v := row[colIdx[c]]; v != nil {
				values[i] = []byte(*v)
			}
		}
		page.ColumnBlocks = append(page.ColumnBlocks, wire.Block{VarcharData: wire.EncodeVarchar(values)})
	}

	if end == total {
		return page, nil
	}
	next := strconv.Itoa(end)
	page.NextToken = &next
	return page, nil
}

// matches applies single-value equality constraints, the only shape the
// client sends.
func matches(row []*string, colIdx map[string]int, c wire.TupleDomain) bool {
	for name, d := range c.Domains {
		idx, ok := colIdx[name]
		if !ok {
			return false
		}
		v := row[idx]
		if v == nil {
			if !d.NullAllowed {
				return false
			}
			continue
		}
		if d.ValueSet.Equatable == nil {
			continue
		}
		hit := false
		for _, b := range d.ValueSet.Equatable.Values {
			if b.VarcharData == nil || len(b.VarcharData.Sizes) != 1 {
				continue
			}
			if want, err := decodeOne(b.VarcharData); err == nil && want == *v {
				hit = true
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func decodeOne(v *wire.VarcharData) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(v.Bytes)
	if err != nil {
		return "", err
	}
	n := int(v.Sizes[0])
	if n < 0 || n > len(raw) {
		return "", badRequest("bad constraint block")
	}
	return string(raw[:n]), nil
}
