// Package remote is the HTTP client for the REST service that owns the
// tables. Every method makes synchronous round trips from the caller's
// goroutine and reports failures as *ServiceError or *ProtocolError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/hugr-lab/airport-openapi/auth"
	"github.com/hugr-lab/airport-openapi/internal/tracing"
	"github.com/hugr-lab/airport-openapi/metrics"
	"github.com/hugr-lab/airport-openapi/wire"
)

const (
	tracerName = "github.com/hugr-lab/airport-openapi/remote"

	// HeaderRequestID carries a fresh UUID on every request.
	HeaderRequestID = "X-Request-Id"

	maxErrorBody = 64 << 10
)

// Client talks to one remote REST service. It is safe for concurrent use.
type Client struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New builds a Client. The config is validated after defaults are applied.
func New(cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds, err := cfg.Auth.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Auth = creds

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base_url: %v", ErrInvalidConfig, err)
	}

	transport := cfg.Transport
	if transport == nil {
		dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   cfg.ConnectTimeout,
			ResponseHeaderTimeout: cfg.ReadTimeout,
			ExpectContinueTimeout: time.Second,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
		}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{
			Transport: auth.NewTransport(transport, creds),
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout + cfg.WriteTimeout,
		},
		limiter: limiter,
		logger:  logger.With("component", "remote"),
		tracer:  tp.Tracer(tracerName),
	}, nil
}

// BaseURL returns a copy of the service root URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// ListSchemas returns the remote schema names in service order.
func (c *Client) ListSchemas(ctx context.Context) ([]string, error) {
	var schemas []string
	if err := c.do(ctx, "list_schemas", http.MethodGet, []string{"schemas"}, nil, &schemas); err != nil {
		return nil, err
	}
	return schemas, nil
}

// ListTables lists the tables of one schema, or of every schema when schema
// is nil. In the latter case the first failure aborts the whole listing.
func (c *Client) ListTables(ctx context.Context, schema *string) ([]wire.SchemaTable, error) {
	if schema != nil {
		return c.listTables(ctx, *schema)
	}

	schemas, err := c.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}

	var all []wire.SchemaTable
	for _, s := range schemas {
		tables, err := c.listTables(ctx, s)
		if err != nil {
			return nil, err
		}
		all = append(all, tables...)
	}
	return all, nil
}

func (c *Client) listTables(ctx context.Context, schema string) ([]wire.SchemaTable, error) {
	var tables []wire.SchemaTable
	if err := c.do(ctx, "list_tables", http.MethodGet, []string{"schemas", schema, "tables"}, nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// DescribeTable fetches the column metadata of a table.
// A missing table is a ServiceError with status 404.
func (c *Client) DescribeTable(ctx context.Context, table wire.SchemaTable) (*wire.TableMetadata, error) {
	var md wire.TableMetadata
	path := []string{"schemas", table.Schema, "tables", table.Table}
	if err := c.do(ctx, "describe_table", http.MethodGet, path, nil, &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// ListSplits asks the service to partition a table scan.
func (c *Client) ListSplits(ctx context.Context, table wire.SchemaTable, maxSplitCount int) ([]string, error) {
	var splits wire.Splits
	path := []string{"schemas", table.Schema, "tables", table.Table, "splits"}
	body := wire.SplitsRequest{MaxSplitCount: maxSplitCount}
	if err := c.do(ctx, "list_splits", http.MethodPost, path, body, &splits); err != nil {
		return nil, err
	}
	return splits.Splits, nil
}

// PageRequest is one fetch-page call.
type PageRequest struct {
	Table      wire.SchemaTable
	Split      string
	Columns    []string
	Constraint wire.TupleDomain
	NextToken  *string
}

// FetchPage fetches the next page of a split.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (*wire.PageResult, error) {
	body := wire.PageRowsRequest{
		DesiredColumns:   req.Columns,
		OutputConstraint: req.Constraint,
		NextToken:        req.NextToken,
	}
	if body.DesiredColumns == nil {
		body.DesiredColumns = []string{}
	}
	if body.OutputConstraint.Domains == nil {
		body.OutputConstraint.Domains = map[string]wire.Domain{}
	}

	var page wire.PageResult
	path := []string{"schemas", req.Table.Schema, "tables", req.Table.Table, "splits", req.Split, "rows"}
	if err := c.do(ctx, "fetch_page", http.MethodPost, path, body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(segments []string) *url.URL {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	u := *c.base
	u.Path = c.base.Path + "/" + strings.Join(segments, "/")
	u.RawPath = c.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	return &u
}

func (c *Client) do(ctx context.Context, op, method string, segments []string, in, out any) (err error) {
	u := c.endpoint(segments)
	path := u.EscapedPath()

	ctx, span := c.tracer.Start(ctx, "remote."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.limiter != nil {
		start := time.Now()
		if werr := c.limiter.Wait(ctx); werr != nil {
			return &ServiceError{Message: werr.Error(), Cause: werr}
		}
		if time.Since(start) > time.Millisecond {
			metrics.RateLimitWaits.Inc()
		}
	}

	var body io.Reader
	if in != nil {
		raw, merr := json.Marshal(in)
		if merr != nil {
			return fmt.Errorf("encode %s request: %w", op, merr)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return &ServiceError{Message: err.Error(), Cause: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.InjectHTTP(ctx, req.Header)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	metrics.RemoteRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(op, "error").Inc()
		c.logger.WarnContext(ctx, "Remote call failed",
			"operation", op,
			"path", path,
			"request_id", requestID,
			"error", err,
		)
		return &ServiceError{Message: err.Error(), Cause: err}
	}
	defer resp.Body.Close()

	metrics.RemoteRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := c.serviceError(resp, method, path)
		level := slog.LevelWarn
		if resp.StatusCode == http.StatusNotFound {
			level = slog.LevelDebug
		}
		c.logger.Log(ctx, level, "Remote call returned error status",
			"operation", op,
			"path", path,
			"request_id", requestID,
			"status", resp.StatusCode,
			"retryable", serr.Retryable,
		)
		return serr
	}

	if out != nil {
		if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil {
			return InvalidResponse("decode %s response from %s: %w", op, path, derr)
		}
	}

	c.logger.DebugContext(ctx, "Remote call completed",
		"operation", op,
		"path", path,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", elapsed,
	)
	return nil
}

// serviceError translates a non-2xx response. The body is used when it is a
// well-formed error document with a message.
func (c *Client) serviceError(resp *http.Response, method, path string) *ServiceError {
	serr := &ServiceError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("%s %s: %s", method, path, resp.Status),
		Cause:      fmt.Errorf("%w: %s %s: %s", ErrUnexpectedStatus, method, path, resp.Status),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return serr
	}

	var body wire.Error
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		return serr
	}
	serr.Message = body.Message
	serr.Retryable = body.Retryable
	return serr
}
