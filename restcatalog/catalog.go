// Package restcatalog exposes the tables of a remote REST service as an
// Airport catalog. Schema and table lookups go through the metadata cache;
// each table partitions into the remote splits and scans by driving one
// page reader per split.
package restcatalog

import (
	"context"
	"log/slog"

	"github.com/hugr-lab/airport-openapi/catalog"
	"github.com/hugr-lab/airport-openapi/connector"
)

// Catalog is a catalog.Catalog over a remote service.
type Catalog struct {
	svc    connector.Service
	meta   *connector.Metadata
	splits *connector.SplitSource
	cfg    connector.Config
	logger *slog.Logger
}

var _ catalog.Catalog = (*Catalog)(nil)

// New creates a catalog over svc. Close releases the metadata cache.
func New(svc connector.Service, cfg connector.Config) (*Catalog, error) {
	cfg = cfg.WithDefaults()
	meta, err := connector.NewMetadata(svc, cfg)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		svc:    svc,
		meta:   meta,
		splits: connector.NewSplitSource(svc, cfg),
		cfg:    cfg,
		logger: cfg.Logger.With("component", "catalog"),
	}, nil
}

// Close stops the metadata cache's background work.
func (c *Catalog) Close() {
	c.meta.Close()
}

// Metadata returns the metadata layer backing the catalog.
func (c *Catalog) Metadata() *connector.Metadata {
	return c.meta
}

// Schemas implements catalog.Catalog.
func (c *Catalog) Schemas(ctx context.Context) ([]catalog.Schema, error) {
	names, err := c.meta.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Schema, 0, len(names))
	for _, name := range names {
		out = append(out, &schema{cat: c, name: name})
	}
	return out, nil
}

// Schema implements catalog.Catalog.
func (c *Catalog) Schema(ctx context.Context, name string) (catalog.Schema, error) {
	names, err := c.meta.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if n == name {
			return &schema{cat: c, name: name}, nil
		}
	}
	return nil, nil
}

type schema struct {
	cat  *Catalog
	name string
}

func (s *schema) Name() string    { return s.name }
func (s *schema) Comment() string { return "" }

func (s *schema) Tables(ctx context.Context) ([]catalog.Table, error) {
	names, err := s.cat.meta.ListTables(ctx, &s.name)
	if err != nil {
		return nil, err
	}

	out := make([]catalog.Table, 0, len(names))
	for _, name := range names {
		desc, found, err := s.cat.meta.Describe(ctx, name)
		if err != nil {
			return nil, err
		}
		if !found {
			// Dropped between list and describe.
			s.cat.logger.DebugContext(ctx, "Listed table is gone", "table", name.String())
			continue
		}
		out = append(out, &table{cat: s.cat, desc: desc})
	}
	return out, nil
}

func (s *schema) Table(ctx context.Context, name string) (catalog.Table, error) {
	desc, found, err := s.cat.meta.Describe(ctx, connector.QualifiedTableName{Schema: s.name, Table: name})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &table{cat: s.cat, desc: desc}, nil
}
