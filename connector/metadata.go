package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/airport-openapi/metacache"
	"github.com/hugr-lab/airport-openapi/remote"
	"github.com/hugr-lab/airport-openapi/wire"
)

// Metadata answers catalog questions about the remote service. Table
// descriptions are cached; schema and table listings always hit the service.
type Metadata struct {
	svc    Service
	cache  *metacache.Cache[QualifiedTableName, *TableDescription]
	logger *slog.Logger
}

// NewMetadata builds the metadata layer over svc. Close releases the refresh
// pool and the cache janitor.
func NewMetadata(svc Service, cfg Config) (*Metadata, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Metadata{
		svc:    svc,
		logger: cfg.Logger.With("component", "metadata"),
	}
	cache, err := metacache.New[QualifiedTableName, *TableDescription](metacache.Config{
		ExpireAfterWrite: cfg.MetadataExpireAfterWrite,
		RefreshInterval:  cfg.MetadataRefreshInterval,
		RefreshWorkers:   cfg.MetadataRefreshThreads,
		Logger:           cfg.Logger,
		Now:              cfg.Now,
	}, QualifiedTableName.key, m.load)
	if err != nil {
		return nil, err
	}
	m.cache = cache
	return m, nil
}

// Close stops background refreshes.
func (m *Metadata) Close() {
	m.cache.Close()
}

// ListSchemas returns the remote schema names.
func (m *Metadata) ListSchemas(ctx context.Context) ([]string, error) {
	return m.svc.ListSchemas(ctx)
}

// ListTables lists the tables of schema, or of every schema when nil.
func (m *Metadata) ListTables(ctx context.Context, schema *string) ([]QualifiedTableName, error) {
	tables, err := m.svc.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}
	names := make([]QualifiedTableName, len(tables))
	for i, t := range tables {
		names[i] = nameOf(t)
	}
	return names, nil
}

// Describe returns the description of name. The bool is false when the
// service reports the table as missing.
func (m *Metadata) Describe(ctx context.Context, name QualifiedTableName) (*TableDescription, bool, error) {
	return m.cache.Get(ctx, name)
}

// TableHandle resolves name to a handle if the table exists.
func (m *Metadata) TableHandle(ctx context.Context, name QualifiedTableName) (TableHandle, bool, error) {
	_, found, err := m.Describe(ctx, name)
	if err != nil || !found {
		return TableHandle{}, false, err
	}
	return TableHandle{Table: name}, true, nil
}

// ColumnHandles maps column names to handles for a resolved table.
func (m *Metadata) ColumnHandles(ctx context.Context, table TableHandle) (map[string]ColumnHandle, error) {
	desc, found, err := m.Describe(ctx, table.Table)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table.Table)
	}
	handles := make(map[string]ColumnHandle, len(desc.Columns))
	for _, c := range desc.Columns {
		handles[c.Name] = ColumnHandle{Table: table.Table, Column: c}
	}
	return handles, nil
}

// ListTableColumns returns the columns of every listed table. A table that
// is listed but then described as missing is an error.
func (m *Metadata) ListTableColumns(ctx context.Context, schema *string) (map[QualifiedTableName][]ColumnDescriptor, error) {
	names, err := m.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}
	columns := make(map[QualifiedTableName][]ColumnDescriptor, len(names))
	for _, name := range names {
		desc, found, err := m.Describe(ctx, name)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, remote.InvalidResponse("table %s was listed but does not exist", name)
		}
		columns[name] = desc.Columns
	}
	return columns, nil
}

// Invalidate drops the cached description of name.
func (m *Metadata) Invalidate(name QualifiedTableName) {
	m.cache.Invalidate(name)
}

func (m *Metadata) load(ctx context.Context, name QualifiedTableName) (*TableDescription, bool, error) {
	md, err := m.svc.DescribeTable(ctx, name.wire())
	if err != nil {
		if remote.IsNotFound(err) {
			m.logger.DebugContext(ctx, "Table not found", "table", name.String())
			return nil, false, nil
		}
		return nil, false, err
	}

	desc, err := decodeTable(name, md)
	if err != nil {
		return nil, false, err
	}
	m.logger.DebugContext(ctx, "Described table",
		"table", name.String(),
		"columns", len(desc.Columns),
	)
	return desc, true, nil
}

// decodeTable validates a describe response for name.
func decodeTable(name QualifiedTableName, md *wire.TableMetadata) (*TableDescription, error) {
	if got := nameOf(md.SchemaTableName); got != name {
		return nil, remote.InvalidResponse("describe %s returned table %s", name, got)
	}

	desc := &TableDescription{
		Name:    name,
		Columns: make([]ColumnDescriptor, 0, len(md.Columns)),
	}
	if md.Comment != nil {
		desc.Comment = *md.Comment
	}

	seen := make(map[string]struct{}, len(md.Columns))
	fields := make([]arrow.Field, 0, len(md.Columns))
	for _, c := range md.Columns {
		if c.Name == "" {
			return nil, remote.InvalidResponse("describe %s: column with empty name", name)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, remote.InvalidResponse("describe %s: duplicate column %q", name, c.Name)
		}
		seen[c.Name] = struct{}{}

		sig, err := ParseTypeSignature(c.Type)
		if err != nil {
			return nil, remote.InvalidResponse("describe %s: column %q: %w", name, c.Name, err)
		}
		dt, err := sig.ArrowType()
		if err != nil {
			return nil, remote.InvalidResponse("describe %s: column %q: %w", name, c.Name, err)
		}

		col := ColumnDescriptor{Name: c.Name, Type: sig}
		field := arrow.Field{Name: c.Name, Type: dt, Nullable: true}
		if c.Comment != nil {
			col.Comment = *c.Comment
			field.Metadata = arrow.NewMetadata([]string{"comment"}, []string{*c.Comment})
		}
		desc.Columns = append(desc.Columns, col)
		fields = append(fields, field)
	}
	desc.schema = arrow.NewSchema(fields, nil)
	return desc, nil
}
