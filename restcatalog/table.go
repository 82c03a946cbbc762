package restcatalog

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/airport-openapi/catalog"
	"github.com/hugr-lab/airport-openapi/connector"
	"github.com/hugr-lab/airport-openapi/filter"
	"github.com/hugr-lab/airport-openapi/metrics"
	"github.com/hugr-lab/airport-openapi/wire"
)

type table struct {
	cat  *Catalog
	desc *connector.TableDescription
}

var _ catalog.PartitionedTable = (*table)(nil)

func (t *table) Name() string               { return t.desc.Name.Table }
func (t *table) Comment() string            { return t.desc.Comment }
func (t *table) ArrowSchema() *arrow.Schema { return t.desc.ArrowSchema() }

// Partitions lists one partition per remote split.
func (t *table) Partitions(ctx context.Context, _ *catalog.PartitionRequest) ([]catalog.Partition, error) {
	splits, err := t.cat.splits.ListSplits(ctx, t.desc.Name, 0)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Partition, len(splits))
	for i, s := range splits {
		out[i] = catalog.Partition{Token: s.Token}
	}
	return out, nil
}

// Scan reads opts.Partition, or every split when it is empty. Only the
// requested columns are fetched; the others come back as nulls.
func (t *table) Scan(ctx context.Context, opts *catalog.ScanOptions) (array.RecordReader, error) {
	if opts == nil {
		opts = &catalog.ScanOptions{}
	}

	handles, err := t.cat.meta.ColumnHandles(ctx, connector.TableHandle{Table: t.desc.Name})
	if err != nil {
		return nil, err
	}
	columns, err := t.projection(handles, opts.Columns)
	if err != nil {
		return nil, err
	}
	constraint, err := t.constraint(ctx, handles, opts.Filter)
	if err != nil {
		return nil, err
	}

	var splits []connector.Split
	if opts.Partition != "" {
		splits = []connector.Split{{
			Token:    opts.Partition,
			Table:    t.desc.Name,
			Location: t.cat.svc.BaseURL(),
		}}
	} else {
		splits, err = t.cat.splits.ListSplits(ctx, t.desc.Name, 0)
		if err != nil {
			return nil, err
		}
	}

	t.cat.logger.DebugContext(ctx, "Scanning table",
		"table", t.desc.Name.String(),
		"columns", len(columns),
		"splits", len(splits),
	)
	return newScanReader(ctx, t.cat, t.desc.ArrowSchema(), splits, columns, constraint), nil
}

// projection returns the handles of the requested columns in table order.
// No requested columns means all of them.
func (t *table) projection(handles map[string]connector.ColumnHandle, names []string) ([]connector.ColumnHandle, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := handles[n]; !ok {
			return nil, fmt.Errorf("unknown column %q in %s", n, t.desc.Name)
		}
		want[n] = true
	}

	out := make([]connector.ColumnHandle, 0, len(t.desc.Columns))
	for _, c := range t.desc.Columns {
		if len(want) == 0 || want[c.Name] {
			out = append(out, handles[c.Name])
		}
	}
	return out, nil
}

func (t *table) constraint(ctx context.Context, handles map[string]connector.ColumnHandle, raw []byte) (wire.TupleDomain, error) {
	fp, err := filter.Parse(raw)
	if err != nil {
		return wire.TupleDomain{}, err
	}
	domains, err := filter.ExtractDomains(fp)
	if err != nil {
		return wire.TupleDomain{}, err
	}

	byHandle := make(map[connector.ColumnHandle]connector.Domain, len(domains))
	for name, d := range domains {
		if h, ok := handles[name]; ok {
			byHandle[h] = d
		}
	}

	td, skipped := connector.EncodePredicate(byHandle)
	if len(byHandle) > 0 {
		t.cat.logger.DebugContext(ctx, "Scan predicate",
			"table", t.desc.Name.String(),
			"predicate", connector.DescribePredicate(byHandle),
			"pushed", len(td.Domains),
		)
	}
	for _, s := range skipped {
		metrics.PredicateColumnsSkipped.WithLabelValues(s.Reason).Inc()
		t.cat.logger.DebugContext(ctx, "Predicate column not pushed down",
			"table", t.desc.Name.String(),
			"column", s.Column,
			"reason", s.Reason,
		)
	}
	return td, nil
}
