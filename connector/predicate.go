package connector

import (
	"sort"
	"strings"

	"github.com/hugr-lab/airport-openapi/wire"
)

// Reasons a constraint is left out of the encoded predicate.
const (
	SkipUnsupportedType  = "unsupported type"
	SkipUnsupportedShape = "unsupported shape"
)

// SkippedColumn is a constrained column the encoder could not push down.
// The service returns those rows unfiltered; the engine filters them.
type SkippedColumn struct {
	Column string
	Reason string
}

// EncodePredicate converts column constraints to the wire tuple domain.
//
// Only varchar columns constrained to a single value, optionally with null,
// are encoded. Every other constraint is dropped and reported in skipped,
// except unconstrained domains, which carry nothing to push down.
func EncodePredicate(domains map[ColumnHandle]Domain) (wire.TupleDomain, []SkippedColumn) {
	out := wire.TupleDomain{Domains: make(map[string]wire.Domain, len(domains))}
	var skipped []SkippedColumn

	for col, d := range domains {
		if d.IsAll() {
			continue
		}
		if !col.Column.Type.IsVarchar() {
			skipped = append(skipped, SkippedColumn{Column: col.Name(), Reason: SkipUnsupportedType})
			continue
		}
		v, ok := d.SingleValue()
		if !ok {
			skipped = append(skipped, SkippedColumn{Column: col.Name(), Reason: SkipUnsupportedShape})
			continue
		}
		out.Domains[col.Name()] = wire.Domain{
			NullAllowed: d.NullAllowed,
			ValueSet: wire.ValueSet{
				Equatable: &wire.EquatableValueSet{Values: []wire.Block{wire.VarcharValue(v)}},
			},
		}
	}

	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Column < skipped[j].Column })
	return out, skipped
}

// DescribePredicate renders constraints for logs as "column: shape" pairs.
// Values are never included.
func DescribePredicate(domains map[ColumnHandle]Domain) string {
	parts := make([]string, 0, len(domains))
	for col, d := range domains {
		parts = append(parts, col.Name()+": "+d.Shape())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}
