// Package filter parses the filter pushdown JSON DuckDB's Airport extension
// sends with an endpoints request and reduces it to per-column domains.
//
// # Basic Usage
//
//	fp, err := filter.Parse(params.JSONFilters)
//	if err != nil {
//	    return err // malformed JSON
//	}
//
//	domains, err := filter.ExtractDomains(fp)
//	if err != nil {
//	    return err // column binding out of range
//	}
//
// The domains are a relaxation of the filters: a row passing the filters
// always falls inside its column domains, but not the other way around.
// DuckDB re-applies the full filter to whatever the server returns, so
// a wider domain only costs transfer, never correctness.
//
// # Supported Expressions
//
// Only VARCHAR columns compared against VARCHAR constants narrow a domain:
//   - =, <>, <, <=, >, >= and IS [NOT] DISTINCT FROM
//   - BETWEEN
//   - IN (...)
//   - IS NULL and IS NOT NULL (any column type)
//   - AND and OR of the above
//
// Any other expression parses into its typed form (or UnsupportedExpression)
// and leaves the columns it touches unconstrained.
package filter
