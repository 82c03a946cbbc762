package connector

import (
	"bytes"
	"strconv"
)

// ValueSetKind is the shape of a ValueSet.
type ValueSetKind int

const (
	// ValuesAll allows every non-null value.
	ValuesAll ValueSetKind = iota
	// ValuesNone allows no non-null value.
	ValuesNone
	// ValuesDiscrete allows exactly the listed values.
	ValuesDiscrete
	// ValuesRanges allows values inside any of the listed ranges.
	ValuesRanges
)

// Bound is one end of a Range. Values compare as raw bytes.
type Bound struct {
	Value     []byte
	Inclusive bool
	Unbounded bool
}

// Range is an interval of values.
type Range struct {
	Low  Bound
	High Bound
}

// ValueSet is the set of non-null values a column may take.
type ValueSet struct {
	Kind   ValueSetKind
	Values [][]byte
	Ranges []Range
}

// Domain constrains one column: the non-null values it may take and
// whether null is allowed.
type Domain struct {
	NullAllowed bool
	Values      ValueSet
}

// AllValues places no constraint on a column.
func AllValues() Domain {
	return Domain{NullAllowed: true, Values: ValueSet{Kind: ValuesAll}}
}

// NotNull allows every value except null.
func NotNull() Domain {
	return Domain{Values: ValueSet{Kind: ValuesAll}}
}

// OnlyNull allows null and nothing else.
func OnlyNull() Domain {
	return Domain{NullAllowed: true, Values: ValueSet{Kind: ValuesNone}}
}

// NoValues allows nothing.
func NoValues() Domain {
	return Domain{Values: ValueSet{Kind: ValuesNone}}
}

// SingleValue allows exactly v.
func SingleValue(v []byte) Domain {
	return Domain{Values: ValueSet{Kind: ValuesDiscrete, Values: [][]byte{v}}}
}

// DiscreteValues allows any of vs.
func DiscreteValues(nullAllowed bool, vs ...[]byte) Domain {
	if len(vs) == 0 {
		return Domain{NullAllowed: nullAllowed, Values: ValueSet{Kind: ValuesNone}}
	}
	return Domain{NullAllowed: nullAllowed, Values: ValueSet{Kind: ValuesDiscrete, Values: dedupe(vs)}}
}

// RangeValues allows values inside any of rs.
func RangeValues(nullAllowed bool, rs ...Range) Domain {
	if len(rs) == 0 {
		return Domain{NullAllowed: nullAllowed, Values: ValueSet{Kind: ValuesNone}}
	}
	return Domain{NullAllowed: nullAllowed, Values: ValueSet{Kind: ValuesRanges, Ranges: rs}}
}

// SingleValue returns the only non-null value of the domain, if there is
// exactly one. A closed range whose ends are equal counts as one value.
func (d Domain) SingleValue() ([]byte, bool) {
	switch d.Values.Kind {
	case ValuesDiscrete:
		if len(d.Values.Values) == 1 {
			return d.Values.Values[0], true
		}
	case ValuesRanges:
		if len(d.Values.Ranges) == 1 {
			r := d.Values.Ranges[0]
			if !r.Low.Unbounded && !r.High.Unbounded && r.Low.Inclusive && r.High.Inclusive &&
				bytes.Equal(r.Low.Value, r.High.Value) {
				return r.Low.Value, true
			}
		}
	}
	return nil, false
}

// IsAll reports whether the domain is unconstrained.
func (d Domain) IsAll() bool {
	return d.NullAllowed && d.Values.Kind == ValuesAll
}

// Shape names the domain's shape without revealing values.
func (d Domain) Shape() string {
	var s string
	switch d.Values.Kind {
	case ValuesAll:
		if d.NullAllowed {
			return "all"
		}
		return "not null"
	case ValuesNone:
		if d.NullAllowed {
			return "only null"
		}
		return "none"
	case ValuesDiscrete:
		if len(d.Values.Values) == 1 {
			s = "single value"
		} else {
			s = strconv.Itoa(len(d.Values.Values)) + " values"
		}
	case ValuesRanges:
		if _, ok := d.SingleValue(); ok {
			s = "single value"
		} else {
			s = strconv.Itoa(len(d.Values.Ranges)) + " ranges"
		}
	}
	if d.NullAllowed {
		s += " or null"
	}
	return s
}

// Intersect returns a domain containing every value allowed by both d and o.
// The result may be wider than the exact intersection but never narrower.
func (d Domain) Intersect(o Domain) Domain {
	out := Domain{NullAllowed: d.NullAllowed && o.NullAllowed}
	a, b := d.Values, o.Values

	switch {
	case a.Kind == ValuesNone || b.Kind == ValuesNone:
		out.Values = ValueSet{Kind: ValuesNone}
	case a.Kind == ValuesAll:
		out.Values = b
	case b.Kind == ValuesAll:
		out.Values = a
	case a.Kind == ValuesDiscrete:
		out.Values = filterValues(a.Values, b)
	case b.Kind == ValuesDiscrete:
		out.Values = filterValues(b.Values, a)
	default:
		var rs []Range
		for _, x := range a.Ranges {
			for _, y := range b.Ranges {
				if r, ok := intersectRange(x, y); ok {
					rs = append(rs, r)
				}
			}
		}
		if len(rs) == 0 {
			out.Values = ValueSet{Kind: ValuesNone}
		} else {
			out.Values = ValueSet{Kind: ValuesRanges, Ranges: rs}
		}
	}
	return out
}

// Union returns a domain containing every value allowed by d or o. Mixed
// discrete and range sets widen to all values.
func (d Domain) Union(o Domain) Domain {
	out := Domain{NullAllowed: d.NullAllowed || o.NullAllowed}
	a, b := d.Values, o.Values

	switch {
	case a.Kind == ValuesAll || b.Kind == ValuesAll:
		out.Values = ValueSet{Kind: ValuesAll}
	case a.Kind == ValuesNone:
		out.Values = b
	case b.Kind == ValuesNone:
		out.Values = a
	case a.Kind == ValuesDiscrete && b.Kind == ValuesDiscrete:
		vs := append(append([][]byte{}, a.Values...), b.Values...)
		out.Values = ValueSet{Kind: ValuesDiscrete, Values: dedupe(vs)}
	case a.Kind == ValuesRanges && b.Kind == ValuesRanges:
		rs := append(append([]Range{}, a.Ranges...), b.Ranges...)
		out.Values = ValueSet{Kind: ValuesRanges, Ranges: rs}
	default:
		out.Values = ValueSet{Kind: ValuesAll}
	}
	return out
}

// Contains reports whether v is inside the set.
func (s ValueSet) Contains(v []byte) bool {
	switch s.Kind {
	case ValuesAll:
		return true
	case ValuesDiscrete:
		for _, x := range s.Values {
			if bytes.Equal(x, v) {
				return true
			}
		}
	case ValuesRanges:
		for _, r := range s.Ranges {
			if r.contains(v) {
				return true
			}
		}
	}
	return false
}

func (r Range) contains(v []byte) bool {
	if !r.Low.Unbounded {
		c := bytes.Compare(v, r.Low.Value)
		if c < 0 || (c == 0 && !r.Low.Inclusive) {
			return false
		}
	}
	if !r.High.Unbounded {
		c := bytes.Compare(v, r.High.Value)
		if c > 0 || (c == 0 && !r.High.Inclusive) {
			return false
		}
	}
	return true
}

func filterValues(values [][]byte, set ValueSet) ValueSet {
	var kept [][]byte
	for _, v := range values {
		if set.Contains(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return ValueSet{Kind: ValuesNone}
	}
	return ValueSet{Kind: ValuesDiscrete, Values: kept}
}

func intersectRange(x, y Range) (Range, bool) {
	r := Range{Low: x.Low, High: x.High}

	if r.Low.Unbounded {
		r.Low = y.Low
	} else if !y.Low.Unbounded {
		switch c := bytes.Compare(y.Low.Value, r.Low.Value); {
		case c > 0:
			r.Low = y.Low
		case c == 0:
			r.Low.Inclusive = r.Low.Inclusive && y.Low.Inclusive
		}
	}

	if r.High.Unbounded {
		r.High = y.High
	} else if !y.High.Unbounded {
		switch c := bytes.Compare(y.High.Value, r.High.Value); {
		case c < 0:
			r.High = y.High
		case c == 0:
			r.High.Inclusive = r.High.Inclusive && y.High.Inclusive
		}
	}

	if !r.Low.Unbounded && !r.High.Unbounded {
		c := bytes.Compare(r.Low.Value, r.High.Value)
		if c > 0 || (c == 0 && !(r.Low.Inclusive && r.High.Inclusive)) {
			return Range{}, false
		}
	}
	return r, true
}

func dedupe(vs [][]byte) [][]byte {
	out := make([][]byte, 0, len(vs))
	for _, v := range vs {
		dup := false
		for _, x := range out {
			if bytes.Equal(x, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}
