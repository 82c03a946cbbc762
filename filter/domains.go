package filter

import (
	"github.com/hugr-lab/airport-openapi/connector"
)

// constraint maps column names to the domain a row must satisfy.
// Absent columns are unconstrained.
type constraint map[string]connector.Domain

// ExtractDomains derives, for each column, the set of values a row can hold
// and still pass every filter. Only VARCHAR columns compared against VARCHAR
// constants are narrowed. Everything else is left unconstrained, so the
// result is always implied by the filters and never narrower than them.
//
// A nil FilterPushdown yields an empty map.
func ExtractDomains(fp *FilterPushdown) (map[string]connector.Domain, error) {
	out := map[string]connector.Domain{}
	if fp == nil {
		return out, nil
	}

	for _, f := range fp.Filters {
		c, err := fp.constraintOf(f)
		if err != nil {
			return nil, err
		}
		out = intersect(out, c)
	}

	for name, d := range out {
		if d.IsAll() {
			delete(out, name)
		}
	}
	return out, nil
}

func (fp *FilterPushdown) constraintOf(expr Expression) (constraint, error) {
	switch e := expr.(type) {
	case *ConjunctionExpression:
		return fp.conjunction(e)
	case *ComparisonExpression:
		return fp.comparison(e)
	case *BetweenExpression:
		return fp.between(e)
	case *OperatorExpression:
		return fp.operator(e)
	}
	return nil, nil
}

func (fp *FilterPushdown) conjunction(e *ConjunctionExpression) (constraint, error) {
	switch e.Type() {
	case TypeConjunctionAnd:
		out := constraint{}
		for _, child := range e.Children {
			c, err := fp.constraintOf(child)
			if err != nil {
				return nil, err
			}
			out = intersect(out, c)
		}
		return out, nil

	case TypeConjunctionOr:
		var out constraint
		for i, child := range e.Children {
			c, err := fp.constraintOf(child)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				out = c
				continue
			}
			out = union(out, c)
		}
		return out, nil
	}
	return nil, nil
}

func (fp *FilterPushdown) comparison(e *ComparisonExpression) (constraint, error) {
	op := e.Type()
	ref, value, ok := columnAndConstant(e.Left, e.Right)
	if !ok {
		ref, value, ok = columnAndConstant(e.Right, e.Left)
		if !ok {
			return nil, nil
		}
		op = flip(op)
	}

	name, err := fp.ColumnName(ref)
	if err != nil {
		return nil, err
	}

	if value.IsNull {
		if op == TypeCompareNotDistinctFrom {
			return constraint{name: connector.OnlyNull()}, nil
		}
		if op == TypeCompareDistinctFrom {
			return constraint{name: connector.NotNull()}, nil
		}
		return constraint{name: connector.NoValues()}, nil
	}
	v, ok := varcharData(value)
	if !ok {
		return nil, nil
	}

	var d connector.Domain
	switch op {
	case TypeCompareEqual, TypeCompareNotDistinctFrom:
		d = connector.SingleValue(v)
	case TypeCompareNotEqual:
		d = connector.RangeValues(false,
			connector.Range{Low: connector.Bound{Unbounded: true}, High: connector.Bound{Value: v}},
			connector.Range{Low: connector.Bound{Value: v}, High: connector.Bound{Unbounded: true}},
		)
	case TypeCompareLessThan, TypeCompareLessThanOrEqual:
		d = connector.RangeValues(false, connector.Range{
			Low:  connector.Bound{Unbounded: true},
			High: connector.Bound{Value: v, Inclusive: op == TypeCompareLessThanOrEqual},
		})
	case TypeCompareGreaterThan, TypeCompareGreaterThanOrEqual:
		d = connector.RangeValues(false, connector.Range{
			Low:  connector.Bound{Value: v, Inclusive: op == TypeCompareGreaterThanOrEqual},
			High: connector.Bound{Unbounded: true},
		})
	default:
		return nil, nil
	}
	return constraint{name: d}, nil
}

func (fp *FilterPushdown) between(e *BetweenExpression) (constraint, error) {
	ref, ok := varcharColumn(e.Input)
	if !ok {
		return nil, nil
	}
	lo, lok := varcharConstant(e.Lower)
	hi, hok := varcharConstant(e.Upper)
	if !lok || !hok {
		return nil, nil
	}
	name, err := fp.ColumnName(ref)
	if err != nil {
		return nil, err
	}
	return constraint{name: connector.RangeValues(false, connector.Range{
		Low:  connector.Bound{Value: lo, Inclusive: e.LowerInclusive},
		High: connector.Bound{Value: hi, Inclusive: e.UpperInclusive},
	})}, nil
}

func (fp *FilterPushdown) operator(e *OperatorExpression) (constraint, error) {
	if len(e.Children) == 0 {
		return nil, nil
	}
	ref, ok := e.Children[0].(*ColumnRefExpression)
	if !ok {
		return nil, nil
	}

	switch e.Type() {
	case TypeOperatorIsNull, TypeOperatorIsNotNull:
		name, err := fp.ColumnName(ref)
		if err != nil {
			return nil, err
		}
		if e.Type() == TypeOperatorIsNull {
			return constraint{name: connector.OnlyNull()}, nil
		}
		return constraint{name: connector.NotNull()}, nil

	case TypeCompareIn:
		if !ref.ReturnType.IsVarchar() {
			return nil, nil
		}
		values := make([][]byte, 0, len(e.Children)-1)
		for _, child := range e.Children[1:] {
			c, ok := child.(*ConstantExpression)
			if !ok {
				return nil, nil
			}
			if c.Value.IsNull {
				continue
			}
			v, ok := varcharData(c.Value)
			if !ok {
				return nil, nil
			}
			values = append(values, v)
		}
		name, err := fp.ColumnName(ref)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return constraint{name: connector.NoValues()}, nil
		}
		return constraint{name: connector.DiscreteValues(false, values...)}, nil
	}
	return nil, nil
}

func intersect(a, b constraint) constraint {
	out := make(constraint, len(a)+len(b))
	for name, d := range a {
		out[name] = d
	}
	for name, d := range b {
		if prev, ok := out[name]; ok {
			d = prev.Intersect(d)
		}
		out[name] = d
	}
	return out
}

// union keeps only columns constrained on both sides.
func union(a, b constraint) constraint {
	out := constraint{}
	for name, d := range a {
		if o, ok := b[name]; ok {
			out[name] = d.Union(o)
		}
	}
	return out
}

func columnAndConstant(l, r Expression) (*ColumnRefExpression, Value, bool) {
	ref, ok := varcharColumn(l)
	if !ok {
		return nil, Value{}, false
	}
	c, ok := r.(*ConstantExpression)
	if !ok {
		return nil, Value{}, false
	}
	return ref, c.Value, true
}

func varcharColumn(e Expression) (*ColumnRefExpression, bool) {
	ref, ok := e.(*ColumnRefExpression)
	if !ok || !ref.ReturnType.IsVarchar() {
		return nil, false
	}
	return ref, true
}

func varcharConstant(e Expression) ([]byte, bool) {
	c, ok := e.(*ConstantExpression)
	if !ok || c.Value.IsNull {
		return nil, false
	}
	return varcharData(c.Value)
}

func varcharData(v Value) ([]byte, bool) {
	if !v.Type.IsVarchar() {
		return nil, false
	}
	s, ok := v.Data.(string)
	if !ok {
		return nil, false
	}
	return []byte(s), true
}

func flip(op ExpressionType) ExpressionType {
	switch op {
	case TypeCompareLessThan:
		return TypeCompareGreaterThan
	case TypeCompareGreaterThan:
		return TypeCompareLessThan
	case TypeCompareLessThanOrEqual:
		return TypeCompareGreaterThanOrEqual
	case TypeCompareGreaterThanOrEqual:
		return TypeCompareLessThanOrEqual
	}
	return op
}
