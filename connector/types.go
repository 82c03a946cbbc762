package connector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// TypeSignature is a parsed remote column type such as "varchar",
// "varchar(10)", "decimal(12, 2)" or "array(varchar)".
type TypeSignature struct {
	// Raw is the type as the service sent it.
	Raw string
	// Base is the lower-cased type name with whitespace collapsed.
	Base string
	// Args is the text between the outer parentheses, "" when there are none.
	Args string
}

// ParseTypeSignature parses a remote type name. Matching is case-insensitive.
func ParseTypeSignature(s string) (TypeSignature, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return TypeSignature{}, fmt.Errorf("empty type signature")
	}

	base, args := raw, ""
	if open := strings.IndexByte(raw, '('); open >= 0 {
		if !strings.HasSuffix(raw, ")") {
			return TypeSignature{}, fmt.Errorf("type signature %q: missing closing parenthesis", s)
		}
		base, args = raw[:open], raw[open+1:len(raw)-1]
		if err := checkBalanced(args); err != nil {
			return TypeSignature{}, fmt.Errorf("type signature %q: %w", s, err)
		}
	}

	base = strings.ToLower(strings.Join(strings.Fields(base), " "))
	if base == "" {
		return TypeSignature{}, fmt.Errorf("type signature %q: missing type name", s)
	}
	return TypeSignature{Raw: raw, Base: base, Args: strings.TrimSpace(args)}, nil
}

func checkBalanced(s string) error {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}
	return nil
}

func (t TypeSignature) String() string {
	return t.Raw
}

// Params splits Args on top-level commas.
func (t TypeSignature) Params() []string {
	if t.Args == "" {
		return nil
	}
	var params []string
	depth, start := 0, 0
	for i, r := range t.Args {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				params = append(params, strings.TrimSpace(t.Args[start:i]))
				start = i + 1
			}
		}
	}
	return append(params, strings.TrimSpace(t.Args[start:]))
}

// IsVarchar reports whether pages can carry this column. Length parameters
// are ignored.
func (t TypeSignature) IsVarchar() bool {
	return t.Base == "varchar" || t.Base == "string"
}

// ArrowType maps the signature to the Arrow type exposed in table schemas.
func (t TypeSignature) ArrowType() (arrow.DataType, error) {
	switch t.Base {
	case "varchar", "string", "char", "json", "uuid":
		return arrow.BinaryTypes.String, nil
	case "varbinary":
		return arrow.BinaryTypes.Binary, nil
	case "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "tinyint":
		return arrow.PrimitiveTypes.Int8, nil
	case "smallint":
		return arrow.PrimitiveTypes.Int16, nil
	case "integer", "int":
		return arrow.PrimitiveTypes.Int32, nil
	case "bigint":
		return arrow.PrimitiveTypes.Int64, nil
	case "real":
		return arrow.PrimitiveTypes.Float32, nil
	case "double":
		return arrow.PrimitiveTypes.Float64, nil
	case "date":
		return arrow.FixedWidthTypes.Date32, nil
	case "time":
		return arrow.FixedWidthTypes.Time64us, nil
	case "timestamp":
		return &arrow.TimestampType{Unit: arrow.Microsecond}, nil
	case "timestamp with time zone":
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, nil
	case "decimal":
		return t.decimalType()
	case "array":
		params := t.Params()
		if len(params) != 1 {
			return nil, fmt.Errorf("type %q: array takes one element type", t.Raw)
		}
		elem, err := parseArrowType(params[0])
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	case "map":
		params := t.Params()
		if len(params) != 2 {
			return nil, fmt.Errorf("type %q: map takes a key and a value type", t.Raw)
		}
		key, err := parseArrowType(params[0])
		if err != nil {
			return nil, err
		}
		value, err := parseArrowType(params[1])
		if err != nil {
			return nil, err
		}
		return arrow.MapOf(key, value), nil
	default:
		return nil, fmt.Errorf("unsupported column type %q", t.Raw)
	}
}

func (t TypeSignature) decimalType() (arrow.DataType, error) {
	params := t.Params()
	precision, scale := int64(38), int64(0)
	var err error
	switch len(params) {
	case 0:
	case 2:
		if scale, err = strconv.ParseInt(params[1], 10, 32); err != nil {
			return nil, fmt.Errorf("type %q: bad scale: %w", t.Raw, err)
		}
		fallthrough
	case 1:
		if precision, err = strconv.ParseInt(params[0], 10, 32); err != nil {
			return nil, fmt.Errorf("type %q: bad precision: %w", t.Raw, err)
		}
	default:
		return nil, fmt.Errorf("type %q: decimal takes precision and scale", t.Raw)
	}
	if precision < 1 || precision > 38 || scale < 0 || scale > precision {
		return nil, fmt.Errorf("type %q: precision or scale out of range", t.Raw)
	}
	return &arrow.Decimal128Type{Precision: int32(precision), Scale: int32(scale)}, nil
}

func parseArrowType(s string) (arrow.DataType, error) {
	sig, err := ParseTypeSignature(s)
	if err != nil {
		return nil, err
	}
	return sig.ArrowType()
}
