package connector

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-openapi/wire"
)

func TestEncodePredicateSingleValue(t *testing.T) {
	name := varcharColumn(users, "name")

	tests := []struct {
		name        string
		domain      Domain
		nullAllowed bool
	}{
		{"single value", SingleValue([]byte("alice")), false},
		{"single value or null", DiscreteValues(true, []byte("alice")), true},
		{"closed point range", RangeValues(false, Range{
			Low:  Bound{Value: []byte("alice"), Inclusive: true},
			High: Bound{Value: []byte("alice"), Inclusive: true},
		}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td, skipped := EncodePredicate(map[ColumnHandle]Domain{name: tt.domain})
			if len(skipped) != 0 {
				t.Fatalf("unexpected skipped columns %v", skipped)
			}
			d, ok := td.Domains["name"]
			if !ok {
				t.Fatalf("domain for name missing: %+v", td)
			}
			if d.NullAllowed != tt.nullAllowed {
				t.Errorf("nullAllowed = %v, want %v", d.NullAllowed, tt.nullAllowed)
			}
			if d.ValueSet.Equatable == nil || len(d.ValueSet.Equatable.Values) != 1 {
				t.Fatalf("unexpected value set %+v", d.ValueSet)
			}
		})
	}
}

func TestEncodePredicateWireShape(t *testing.T) {
	td, _ := EncodePredicate(map[ColumnHandle]Domain{
		varcharColumn(users, "name"): SingleValue([]byte("abc")),
	})
	raw, err := json.Marshal(td)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"domains":{"name":{"nullAllowed":false,"valueSet":{"equatable":{"values":[{"varcharData":{"nulls":[false],"sizes":[3],"bytes":"YWJj"}}]}}}}}`
	if string(raw) != want {
		t.Errorf("wire shape:\n got %s\nwant %s", raw, want)
	}
}

func TestEncodePredicateRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	value := []byte("héllo, wörld")
	td, _ := EncodePredicate(map[ColumnHandle]Domain{
		varcharColumn(users, "name"): SingleValue(value),
	})

	block := td.Domains["name"].ValueSet.Equatable.Values[0]
	arr, err := wire.DecodeVarchar(mem, block.VarcharData)
	if err != nil {
		t.Fatalf("DecodeVarchar failed: %v", err)
	}
	defer arr.Release()

	if arr.Len() != 1 || arr.IsNull(0) || arr.Value(0) != string(value) {
		t.Errorf("round trip produced %v", arr)
	}
}

func TestEncodePredicateSkips(t *testing.T) {
	domains := map[ColumnHandle]Domain{
		typedColumn(users, "age", "bigint"): SingleValue([]byte("42")),
		varcharColumn(users, "a_many"):       DiscreteValues(false, []byte("x"), []byte("y")),
		varcharColumn(users, "b_range"): RangeValues(false, Range{
			Low:  Bound{Value: []byte("a"), Inclusive: true},
			High: Bound{Unbounded: true},
		}),
		varcharColumn(users, "c_only_null"): OnlyNull(),
		varcharColumn(users, "d_none"):      NoValues(),
		varcharColumn(users, "e_all"):       AllValues(),
		varcharColumn(users, "f_not_null"):  NotNull(),
	}

	td, skipped := EncodePredicate(domains)
	if len(td.Domains) != 0 {
		t.Errorf("nothing should be encoded, got %+v", td.Domains)
	}

	want := []SkippedColumn{
		{"a_many", SkipUnsupportedShape},
		{"age", SkipUnsupportedType},
		{"b_range", SkipUnsupportedShape},
		{"c_only_null", SkipUnsupportedShape},
		{"d_none", SkipUnsupportedShape},
		{"f_not_null", SkipUnsupportedShape},
	}
	if len(skipped) != len(want) {
		t.Fatalf("skipped = %v, want %v", skipped, want)
	}
	for i := range want {
		if skipped[i] != want[i] {
			t.Errorf("skipped[%d] = %v, want %v", i, skipped[i], want[i])
		}
	}
}

func TestEncodePredicateEmpty(t *testing.T) {
	td, skipped := EncodePredicate(nil)
	if td.Domains == nil || len(td.Domains) != 0 || skipped != nil {
		t.Errorf("unexpected result %+v, %v", td, skipped)
	}
}

func TestDescribePredicateHidesValues(t *testing.T) {
	got := DescribePredicate(map[ColumnHandle]Domain{
		varcharColumn(users, "name"): SingleValue([]byte("secret")),
		varcharColumn(users, "city"): DiscreteValues(true, []byte("x"), []byte("y")),
	})
	if strings.Contains(got, "secret") {
		t.Errorf("rendering leaks a value: %s", got)
	}
	want := "{city: 2 values or null, name: single value}"
	if got != want {
		t.Errorf("DescribePredicate = %q, want %q", got, want)
	}
}
