package convert

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/value"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := encodeInto(&buf, v); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return buf.String()
}

func TestToJSON_Scalars(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   value.Value
		want string
	}{
		{"null", value.Null(), `null`},
		{"true", value.Bool(true), `true`},
		{"false", value.Bool(false), `false`},
		{"int32", value.Int32(-12), `-12.0`},
		{"int64", value.Int64(3), `3.0`},
		{"double", value.Float64(3.14), `3.14`},
		{"tiny double", value.Float64(1e-9), `1e-9`},
		{"huge double", value.Float64(1e21), `1e+21`},
		{"string", value.Str("<a&b>"), `"<a&b>"`},
		{"datetime", value.DateTime(ts), `"2024-03-01 12:30:00 +0000 UTC"`},
		{"binary", value.Binary([]byte("hi")), `"aGk="`},
		{"empty binary", value.Binary(nil), `""`},
		{"empty array", value.Array(), `[]`},
		{"empty struct", value.Struct(), `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := ToJSON(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got := marshal(t, j); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToJSON_IntegerPrecisionCeiling(t *testing.T) {
	j, err := ToJSON(value.Int64(math.MaxInt64))
	if err != nil {
		t.Fatal(err)
	}
	n, ok := j.(Number)
	if !ok {
		t.Fatalf("expected Number, got %T", j)
	}
	if float64(n) != float64(math.MaxInt64) {
		t.Errorf("expected the rounded double 2^63, got %v", float64(n))
	}
	// 2^53 + 1 is not representable as a double.
	j, _ = ToJSON(value.Int64(1<<53 + 1))
	if float64(j.(Number)) != float64(1<<53) {
		t.Errorf("expected rounding to 2^53, got %v", float64(j.(Number)))
	}
}

func TestToJSON_NonFiniteDoubles(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := ToJSON(value.Float64(f))
		if !api.IsKind(err, api.KindUnrepresentableNumber) {
			t.Errorf("ToJSON(%v): expected unrepresentable_number, got %v", f, err)
		}
	}
}

func TestToJSON_NestedNaNReportsPath(t *testing.T) {
	v := value.Struct(value.F("metrics", value.Array(value.Float64(1), value.Float64(math.NaN()))))
	_, err := ToJSON(v)
	if !api.IsKind(err, api.KindUnrepresentableNumber) {
		t.Fatalf("expected unrepresentable_number, got %v", err)
	}
	if !strings.Contains(err.Error(), "$.metrics[1]") {
		t.Errorf("expected path in error, got %q", err)
	}
}

func TestToJSON_FiniteDoublesRoundTrip(t *testing.T) {
	for _, f := range []float64{0, -0.5, 1.0 / 3, 123456789.125, math.MaxFloat64, math.SmallestNonzeroFloat64} {
		j, err := ToJSON(value.Float64(f))
		if err != nil {
			t.Fatal(err)
		}
		var back float64
		if err := json.Unmarshal([]byte(marshal(t, j)), &back); err != nil {
			t.Fatal(err)
		}
		if back != f {
			t.Errorf("round trip of %v gave %v", f, back)
		}
	}
}

func TestToJSON_BinaryRoundTrip(t *testing.T) {
	inputs := [][]byte{{}, {0}, {0xff, 0xfe, 0x00, 0x10}, []byte(strings.Repeat("xapi", 100))}
	for _, in := range inputs {
		j, err := ToJSON(value.Binary(in))
		if err != nil {
			t.Fatal(err)
		}
		got, err := base64.StdEncoding.DecodeString(j.(string))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, in) {
			t.Errorf("base64 round trip mismatch for %x", in)
		}
	}
}

func TestToJSON_StructurePreserved(t *testing.T) {
	inner := value.Struct(value.F("uuid", value.Str("x")), value.F("tags", value.Array(value.Str("a"), value.Null())))
	outer := value.Array(inner, value.Int64(7), value.Struct())

	whole, err := ToJSON(outer)
	if err != nil {
		t.Fatal(err)
	}
	items := whole.([]any)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	part, err := ToJSON(inner)
	if err != nil {
		t.Fatal(err)
	}
	if marshal(t, items[0]) != marshal(t, part) {
		t.Errorf("converting a child differs from the child inside the whole: %s vs %s",
			marshal(t, items[0]), marshal(t, part))
	}

	obj := items[0].(*Object)
	if got := obj.Keys(); len(got) != 2 || got[0] != "uuid" || got[1] != "tags" {
		t.Errorf("unexpected key order %v", got)
	}
}

func TestObject_KeepsInsertionOrder(t *testing.T) {
	obj := NewObject(0)
	obj.Set("zeta", Number(1))
	obj.Set("alpha", "a")
	obj.Set("zeta", Number(2))
	if got := marshal(t, obj); got != `{"zeta":2.0,"alpha":"a"}` {
		t.Errorf("unexpected encoding %s", got)
	}
}

func TestToJSONAll(t *testing.T) {
	out, err := ToJSONAll([]value.Value{value.Str("a"), value.Int64(2)})
	if err != nil {
		t.Fatal(err)
	}
	if got := marshal(t, out); got != `["a",2.0]` {
		t.Errorf("unexpected %s", got)
	}
	if _, err := ToJSONAll([]value.Value{value.Float64(math.Inf(1))}); err == nil {
		t.Error("expected error for infinite argument")
	}
}
