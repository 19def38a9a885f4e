// Package convert maps wire values onto JSON.
//
// The mapping is structural: arrays stay arrays, structs become objects with
// their field order kept, and scalars map onto the closest JSON type. Two
// conversions lose information on purpose. Integers become doubles, so
// magnitudes above 2^53 are rounded. Timestamps become Go's default
// time.Time rendering, which is not RFC 3339.
package convert

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/value"
)

// ToJSON converts v into a tree of nil, bool, Number, string, []any and
// *Object. It fails only when a double is NaN or infinite.
func ToJSON(v value.Value) (any, error) {
	return toJSON(v, "$")
}

func toJSON(v value.Value, path string) (any, error) {
	switch v.Kind() {
	case value.KindNull:
		return nil, nil

	case value.KindBool:
		b, _ := v.AsBool()
		return b, nil

	case value.KindInt32, value.KindInt64:
		i, _ := v.AsInt()
		return Number(float64(i)), nil

	case value.KindFloat64:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, api.Errorf(api.KindUnrepresentableNumber, "convert",
				"%s: %v has no JSON representation", path, f)
		}
		return Number(f), nil

	case value.KindStr:
		s, _ := v.AsStr()
		return s, nil

	case value.KindDateTime:
		t, _ := v.AsTime()
		return t.String(), nil

	case value.KindBinary:
		b, _ := v.AsBytes()
		return base64.StdEncoding.EncodeToString(b), nil

	case value.KindArray:
		elems, _ := v.AsArray()
		items := make([]any, 0, len(elems))
		for i, elem := range elems {
			j, err := toJSON(elem, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			items = append(items, j)
		}
		return items, nil

	case value.KindStruct:
		fields, _ := v.AsStruct()
		obj := NewObject(len(fields))
		for _, f := range fields {
			j, err := toJSON(f.Value, path+"."+f.Name)
			if err != nil {
				return nil, err
			}
			obj.Set(f.Name, j)
		}
		return obj, nil
	}
	return nil, fmt.Errorf("convert %s: unsupported value kind %s", path, v.Kind())
}

// ToJSONAll converts each value in order.
func ToJSONAll(vs []value.Value) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		j, err := toJSON(v, "$["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		out[i] = j
	}
	return out, nil
}
