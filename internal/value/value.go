// Package value models the XML-RPC wire values exchanged with the
// management API.
//
// Value is a closed tagged union: the kind tag is unexported and values can
// only be built through the constructors in this package, so a switch over
// Kind that covers the ten constants below is exhaustive.
package value

import (
	"bytes"
	"fmt"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindStr
	KindDateTime
	KindBinary
	KindArray
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "nil"
	case KindBool:
		return "boolean"
	case KindInt32:
		return "i4"
	case KindInt64:
		return "i8"
	case KindFloat64:
		return "double"
	case KindStr:
		return "string"
	case KindDateTime:
		return "dateTime.iso8601"
	case KindBinary:
		return "base64"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an immutable wire value. The zero Value is Null.
type Value struct {
	kind Kind

	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	timeVal  time.Time
	bytesVal []byte

	items  []Value
	fields []Field
}

// Field is one named member of a struct value.
type Field struct {
	Name  string
	Value Value
}

// Null returns the nil value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Int32 returns a 32-bit integer value.
func Int32(i int32) Value { return Value{kind: KindInt32, intVal: int64(i)} }

// Int64 returns a 64-bit integer value.
func Int64(i int64) Value { return Value{kind: KindInt64, intVal: i} }

// Float64 returns a double value. NaN and infinities are accepted here;
// they are only rejected when converted to JSON.
func Float64(f float64) Value { return Value{kind: KindFloat64, floatVal: f} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindStr, strVal: s} }

// DateTime returns a timestamp value.
func DateTime(t time.Time) Value { return Value{kind: KindDateTime, timeVal: t} }

// Binary returns a blob value holding a copy of b.
func Binary(b []byte) Value {
	return Value{kind: KindBinary, bytesVal: bytes.Clone(nonNil(b))}
}

// Array returns a sequence value holding a copy of items.
func Array(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindArray, items: out}
}

// Struct returns a record value. Field order is kept; a repeated name
// replaces the earlier value in its original position.
func Struct(fields ...Field) Value {
	out := make([]Field, 0, len(fields))
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		if i, ok := index[f.Name]; ok {
			out[i].Value = f.Value
			continue
		}
		index[f.Name] = len(out)
		out = append(out, f)
	}
	return Value{kind: KindStruct, fields: out}
}

// F is shorthand for building a Field.
func F(name string, v Value) Field { return Field{Name: name, Value: v} }

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the nil value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.boolVal, nil
}

// AsInt returns the payload of an Int32 or Int64 value.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt32 && v.kind != KindInt64 {
		return 0, v.mismatch(KindInt64)
	}
	return v.intVal, nil
}

// AsFloat returns the double payload.
func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat64 {
		return 0, v.mismatch(KindFloat64)
	}
	return v.floatVal, nil
}

// AsStr returns the string payload.
func (v Value) AsStr() (string, error) {
	if v.kind != KindStr {
		return "", v.mismatch(KindStr)
	}
	return v.strVal, nil
}

// AsTime returns the timestamp payload.
func (v Value) AsTime() (time.Time, error) {
	if v.kind != KindDateTime {
		return time.Time{}, v.mismatch(KindDateTime)
	}
	return v.timeVal, nil
}

// AsBytes returns a copy of the blob payload.
func (v Value) AsBytes() ([]byte, error) {
	if v.kind != KindBinary {
		return nil, v.mismatch(KindBinary)
	}
	return bytes.Clone(v.bytesVal), nil
}

// AsArray returns a copy of the sequence items.
func (v Value) AsArray() ([]Value, error) {
	if v.kind != KindArray {
		return nil, v.mismatch(KindArray)
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out, nil
}

// AsStruct returns a copy of the record fields in order.
func (v Value) AsStruct() ([]Field, error) {
	if v.kind != KindStruct {
		return nil, v.mismatch(KindStruct)
	}
	out := make([]Field, len(v.fields))
	copy(out, v.fields)
	return out, nil
}

// Len returns the element count of an array or the field count of a struct,
// and 0 for every other kind.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindStruct:
		return len(v.fields)
	default:
		return 0
	}
}

// Lookup returns the named struct field. ok is false when v is not a struct
// or has no such field.
func (v Value) Lookup(name string) (Value, bool) {
	if v.kind != KindStruct {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Equal reports deep equality. Doubles compare by value, so NaN is never
// equal to itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == o.boolVal
	case KindInt32, KindInt64:
		return v.intVal == o.intVal
	case KindFloat64:
		return v.floatVal == o.floatVal
	case KindStr:
		return v.strVal == o.strVal
	case KindDateTime:
		return v.timeVal.Equal(o.timeVal)
	case KindBinary:
		return bytes.Equal(v.bytesVal, o.bytesVal)
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindStruct:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for _, f := range v.fields {
			ov, ok := o.Lookup(f.Name)
			if !ok || !f.Value.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "nil"
	case KindBool:
		return fmt.Sprintf("%t", v.boolVal)
	case KindInt32, KindInt64:
		return fmt.Sprintf("%s(%d)", v.kind, v.intVal)
	case KindFloat64:
		return fmt.Sprintf("double(%g)", v.floatVal)
	case KindStr:
		return fmt.Sprintf("%q", v.strVal)
	case KindDateTime:
		return v.timeVal.String()
	case KindBinary:
		return fmt.Sprintf("base64(%d bytes)", len(v.bytesVal))
	case KindArray:
		return fmt.Sprintf("array(%d)", len(v.items))
	case KindStruct:
		names := make([]string, len(v.fields))
		for i, f := range v.fields {
			names[i] = f.Name
		}
		return fmt.Sprintf("struct%v", names)
	}
	return v.kind.String()
}

func (v Value) mismatch(want Kind) error {
	return fmt.Errorf("expected %s, got %s", want, v.kind)
}
