package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind enumerates the types a webhook field value can coerce to
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueMap
)

// Value is a tagged variant holding one coerced webhook field value.
// The kind is decided once at parse time; there is no type inference
// after construction.
type Value struct {
	Kind  ValueKind
	Str   string
	Bool  bool
	Int   int64
	Float float64
	Map   map[string]any
}

// StringValue wraps a plain string
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// IntValue wraps an integer
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// FloatValue wraps a float
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// MapValue wraps a decoded structure
func MapValue(m map[string]any) Value { return Value{Kind: ValueMap, Map: m} }

// Interface returns the underlying dynamic value
func (v Value) Interface() any {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueInt:
		return v.Int
	case ValueFloat:
		return v.Float
	case ValueMap:
		return v.Map
	default:
		return v.Str
	}
}

// String renders the value for display
func (v Value) String() string {
	switch v.Kind {
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case ValueMap:
		data, err := json.Marshal(v.Map)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return v.Str
	}
}

// MarshalJSON emits the underlying value, not the variant envelope
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON rebuilds the variant from a plain JSON value
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case bool:
		*v = BoolValue(t)
	case json.Number:
		if !strings.Contains(t.String(), ".") {
			if i, err := t.Int64(); err == nil {
				*v = IntValue(i)
				return nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return err
		}
		*v = FloatValue(f)
	case string:
		*v = StringValue(t)
	case map[string]any:
		*v = MapValue(t)
	case nil:
		*v = StringValue("")
	default:
		return json.Unmarshal(data, &v.Str)
	}
	return nil
}
