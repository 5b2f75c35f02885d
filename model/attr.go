package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the closed set of attribute value types.
type ValueKind uint8

const (
	ValueKindString ValueKind = iota
	ValueKindInt
	ValueKindFloat
	ValueKindBool
)

// Value is a tagged union over the primitive types an attribute may hold.
// The closed variant replaces the dict-shaped metadata of earlier designs
// without losing flexibility.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
}

// String constructs a string value.
func String(s string) Value { return Value{kind: ValueKindString, s: s} }

// Int constructs an integer value.
func Int(i int64) Value { return Value{kind: ValueKindInt, i: i} }

// Float constructs a float value.
func Float(f float64) Value { return Value{kind: ValueKindFloat, f: f} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: ValueKindBool, b: b} }

// Kind returns the value's discriminator.
func (v Value) Kind() ValueKind { return v.kind }

// StringValue returns the string payload; ok is false for other kinds.
func (v Value) StringValue() (string, bool) { return v.s, v.kind == ValueKindString }

// IntValue returns the integer payload; ok is false for other kinds.
func (v Value) IntValue() (int64, bool) { return v.i, v.kind == ValueKindInt }

// FloatValue returns the float payload; ok is false for other kinds.
func (v Value) FloatValue() (float64, bool) { return v.f, v.kind == ValueKindFloat }

// BoolValue returns the boolean payload; ok is false for other kinds.
func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == ValueKindBool }

// Interface returns the payload as any, for callers that format or compare.
func (v Value) Interface() any {
	switch v.kind {
	case ValueKindString:
		return v.s
	case ValueKindInt:
		return v.i
	case ValueKindFloat:
		return v.f
	case ValueKindBool:
		return v.b
	default:
		return nil
	}
}

// MarshalJSON encodes the payload as its plain JSON primitive.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON primitive into the matching kind.
// Numbers without a fractional part decode as integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch x := raw.(type) {
	case string:
		*v = String(x)
	case bool:
		*v = Bool(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := x.Float64()
		if err != nil {
			return fmt.Errorf("model: unsupported number %q", x.String())
		}
		*v = Float(f)
	default:
		return fmt.Errorf("model: unsupported attribute value %T", raw)
	}
	return nil
}

// Attributes is an ordered string-keyed bag of Values. Insertion order is
// preserved through JSON round trips so persisted records reload identically.
type Attributes struct {
	keys   []string
	values map[string]Value
}

// NewAttributes returns an empty attribute bag.
func NewAttributes() Attributes {
	return Attributes{values: make(map[string]Value)}
}

// Set stores the value under key, appending the key on first use.
func (a *Attributes) Set(key string, v Value) {
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = v
}

// Get returns the value for key.
func (a Attributes) Get(key string) (Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of attributes.
func (a Attributes) Len() int { return len(a.keys) }

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	if a.values == nil {
		return Attributes{}
	}
	out := Attributes{
		keys:   make([]string, len(a.keys)),
		values: make(map[string]Value, len(a.values)),
	}
	copy(out.keys, a.keys)
	for k, v := range a.values {
		out.values[k] = v
	}
	return out
}

// MarshalJSON encodes the bag as a JSON object in insertion order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("model: attributes must be a JSON object")
	}

	// Lazy allocation via Set keeps an empty object deep-equal to the zero
	// value, so records round-trip through JSON unchanged.
	*a = Attributes{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("model: invalid attribute key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return err
		}
		a.Set(key, v)
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
