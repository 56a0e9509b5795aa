package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindString
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	default:
		return "null"
	}
}

// Value is a scalar record value. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

func Null() Value { return Value{} }
func Int(v int64) Value { return Value{kind: KindInteger, i: v} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func String(v string) Value { return Value{kind: KindString, s: v} }
func Bool(v bool) Value { return Value{kind: KindBoolean, b: v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) AsInt() int64 { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) AsString() string { return v.s }
func (v Value) AsBool() bool { return v.b }

// Equal compares tags first, then payloads.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindBoolean:
		return v.b == o.b
	default:
		return true
	}
}

// Native returns the Go value used when a Value is handed to expr or encoded.
func (v Value) Native() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBoolean:
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// canonical is an unambiguous encoding used for multiset matching.
func (v Value) canonical() string {
	return v.kind.String() + ":" + v.String()
}

// MarshalJSON keeps a float recognizable as one: 2.0 is written as "2.0",
// never "2", so decoding it again yields a float.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat {
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(v.String())
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	}
	return json.Marshal(v.Native())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := decodeJSON(b, &raw); err != nil {
		return err
	}
	out, err := scalar(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// scalar converts a decoded JSON scalar (decoded with UseNumber) into a Value.
func scalar(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return number(t)
	case float64:
		return Float(t), nil
	case int64:
		return Int(t), nil
	case int:
		return Int(int64(t)), nil
	default:
		return Null(), fmt.Errorf("unsupported scalar %T", raw)
	}
}

func number(n json.Number) (Value, error) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return Null(), fmt.Errorf("invalid number %q: %w", n, err)
	}
	return Float(f), nil
}
