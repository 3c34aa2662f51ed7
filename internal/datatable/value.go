package datatable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies which arm of the Value union is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindTime
	KindJSON
	KindList
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindJSON:
		return "json"
	case KindList:
		return "list"
	}
	return "unknown"
}

// Value is a single cell value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	d    decimal.Decimal
	s    string
	t    time.Time
	list []Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Decimal wraps an exact decimal, used for money values.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }

// String wraps a text value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Time wraps an already-typed date or timestamp.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// JSON wraps a raw JSON document. The caller is responsible for validity.
func JSON(raw string) Value { return Value{kind: KindJSON, s: raw} }

// List wraps an ordered list of values.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Kind reports which arm is populated.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether the value is null or a blank string. The mapping
// layer uses this for skip-if-empty and default substitution.
func (v Value) IsEmpty() bool {
	if v.kind == KindNull {
		return true
	}
	return v.kind == KindString && strings.TrimSpace(v.s) == ""
}

// BoolValue returns the boolean arm. Only meaningful when Kind is KindBool.
func (v Value) BoolValue() bool { return v.b }

// IntValue returns the integer arm.
func (v Value) IntValue() int64 { return v.i }

// FloatValue returns the float arm.
func (v Value) FloatValue() float64 { return v.f }

// DecimalValue returns the decimal arm.
func (v Value) DecimalValue() decimal.Decimal { return v.d }

// StringValue returns the string arm (also the raw document for KindJSON).
func (v Value) StringValue() string { return v.s }

// TimeValue returns the time arm.
func (v Value) TimeValue() time.Time { return v.t }

// ListValue returns the list arm.
func (v Value) ListValue() []Value { return v.list }

// Text renders the value as text. Times render as ISO-8601, lists and JSON
// as JSON documents, null as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDecimal:
		// Keep the digits implied by the decimal's own scale, so a money
		// value quantized to 2 places renders as "10.50", not "10.5".
		if exp := v.d.Exponent(); exp < 0 {
			return v.d.StringFixed(-exp)
		}
		return v.d.String()
	case KindString, KindJSON:
		return v.s
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format("2006-01-02T15:04:05")
	case KindList:
		items := make([]string, len(v.list))
		for i, item := range v.list {
			items[i] = item.Text()
		}
		out, _ := json.Marshal(items)
		return string(out)
	}
	return ""
}

// Native returns the value as a plain Go value suitable for database/sql
// parameters and JSON encoding.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		if exp := v.d.Exponent(); exp < 0 {
			return v.d.StringFixed(-exp)
		}
		return v.d.String()
	case KindString, KindJSON:
		return v.s
	case KindTime:
		return v.t
	case KindList:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.Native()
		}
		return items
	}
	return nil
}

// Equal reports deep equality of two values, including kind.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindDecimal:
		return v.d.Equal(other.d)
	case KindString, KindJSON:
		return v.s == other.s
	case KindTime:
		return v.t.Equal(other.t)
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// FromNative converts a plain Go value into a Value. Unknown types fall back
// to their string rendering.
func FromNative(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return String(x)
	case time.Time:
		return Time(x)
	case decimal.Decimal:
		return Decimal(x)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromNative(item)
		}
		return List(items...)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		if f, err := x.Float64(); err == nil {
			return Float(f)
		}
		return String(x.String())
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return String(fmt.Sprint(v))
		}
		return JSON(string(out))
	}
}
