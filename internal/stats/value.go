package stats

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Value is a rate statistic that may be undefined. The zero value is
// Undefined. Any arithmetic with an undefined operand is undefined.
type Value struct {
	v  float64
	ok bool
}

// Undefined marks a statistic whose denominator was zero.
var Undefined = Value{}

// Of wraps a defined float.
func Of(f float64) Value {
	return Value{v: f, ok: true}
}

// Ratio divides num by den, undefined when den is exactly zero.
func Ratio(num, den float64) Value {
	if den == 0 {
		return Undefined
	}
	return Of(num / den)
}

// Defined reports whether the value carries a number.
func (v Value) Defined() bool {
	return v.ok
}

// Float returns the number and whether it is defined.
func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

// Add sums two values.
func (v Value) Add(o Value) Value {
	if !v.ok || !o.ok {
		return Undefined
	}
	return Of(v.v + o.v)
}

// Scale multiplies the value by k.
func (v Value) Scale(k float64) Value {
	if !v.ok {
		return Undefined
	}
	return Of(v.v * k)
}

func (v Value) String() string {
	if !v.ok {
		return "undefined"
	}
	return strconv.FormatFloat(v.v, 'f', 3, 64)
}

// MarshalJSON encodes undefined as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Of(f)
	return nil
}
