package series

import (
	"encoding/json"
	"math"
)

// Value is a single observation that may be absent. The zero Value is absent.
type Value struct {
	v  float64
	ok bool
}

// Some returns a present Value. Non-finite inputs are treated as absent so a
// NaN or Inf never travels through the engine as if it were measured.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// None returns an absent Value.
func None() Value {
	return Value{}
}

// Get returns the underlying number and whether it is present.
func (v Value) Get() (float64, bool) {
	return v.v, v.ok
}

// Valid reports whether the value is present.
func (v Value) Valid() bool {
	return v.ok
}

// MarshalJSON encodes absent values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = None()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Floats wraps plain numbers as present values.
func Floats(values ...float64) []Value {
	out := make([]Value, len(values))
	for i, f := range values {
		out[i] = Some(f)
	}
	return out
}

// Present returns the present numbers in order, dropping absent ones.
func Present(values []Value) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v.ok {
			out = append(out, v.v)
		}
	}
	return out
}
