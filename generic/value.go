/*
value.go - Defined/undefined decimal quantity

PURPOSE:
  Every metric in the engine is a Value: a decimal.Decimal that may be
  undefined. Undefined is how the engine represents a division by a
  non-positive denominator, a missing cell, or anything derived from one.
  It is an explicit state, not a float NaN, so equality and summation
  behave the way we say they do rather than the way IEEE-754 does.

SEMANTICS:
  Arithmetic   Add/Sub/Mul: undefined if either operand is undefined
  Division     Div: undefined if the divisor is undefined or zero
               DivPositive: undefined unless the divisor is > 0
  Equality     Equal: two undefined values are equal; a defined and an
               undefined value never are
  Summation    Sum: skips undefined values; the sum of nothing is zero
  Encoding     JSON null / empty CSV cell when undefined

EXAMPLE:
  ap := generic.NewValue(8000)
  capacity := generic.NewValue(10).Mul(generic.NewValue(800))
  util := ap.DivPositive(capacity) // 1
  bad := ap.DivPositive(generic.Zero) // Undefined

SEE ALSO:
  - types.go: MetricSet, the record every component passes around
  - capacity/unit.go: the formula chain built on these operations
*/
package generic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VALUE - Decimal with an explicit undefined state
// =============================================================================

// Value is a decimal quantity that may be undefined.
// The zero Value is undefined.
type Value struct {
	d       decimal.Decimal
	defined bool
}

var (
	// Undefined is the sentinel for "no value".
	Undefined = Value{}

	// Zero is a defined zero.
	Zero = Defined(decimal.Zero)

	// One is a defined one.
	One = Defined(decimal.NewFromInt(1))
)

// Defined wraps a decimal as a defined Value.
func Defined(d decimal.Decimal) Value {
	return Value{d: d, defined: true}
}

// NewValue converts a float. NaN and ±Inf become Undefined.
func NewValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Undefined
	}
	return Defined(decimal.NewFromFloat(f))
}

// NewValueFromInt converts an integer.
func NewValueFromInt(i int64) Value {
	return Defined(decimal.NewFromInt(i))
}

// ParseValue parses a cell. Blank cells are Undefined with no error;
// anything that does not parse as a number is Undefined with an error.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return Undefined, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Undefined, fmt.Errorf("not a number: %q", s)
	}
	return Defined(d), nil
}

// MustValue parses s and returns Undefined on failure.
// Intended for constants and tests.
func MustValue(s string) Value {
	v, err := ParseValue(s)
	if err != nil {
		return Undefined
	}
	return v
}

// IsDefined reports whether v holds a number.
func (v Value) IsDefined() bool { return v.defined }

// Float64 returns the value as a float, or NaN when undefined.
func (v Value) Float64() float64 {
	if !v.defined {
		return math.NaN()
	}
	f, _ := v.d.Float64()
	return f
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func (v Value) Add(o Value) Value {
	if !v.defined || !o.defined {
		return Undefined
	}
	return Defined(v.d.Add(o.d))
}

func (v Value) Sub(o Value) Value {
	if !v.defined || !o.defined {
		return Undefined
	}
	return Defined(v.d.Sub(o.d))
}

func (v Value) Mul(o Value) Value {
	if !v.defined || !o.defined {
		return Undefined
	}
	return Defined(v.d.Mul(o.d))
}

// Div divides v by o. Undefined if o is undefined or zero.
func (v Value) Div(o Value) Value {
	if !v.defined || !o.defined || o.d.IsZero() {
		return Undefined
	}
	return Defined(v.d.Div(o.d))
}

// DivPositive divides v by o only when o > 0.
// This is the policy for every denominator in the engine.
func (v Value) DivPositive(o Value) Value {
	if !o.IsPositive() {
		return Undefined
	}
	return v.Div(o)
}

// Round rounds a defined value to places decimal places.
func (v Value) Round(places int32) Value {
	if !v.defined {
		return Undefined
	}
	return Defined(v.d.Round(places))
}

// =============================================================================
// COMPARISON
// =============================================================================

// IsPositive is true only for defined values > 0.
func (v Value) IsPositive() bool { return v.defined && v.d.IsPositive() }

// IsZero is true only for a defined zero.
func (v Value) IsZero() bool { return v.defined && v.d.IsZero() }

// GreaterThanOrEqual compares a defined value to o. False if either is undefined.
func (v Value) GreaterThanOrEqual(o Value) bool {
	return v.defined && o.defined && v.d.GreaterThanOrEqual(o.d)
}

// LessThan compares a defined value to o. False if either is undefined.
func (v Value) LessThan(o Value) bool {
	return v.defined && o.defined && v.d.LessThan(o.d)
}

// Equal compares numerically. Undefined equals undefined.
func (v Value) Equal(o Value) bool {
	if v.defined != o.defined {
		return false
	}
	if !v.defined {
		return true
	}
	return v.d.Equal(o.d)
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Sum adds the defined values and skips the rest.
// Sum of no defined values is Zero.
func Sum(values ...Value) Value {
	total := decimal.Zero
	for _, v := range values {
		if v.defined {
			total = total.Add(v.d)
		}
	}
	return Defined(total)
}

// Mean is the arithmetic mean of the defined values, Undefined if there are none.
// The rollup never uses it; it exists so callers can show the contrast.
func Mean(values ...Value) Value {
	n := 0
	for _, v := range values {
		if v.defined {
			n++
		}
	}
	if n == 0 {
		return Undefined
	}
	return Sum(values...).Div(NewValueFromInt(int64(n)))
}

// =============================================================================
// ENCODING
// =============================================================================

// String returns the decimal text, or "" when undefined.
func (v Value) String() string {
	if !v.defined {
		return ""
	}
	return v.d.String()
}

// StringFixed formats with a fixed number of places, "" when undefined.
func (v Value) StringFixed(places int32) string {
	if !v.defined {
		return ""
	}
	return v.d.StringFixed(places)
}

// MarshalJSON encodes a number, or null when undefined.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.defined {
		return []byte("null"), nil
	}
	return []byte(v.d.String()), nil
}

// UnmarshalJSON accepts null, a number, or a numeric string.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Undefined
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseValue(s)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid value %s: %w", data, err)
	}
	*v = Defined(d)
	return nil
}
