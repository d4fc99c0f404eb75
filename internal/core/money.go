package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var (
	hundred        = decimal.NewFromInt(100)
	defaultTaxRate = decimal.RequireFromString("0.21")
	moneyPlaces    = int32(2)
)

// maxExponent bounds the power of ten a parsed value may carry. Rounding a
// decimal rescales through a big.Int of that size, so "1e300000000" would
// stall the caller.
const maxExponent = 30

// ToDecimal coerces v into a decimal. Anything that is not a number or a
// numeric string (nil, "", "abc", a struct) yields zero; it never fails.
func ToDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil, bool:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero
		}
		return *x
	case decimal.NullDecimal:
		if !x.Valid {
			return decimal.Zero
		}
		return x.Decimal
	case json.Number:
		return parseOrZero(string(x))
	case string:
		return parseOrZero(x)
	case Number:
		return x.OrZero()
	}

	if d, ok := fromFloat(v); ok {
		return d
	}
	return decimal.Zero
}

func parseOrZero(s string) decimal.Decimal {
	if d, ok := parseBounded(s); ok {
		return d
	}
	return decimal.Zero
}

// parseBounded parses s as a decimal, rejecting exponents outside ±maxExponent.
func parseBounded(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	if e := d.Exponent(); e > maxExponent || e < -maxExponent {
		return decimal.Zero, false
	}
	return d, true
}

// fromFloat casts v to a float64 and converts it. NaN and infinities are not numbers.
func fromFloat(v any) (decimal.Decimal, bool) {
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// Round2 rounds any numeric-ish value to exactly 2 decimal places.
// Non-numeric input rounds to 0.
func Round2(v any) decimal.Decimal {
	return ToDecimal(v).Round(moneyPlaces)
}

// Number is a JSON field that may arrive as a number, a numeric string, null or
// garbage. Strict callers use Decimal; money fields use OrZero.
type Number struct {
	raw any
	set bool
}

// NewNumber wraps v as a Number, mainly for building requests in code.
func NewNumber(v any) Number {
	return Number{raw: v, set: v != nil}
}

// UnmarshalJSON keeps the decoded value as-is so parsing rules stay with the caller.
func (n *Number) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	n.raw = v
	n.set = v != nil
	return nil
}

// MarshalJSON writes the original value back out.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.raw)
}

// IsSet reports whether a non-null value was supplied.
func (n Number) IsSet() bool {
	return n.set
}

// Decimal parses the value strictly. ok is false for missing or non-numeric input
// and for values with an exponent beyond ±30.
func (n Number) Decimal() (d decimal.Decimal, ok bool) {
	switch x := n.raw.(type) {
	case json.Number:
		return parseBounded(string(x))
	case string:
		return parseBounded(x)
	case decimal.Decimal:
		return x, true
	case nil, bool, map[string]any, []any:
		return decimal.Zero, false
	}
	return fromFloat(n.raw)
}

// OrZero parses the value leniently: anything unparseable is zero.
func (n Number) OrZero() decimal.Decimal {
	if d, ok := n.Decimal(); ok {
		return d
	}
	return decimal.Zero
}
