package money

import (
	"fmt"
	"strconv"
)

// Common price scales seen across venues.
const (
	ScaleEquityCents Scale = 100
	ScaleCrypto8dp   Scale = 100_000_000
	ScaleCents       Scale = 100 // the normalized unit used for cross-symbol P&L aggregation
)

// Scale is the integer divisor D such that a stored value P represents P/D
// in quote-currency units. All price/quantity fields on one record share a
// single Scale.
type Scale int64

// Scaled is a fixed-point integer value carried alongside a Scale. It is
// intentionally a bare int64 alias rather than a struct pairing value+scale
// together: the scale is a property of the *record* (Order, Position, Quote,
// Trade), not of each individual field, per spec.
type Scaled int64

// ToCents converts a Scaled value at the given native scale into the
// cents-normalized unit (scale 100) used for cross-symbol P&L aggregation.
// Integer arithmetic only: v*100/scale. Callers that need to sum many
// symbols' P&L at once should convert each one individually and sum the
// cents values, never sum raw Scaled values across different scales.
func (v Scaled) ToCents(scale Scale) int64 {
	if scale == 0 {
		return 0
	}
	return int64(v) * int64(ScaleCents) / int64(scale)
}

// Float64 returns the value as a float for display/logging only. Never use
// this for accounting math.
func (v Scaled) Float64(scale Scale) float64 {
	if scale == 0 {
		return 0
	}
	return float64(v) / float64(scale)
}

// DecimalString renders v/scale as a decimal string at the scale's implied
// precision, the wire format venues expect (spec.md §6: "serialization to
// venues is decimal-string at the scale's implied precision").
func (v Scaled) DecimalString(scale Scale) string {
	if scale <= 0 {
		return strconv.FormatInt(int64(v), 10)
	}
	neg := v < 0
	uv := int64(v)
	if neg {
		uv = -uv
	}
	whole := uv / int64(scale)
	frac := uv % int64(scale)
	digits := decimalDigits(int64(scale))
	sign := ""
	if neg {
		sign = "-"
	}
	if digits == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	return fmt.Sprintf("%s%d.%0*d", sign, whole, digits, frac)
}

// decimalDigits returns log10(scale) for powers of ten; scales that are not
// pure powers of ten (rare, but not disallowed) fall back to the number of
// digits needed to print the full fractional remainder.
func decimalDigits(scale int64) int {
	digits := 0
	for scale > 1 {
		scale /= 10
		digits++
	}
	return digits
}

// Mid computes the integer-division midpoint of bid/ask, per spec.md §3:
// "mid = (bid+ask)/2 using integer division".
func Mid(bid, ask Scaled) Scaled {
	return (bid + ask) / 2
}

// Notional computes price*quantity/scale, the common "value in quote
// currency" calculation used for order notional, trade notional, and
// position market value.
func Notional(price, quantity Scaled, scale Scale) int64 {
	if scale == 0 {
		return 0
	}
	return int64(price) * int64(quantity) / int64(scale)
}

// AbsScaled returns the absolute value of a Scaled quantity.
func AbsScaled(v Scaled) Scaled {
	if v < 0 {
		return -v
	}
	return v
}

// SignScaled returns -1, 0, or 1.
func SignScaled(v Scaled) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
