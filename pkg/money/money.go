// Package money rounds and coerces monetary amounts. Every intermediate
// amount is rounded to cents before it is summed again.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places amounts are stored with.
const Places = 2

// Round2 rounds half away from zero to two decimals.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Coerce converts loosely typed numeric input into a decimal. Anything that
// is not a finite number becomes zero.
func Coerce(value any) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero
		}
		return *v
	case decimal.NullDecimal:
		if !v.Valid {
			return decimal.Zero
		}
		return v.Decimal
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero
		}
		return parsed
	default:
		return decimal.Zero
	}
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// Sum rounds each value, adds them, and rounds the result.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(Round2(v))
	}
	return Round2(total)
}

// Ratio returns min(1, part/whole), or zero when whole is not positive.
func Ratio(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	r := part.Div(whole)
	if r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Prorate rounds amount × ratio to cents.
func Prorate(amount, ratio decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(ratio))
}
