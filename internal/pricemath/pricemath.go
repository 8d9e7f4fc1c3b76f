package pricemath

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Precision is the number of significant digits kept by inexact operations
// (division, square root, negative tick powers).
const Precision int32 = 50

const guardDigits int32 = 10

var (
	one      = decimal.NewFromInt(1)
	tickBase = decimal.RequireFromString("1.0001")

	// 2^-96 == 5^96 / 10^96, so it has a finite decimal expansion.
	invQ96 = decimal.NewFromBigInt(new(big.Int).Exp(big.NewInt(5), big.NewInt(96), nil), -96)
)

// DecodeSqrtPrice converts a Q64.96 square-root price into a decimal. The
// result is exact.
func DecodeSqrtPrice(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, 0).Mul(invQ96)
}

// PriceFromSqrtX96 returns the squared decoded sqrt price, exactly.
func PriceFromSqrtX96(raw *big.Int) decimal.Decimal {
	sqrtPrice := DecodeSqrtPrice(raw)
	return sqrtPrice.Mul(sqrtPrice)
}

// TickToPrice returns 1.0001^tick.
func TickToPrice(tick int64) decimal.Decimal {
	n := tick
	if n < 0 {
		n = -n
	}

	work := Precision + guardDigits
	result := one
	base := tickBase
	for n > 0 {
		if n&1 == 1 {
			result = RoundSignificant(result.Mul(base), work)
		}
		n >>= 1
		if n > 0 {
			base = RoundSignificant(base.Mul(base), work)
		}
	}

	if tick < 0 {
		return Quo(one, result)
	}
	return RoundSignificant(result, Precision)
}

// Pow10 returns 10^exp exactly.
func Pow10(exp int32) decimal.Decimal {
	return decimal.New(1, exp)
}

// Quo divides a by b, rounded to Precision significant digits. Division by
// zero panics, like decimal.Div.
func Quo(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		panic("pricemath: division by zero")
	}
	if a.IsZero() {
		return decimal.Zero
	}
	places := Precision - (adjustedExponent(a) - adjustedExponent(b)) + 1
	if places < 0 {
		places = 0
	}
	return RoundSignificant(a.DivRound(b, places), Precision)
}

// Sqrt returns the square root of x truncated to at least Precision
// significant digits. Non-positive inputs return zero.
func Sqrt(x decimal.Decimal) decimal.Decimal {
	if x.Sign() <= 0 {
		return decimal.Zero
	}

	// Scale so that the integer radicand carries at least 2*Precision digits.
	k := Precision - adjustedExponent(x)/2 + 1
	radicand := x.Shift(2 * k).BigInt()
	root := new(big.Int).Sqrt(radicand)
	return decimal.NewFromBigInt(root, -k)
}

// RoundSignificant rounds x half away from zero to the given number of
// significant digits. Values already within that many digits are returned
// untouched.
func RoundSignificant(x decimal.Decimal, digits int32) decimal.Decimal {
	if x.IsZero() {
		return x
	}
	places := digits - adjustedExponent(x) - 1
	if places >= -x.Exponent() {
		return x
	}
	return x.Round(places)
}

// adjustedExponent is the power of ten of the most significant digit.
func adjustedExponent(x decimal.Decimal) int32 {
	return int32(x.NumDigits()) + x.Exponent() - 1
}
