package units

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// All token amounts are carried as *big.Int in base-18 minor units
// (1.0 token = 1e18). Fee rates share the same base: a rate of 1e18
// means 100%.

const Decimals = 18

var (
	base    = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
	oneUnit = new(big.Int).Set(base)
)

// One returns the fixed per-order consumption amount (1.0 token).
// A fresh copy is returned; big.Int values are mutable.
func One() *big.Int {
	return new(big.Int).Set(oneUnit)
}

// RateBase returns the denominator for fee-rate math (1e18 == 100%).
func RateBase() *big.Int {
	return new(big.Int).Set(base)
}

// ToBase18 converts a human-readable decimal string (e.g. "0.001")
// into base-18 minor units. Only used at the boundary (config, CLI).
// Internal logic works on *big.Int directly.
func ToBase18(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Shift(Decimals).BigInt(), nil
}

// MustToBase18 is ToBase18 for literals known to be valid; it panics
// on a malformed string.
func MustToBase18(s string) *big.Int {
	v, err := ToBase18(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromBase18 renders base-18 minor units as a decimal string.
func FromBase18(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -Decimals).String()
}

// ApplyRate returns amount * rate / RateBase, truncating toward zero.
// A nil or zero rate yields zero.
func ApplyRate(amount, rate *big.Int) *big.Int {
	if amount == nil || rate == nil || rate.Sign() == 0 {
		return big.NewInt(0)
	}
	cut := new(big.Int).Mul(amount, rate)
	return cut.Div(cut, base)
}
