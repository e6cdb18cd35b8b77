// Package money implements fixed-point asset arithmetic with four implied
// decimal places. All amounts are int64 smallest units; divisions truncate
// toward zero so value is never created by rounding.
package money

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// Symbol identifies a currency. All symbols share the same precision.
type Symbol string

const (
	// EOS is the settlement currency received from and paid to players.
	EOS Symbol = "EOS"
	// USD is the pricing currency used for thresholds and order prices.
	USD Symbol = "USD"
	// BLKBILL is the game utility token traded on the internal order book.
	BLKBILL Symbol = "BLKBILL"
)

// Precision is the number of implied decimal places for every symbol.
const Precision = 4

// Scale is 10^Precision.
const Scale int64 = 10_000

// Asset is an amount of a single currency in smallest units.
type Asset struct {
	Amount int64
	Symbol Symbol
}

// New builds an asset from an amount in smallest units.
func New(amount int64, symbol Symbol) Asset {
	return Asset{Amount: amount, Symbol: symbol}
}

// Zero returns a zero-amount asset of the given symbol.
func Zero(symbol Symbol) Asset {
	return Asset{Symbol: symbol}
}

// FromUnits builds an asset from whole currency units.
func FromUnits(units int64, symbol Symbol) Asset {
	return Asset{Amount: units * Scale, Symbol: symbol}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Asset) IsPositive() bool {
	return a.Amount > 0
}

// IsZero reports whether the amount is exactly zero.
func (a Asset) IsZero() bool {
	return a.Amount == 0
}

// Add returns a+b. The symbols must match; a mismatch means state
// corruption upstream and panics.
func (a Asset) Add(b Asset) Asset {
	a.mustMatch(b)
	return Asset{Amount: a.Amount + b.Amount, Symbol: a.Symbol}
}

// Sub returns a-b. The symbols must match.
func (a Asset) Sub(b Asset) Asset {
	a.mustMatch(b)
	return Asset{Amount: a.Amount - b.Amount, Symbol: a.Symbol}
}

// GTE reports a >= b. The symbols must match.
func (a Asset) GTE(b Asset) bool {
	a.mustMatch(b)
	return a.Amount >= b.Amount
}

// LT reports a < b. The symbols must match.
func (a Asset) LT(b Asset) bool {
	a.mustMatch(b)
	return a.Amount < b.Amount
}

// Percent returns the truncated p percent of the asset.
func (a Asset) Percent(p int64) Asset {
	return Asset{Amount: MulDiv(a.Amount, p, 100), Symbol: a.Symbol}
}

// Half returns the truncated half and the remainder-carrying half, in that
// order. The two always sum back to the original amount.
func (a Asset) Half() (Asset, Asset) {
	lo := a.Amount / 2
	return Asset{Amount: lo, Symbol: a.Symbol},
		Asset{Amount: a.Amount - lo, Symbol: a.Symbol}
}

// String renders the asset with full precision, e.g. "2.7600 USD".
func (a Asset) String() string {
	whole := a.Amount / Scale
	frac := a.Amount % Scale
	if frac < 0 {
		frac = -frac
	}
	var sign string
	if a.Amount < 0 && whole == 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%04d %s", sign, whole, frac, a.Symbol)
}

// ParseSymbol validates a symbol string against the known currencies.
func ParseSymbol(s string) (Symbol, error) {
	switch Symbol(strings.ToUpper(s)) {
	case EOS:
		return EOS, nil
	case USD:
		return USD, nil
	case BLKBILL:
		return BLKBILL, nil
	}
	return "", fmt.Errorf("unknown currency symbol %q", s)
}

func (a Asset) mustMatch(b Asset) {
	if a.Symbol != b.Symbol {
		panic(fmt.Sprintf("money: symbol mismatch %s vs %s", a.Symbol, b.Symbol))
	}
}

var bigPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getBig() *big.Int {
	return bigPool.Get().(*big.Int)
}

func putBig(v *big.Int) {
	v.SetInt64(0)
	bigPool.Put(v)
}

// MulDiv computes a*b/den with a 128-bit intermediate product and
// truncating division.
func MulDiv(a, b, den int64) int64 {
	num := getBig()
	num.Mul(big.NewInt(a), big.NewInt(b))
	num.Quo(num, big.NewInt(den))
	result := num.Int64()
	putBig(num)
	return result
}

// Mul computes a*b as an arbitrary-precision integer. Callers own the
// returned value; release it with ReleaseBig when done.
func Mul(a, b int64) *big.Int {
	num := getBig()
	num.Mul(big.NewInt(a), big.NewInt(b))
	return num
}

// ReleaseBig returns a big.Int obtained from Mul to the pool.
func ReleaseBig(v *big.Int) {
	putBig(v)
}
