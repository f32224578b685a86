/*
SPDX-License-Identifier: Apache-2.0
*/

package escrow

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// NanoPerCoin is the number of nano units in one coin
const NanoPerCoin = 1_000_000_000

const coinDecimals = 9

// Coins is an amount in nano units
type Coins uint64

// ParseCoins converts a decimal coin string such as "2.25" to nano units
func ParseCoins(s string) (Coins, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid coin amount %q: %v", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("coin amount %q is negative", s)
	}
	nano := d.Shift(coinDecimals)
	if !nano.Equal(nano.Truncate(0)) {
		return 0, fmt.Errorf("coin amount %q has more than %d decimals", s, coinDecimals)
	}
	n := nano.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("coin amount %q overflows", s)
	}
	return Coins(n.Uint64()), nil
}

// MustParseCoins is ParseCoins for constants, it panics on malformed input
func MustParseCoins(s string) Coins {
	c, err := ParseCoins(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the amount as a decimal coin string
func (c Coins) String() string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(c)), -coinDecimals).String()
}

// MulDiv returns amount*factor/base truncated toward zero, or 0 when base is 0
func MulDiv(amount Coins, factor, base uint64) Coins {
	if base == 0 {
		return 0
	}
	product := new(big.Int).Mul(new(big.Int).SetUint64(uint64(amount)), new(big.Int).SetUint64(factor))
	product.Quo(product, new(big.Int).SetUint64(base))
	if !product.IsUint64() {
		// factor > base, capped
		return Coins(^uint64(0))
	}
	return Coins(product.Uint64())
}

// Sub subtracts and clamps at zero
func (c Coins) Sub(other Coins) Coins {
	if other >= c {
		return 0
	}
	return c - other
}

// Add sums two amounts. ok is false when the sum does not fit, the result is then capped.
func (c Coins) Add(other Coins) (sum Coins, ok bool) {
	r, carry := bits.Add64(uint64(c), uint64(other), 0)
	if carry != 0 {
		return Coins(^uint64(0)), false
	}
	return Coins(r), true
}

// Mul multiplies by n. ok is false on overflow, the result is then capped.
func (c Coins) Mul(n uint64) (product Coins, ok bool) {
	hi, lo := bits.Mul64(uint64(c), n)
	if hi != 0 {
		return Coins(^uint64(0)), false
	}
	return Coins(lo), true
}
