package token

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest supported token precision
const MaxDecimals = 18

// FormatAmount renders a base-unit amount in display units, e.g. 1500000
// with 6 decimals becomes "1.5".
func FormatAmount(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ParseAmount converts a display amount into base units. Amounts with more
// precision than decimals are rejected.
func ParseAmount(amount string, decimals int32) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("decimals must be between 0 and %d, got: %d", MaxDecimals, decimals)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}
	return shifted.BigInt(), nil
}
