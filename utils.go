package settlement

import (
	"math/big"

	"github.com/kaifufi/settlement-exchange-go/chain"
)

// roundingErrorScale is the 0.1% error bound as a divisor
var roundingErrorScale = big.NewInt(1000)

// GetPartialAmountFloor returns floor(numerator * target / denominator).
// denominator must be non-zero.
func GetPartialAmountFloor(numerator, denominator, target *big.Int) *big.Int {
	product := new(big.Int).Mul(numerator, target)
	return product.Quo(product, denominator)
}

// IsRoundingErrorFloor reports whether flooring numerator * target /
// denominator loses 0.1% or more of the exact result.
func IsRoundingErrorFloor(numerator, denominator, target *big.Int) bool {
	if target.Sign() == 0 || numerator.Sign() == 0 {
		return false
	}
	product := new(big.Int).Mul(numerator, target)
	remainder := new(big.Int).Rem(product, denominator)
	// remainder / product >= 1 / 1000
	return remainder.Mul(remainder, roundingErrorScale).Cmp(product) >= 0
}

// SafeGetPartialAmountFloor is GetPartialAmountFloor that fails with a
// RoundingError instead of returning an imprecise amount.
func SafeGetPartialAmountFloor(numerator, denominator, target *big.Int) (*big.Int, error) {
	if denominator.Sign() == 0 || IsRoundingErrorFloor(numerator, denominator, target) {
		return nil, &RoundingError{
			Numerator:   numerator.String(),
			Denominator: denominator.String(),
			Target:      target.String(),
		}
	}
	return GetPartialAmountFloor(numerator, denominator, target), nil
}

// CalculateFillResults computes the amounts moved when takerAssetFilledAmount
// of the order's taker asset is filled. Fees scale with the maker asset
// filled.
func CalculateFillResults(order *chain.Order, takerAssetFilledAmount *big.Int) (*chain.FillResults, error) {
	makerAssetFilledAmount, err := SafeGetPartialAmountFloor(
		takerAssetFilledAmount, order.TakerAssetAmount, order.MakerAssetAmount)
	if err != nil {
		return nil, err
	}
	makerFeePaid, err := SafeGetPartialAmountFloor(
		makerAssetFilledAmount, order.MakerAssetAmount, bigOrZero(order.MakerFee))
	if err != nil {
		return nil, err
	}
	takerFeePaid, err := SafeGetPartialAmountFloor(
		makerAssetFilledAmount, order.MakerAssetAmount, bigOrZero(order.TakerFee))
	if err != nil {
		return nil, err
	}
	return &chain.FillResults{
		MakerAssetFilledAmount: makerAssetFilledAmount,
		TakerAssetFilledAmount: new(big.Int).Set(takerAssetFilledAmount),
		MakerFeePaid:           makerFeePaid,
		TakerFeePaid:           takerFeePaid,
	}, nil
}

// minBig returns the smaller of a and b
func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
