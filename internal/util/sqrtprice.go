// Package util carries the fixed-point sqrt-price/tick math shared by the
// EVM venue decoders (TickToSqrtPriceX96, SqrtPriceToPrice).
package util

import "math/big"

// q96 is 2^96, the fixed-point denominator of the Q64.96 sqrt-price
// representation used by both EVM venues.
var q96 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

// tickBase is 1.0001, the per-tick price ratio of concentrated-liquidity
// AMMs, kept as a decimal string so it parses exactly rather than through
// a float64 approximation.
const tickBase = "1.0001"

// TickToSqrtPriceX96 converts a tick index to its Q64.96 sqrt-price
// representation: sqrtP = sqrt(1.0001^tick) * 2^96.
func TickToSqrtPriceX96(tick int) *big.Int {
	price := new(big.Float).SetPrec(200).SetFloat64(1)
	base, _ := new(big.Float).SetPrec(200).SetString(tickBase)
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}
	for i := 0; i < absTick; i++ {
		price.Mul(price, base)
	}
	if tick < 0 {
		one := new(big.Float).SetPrec(200).SetFloat64(1)
		price.Quo(one, price)
	}

	sqrtPrice := new(big.Float).SetPrec(200).Sqrt(price)
	sqrtPrice.Mul(sqrtPrice, q96)

	out, _ := sqrtPrice.Int(nil)
	return out
}

// SqrtPriceToPrice converts a Q64.96 sqrt-price back to a raw price ratio
// (token1 per token0, before decimal adjustment): price = (sqrtP / 2^96)^2.
func SqrtPriceToPrice(sqrtPriceX96 *big.Int) *big.Float {
	normalized := new(big.Float).SetPrec(200).SetInt(sqrtPriceX96)
	normalized.Quo(normalized, q96)
	normalized.Mul(normalized, normalized)
	return normalized
}

// LiquidityUSD estimates on-chain USD liquidity from the invariant
// coefficient L and the current sqrt-price:
// "2*L/sqrt(P) * price_of_native". sqrtPriceX96 and liquidity are raw
// on-chain quantities; nativePriceUSD is the oracle's current value.
func LiquidityUSD(liquidity *big.Int, sqrtPriceX96 *big.Int, nativePriceUSD float64) float64 {
	if liquidity == nil || sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return 0
	}

	l := new(big.Float).SetPrec(200).SetInt(liquidity)
	sqrtP := new(big.Float).SetPrec(200).SetInt(sqrtPriceX96)
	sqrtP.Quo(sqrtP, q96)

	twoL := new(big.Float).SetPrec(200).Mul(l, big.NewFloat(2))
	nativeWei := new(big.Float).Quo(twoL, sqrtP)
	nativeUnits := new(big.Float).Quo(nativeWei, big.NewFloat(1e18))

	price := new(big.Float).SetPrec(200).SetFloat64(nativePriceUSD)
	usd := new(big.Float).Mul(nativeUnits, price)

	f, _ := usd.Float64()
	return f
}
