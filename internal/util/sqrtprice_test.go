package util

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickToSqrtPriceX96Negative(t *testing.T) {
	sqrtPrice := TickToSqrtPriceX96(-249428)
	expected, ok := new(big.Int).SetString("304011615425126403287043", 10)
	assert.True(t, ok)

	diff := new(big.Int).Sub(sqrtPrice, expected)
	diff.Abs(diff)
	tolerance, _ := new(big.Int).SetString("1000000000", 10)
	assert.True(t, diff.Cmp(tolerance) < 0, "sqrt price %s should be within tolerance of %s", sqrtPrice, expected)
}

func TestSqrtPriceToPriceRoundTrips(t *testing.T) {
	sqrtPrice := TickToSqrtPriceX96(0)
	price := SqrtPriceToPrice(sqrtPrice)
	f, _ := price.Float64()
	assert.InDelta(t, 1.0, f, 0.0001)
}

func TestLiquidityUSDZeroOnMissingInputs(t *testing.T) {
	assert.Equal(t, 0.0, LiquidityUSD(nil, big.NewInt(1), 100))
	assert.Equal(t, 0.0, LiquidityUSD(big.NewInt(1), nil, 100))
	assert.Equal(t, 0.0, LiquidityUSD(big.NewInt(1), big.NewInt(0), 100))
}

func TestLiquidityUSDPositive(t *testing.T) {
	sqrtPrice := TickToSqrtPriceX96(0) // price ratio 1:1
	liquidity := new(big.Int).Mul(big.NewInt(1e9), big.NewInt(1e9))
	usd := LiquidityUSD(liquidity, sqrtPrice, 3000)
	assert.Greater(t, usd, 0.0)
}
