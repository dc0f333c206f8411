package evmdecode

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVenueBPoolCreatedAllowedFeeTier(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000000d")
	pool := common.HexToAddress("0x0000000000000000000000000000000000000e")

	data, err := venueBPoolCreatedArgs.Pack(nativeAddress, token, big.NewInt(10000), big.NewInt(200), pool)
	require.NoError(t, err)

	decoded, err := DecodeVenueBPoolCreated(data)
	require.NoError(t, err)

	assert.True(t, decoded.AllowedFeeTier())
	assert.True(t, decoded.IsNativePair())
	assert.Equal(t, token, decoded.Token())
	assert.Equal(t, pool, decoded.Pool)
}

func TestDecodeVenueBPoolCreatedDisallowedFeeTier(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000000d")
	pool := common.HexToAddress("0x0000000000000000000000000000000000000e")

	data, err := venueBPoolCreatedArgs.Pack(nativeAddress, token, big.NewInt(500), big.NewInt(10), pool)
	require.NoError(t, err)

	decoded, err := DecodeVenueBPoolCreated(data)
	require.NoError(t, err)
	assert.False(t, decoded.AllowedFeeTier())
}

func TestDecodeVenueBSwap(t *testing.T) {
	sender := common.HexToAddress("0x0000000000000000000000000000000000000f")
	recipient := common.HexToAddress("0x0000000000000000000000000000000000001a")

	data, err := venueBSwapArgs.Pack(
		sender,
		recipient,
		big.NewInt(1000000000000000000), // ETH entering: buy
		big.NewInt(-500000),
		new(big.Int).Lsh(big.NewInt(1), 96),
		big.NewInt(42),
		big.NewInt(-5),
	)
	require.NoError(t, err)

	decoded, err := DecodeVenueBSwap(data)
	require.NoError(t, err)

	assert.Equal(t, sender, decoded.Sender)
	assert.Equal(t, recipient, decoded.Recipient)
	assert.Equal(t, 1, decoded.Amount0.Sign())
	assert.Equal(t, int32(-5), decoded.Tick)
}
