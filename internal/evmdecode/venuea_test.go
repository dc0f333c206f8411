package evmdecode

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVenueAInitialize(t *testing.T) {
	var poolID [32]byte
	copy(poolID[:], []byte("pool-id-32-bytes-padded-out....."))
	token := common.HexToAddress("0x00000000000000000000000000000000000001")
	hooks := common.HexToAddress("0x0000000000000000000000000000000000000a")

	data, err := venueAInitializeArgs.Pack(
		poolID,
		nativeAddress,
		token,
		big.NewInt(3000),
		big.NewInt(60),
		hooks,
		new(big.Int).Lsh(big.NewInt(1), 96),
		big.NewInt(100),
	)
	require.NoError(t, err)

	decoded, err := DecodeVenueAInitialize(data)
	require.NoError(t, err)

	assert.Equal(t, poolID, decoded.PoolID)
	assert.Equal(t, token, decoded.Currency1)
	assert.True(t, decoded.IsNativePair())
	assert.True(t, decoded.NativeIsToken0())
	assert.Equal(t, token, decoded.Token())
	assert.Equal(t, uint32(3000), decoded.Fee)
	assert.Equal(t, int32(60), decoded.TickSpacing)
}

func TestDecodeVenueAInitializeRejectsNonNativePair(t *testing.T) {
	var poolID [32]byte
	tokenA := common.HexToAddress("0x0000000000000000000000000000000000000a")
	tokenB := common.HexToAddress("0x0000000000000000000000000000000000000b")

	data, err := venueAInitializeArgs.Pack(
		poolID, tokenA, tokenB, big.NewInt(3000), big.NewInt(60),
		nativeAddress, big.NewInt(1), big.NewInt(0),
	)
	require.NoError(t, err)

	decoded, err := DecodeVenueAInitialize(data)
	require.NoError(t, err)
	assert.False(t, decoded.IsNativePair())
}

func TestDecodeVenueASwapSignedAmounts(t *testing.T) {
	var poolID [32]byte
	sender := common.HexToAddress("0x0000000000000000000000000000000000000c")

	data, err := venueASwapArgs.Pack(
		poolID,
		sender,
		big.NewInt(-1000000000000000000), // ETH leaving: sell
		big.NewInt(500000),
		new(big.Int).Lsh(big.NewInt(1), 96),
		big.NewInt(123456),
		big.NewInt(10),
		big.NewInt(3000),
	)
	require.NoError(t, err)

	decoded, err := DecodeVenueASwap(data)
	require.NoError(t, err)

	assert.Equal(t, sender, decoded.Sender)
	assert.Equal(t, -1, decoded.Amount0.Sign())
	assert.Equal(t, int32(10), decoded.Tick)
	assert.Equal(t, uint32(3000), decoded.Fee)
}
