package evmdecode

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// VenueAInitialize is the decoded Initialize event for the singleton-emitter
// family: one manager contract, pools addressed by poolId.
type VenueAInitialize struct {
	PoolID       [32]byte
	Currency0    common.Address
	Currency1    common.Address
	Fee          uint32
	TickSpacing  int32
	Hooks        common.Address
	SqrtPriceX96 *big.Int
	Tick         int32
}

// IsNativePair reports whether exactly one side is the native/zero address,
// the pool acceptance rule.
func (e VenueAInitialize) IsNativePair() bool {
	zero0 := e.Currency0 == nativeAddress
	zero1 := e.Currency1 == nativeAddress
	return zero0 != zero1
}

// NativeIsToken0 reports which side is native, valid only when
// IsNativePair is true.
func (e VenueAInitialize) NativeIsToken0() bool {
	return e.Currency0 == nativeAddress
}

// Token returns the non-native side's address.
func (e VenueAInitialize) Token() common.Address {
	if e.NativeIsToken0() {
		return e.Currency1
	}
	return e.Currency0
}

// DecodeVenueAInitialize unpacks a raw Initialize log's data payload.
func DecodeVenueAInitialize(data []byte) (VenueAInitialize, error) {
	vals, err := venueAInitializeArgs.Unpack(data)
	if err != nil {
		return VenueAInitialize{}, fmt.Errorf("unpack venueA initialize: %w", err)
	}
	if len(vals) != 8 {
		return VenueAInitialize{}, fmt.Errorf("unpack venueA initialize: got %d fields, want 8", len(vals))
	}

	var out VenueAInitialize
	out.PoolID = vals[0].([32]byte)
	out.Currency0 = vals[1].(common.Address)
	out.Currency1 = vals[2].(common.Address)
	out.Fee = uint32(vals[3].(*big.Int).Uint64())
	out.TickSpacing = int32(vals[4].(*big.Int).Int64())
	out.Hooks = vals[5].(common.Address)
	out.SqrtPriceX96 = vals[6].(*big.Int)
	out.Tick = int32(vals[7].(*big.Int).Int64())
	return out, nil
}

// VenueASwap is the decoded Swap event for the singleton-emitter family.
type VenueASwap struct {
	PoolID       [32]byte
	Sender       common.Address
	Amount0      *big.Int // signed, int128
	Amount1      *big.Int // signed, int128
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
	Fee          uint32
}

// DecodeVenueASwap unpacks a raw Swap log's data payload.
func DecodeVenueASwap(data []byte) (VenueASwap, error) {
	vals, err := venueASwapArgs.Unpack(data)
	if err != nil {
		return VenueASwap{}, fmt.Errorf("unpack venueA swap: %w", err)
	}
	if len(vals) != 8 {
		return VenueASwap{}, fmt.Errorf("unpack venueA swap: got %d fields, want 8", len(vals))
	}

	var out VenueASwap
	out.PoolID = vals[0].([32]byte)
	out.Sender = vals[1].(common.Address)
	out.Amount0 = vals[2].(*big.Int)
	out.Amount1 = vals[3].(*big.Int)
	out.SqrtPriceX96 = vals[4].(*big.Int)
	out.Liquidity = vals[5].(*big.Int)
	out.Tick = int32(vals[6].(*big.Int).Int64())
	out.Fee = uint32(vals[7].(*big.Int).Uint64())
	return out, nil
}
