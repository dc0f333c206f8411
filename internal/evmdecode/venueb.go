package evmdecode

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// allowedVenueBFeeTiers are the fee tiers accepted for a new pool.
var allowedVenueBFeeTiers = map[uint32]struct{}{
	3000:  {},
	10000: {},
}

// VenueBPoolCreated is the decoded PoolCreated event for the per-pool
// emitter family: a factory contract, swaps emitted by each pool.
type VenueBPoolCreated struct {
	Token0      common.Address
	Token1      common.Address
	Fee         uint32
	TickSpacing int32
	Pool        common.Address
}

// AllowedFeeTier reports whether this pool's fee tier is one that's tracked.
func (e VenueBPoolCreated) AllowedFeeTier() bool {
	_, ok := allowedVenueBFeeTiers[e.Fee]
	return ok
}

// IsNativePair reports whether exactly one side is the native/zero address.
func (e VenueBPoolCreated) IsNativePair() bool {
	zero0 := e.Token0 == nativeAddress
	zero1 := e.Token1 == nativeAddress
	return zero0 != zero1
}

// NativeIsToken0 reports which side is native, valid only when
// IsNativePair is true.
func (e VenueBPoolCreated) NativeIsToken0() bool {
	return e.Token0 == nativeAddress
}

// Token returns the non-native side's address.
func (e VenueBPoolCreated) Token() common.Address {
	if e.NativeIsToken0() {
		return e.Token1
	}
	return e.Token0
}

// DecodeVenueBPoolCreated unpacks a raw PoolCreated log's data payload.
func DecodeVenueBPoolCreated(data []byte) (VenueBPoolCreated, error) {
	vals, err := venueBPoolCreatedArgs.Unpack(data)
	if err != nil {
		return VenueBPoolCreated{}, fmt.Errorf("unpack venueB pool created: %w", err)
	}
	if len(vals) != 5 {
		return VenueBPoolCreated{}, fmt.Errorf("unpack venueB pool created: got %d fields, want 5", len(vals))
	}

	var out VenueBPoolCreated
	out.Token0 = vals[0].(common.Address)
	out.Token1 = vals[1].(common.Address)
	out.Fee = uint32(vals[2].(*big.Int).Uint64())
	out.TickSpacing = int32(vals[3].(*big.Int).Int64())
	out.Pool = vals[4].(common.Address)
	return out, nil
}

// VenueBSwap is the decoded Swap event for the per-pool emitter family.
type VenueBSwap struct {
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int // signed, int256
	Amount1      *big.Int // signed, int256
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
}

// DecodeVenueBSwap unpacks a raw Swap log's data payload.
func DecodeVenueBSwap(data []byte) (VenueBSwap, error) {
	vals, err := venueBSwapArgs.Unpack(data)
	if err != nil {
		return VenueBSwap{}, fmt.Errorf("unpack venueB swap: %w", err)
	}
	if len(vals) != 7 {
		return VenueBSwap{}, fmt.Errorf("unpack venueB swap: got %d fields, want 7", len(vals))
	}

	var out VenueBSwap
	out.Sender = vals[0].(common.Address)
	out.Recipient = vals[1].(common.Address)
	out.Amount0 = vals[2].(*big.Int)
	out.Amount1 = vals[3].(*big.Int)
	out.SqrtPriceX96 = vals[4].(*big.Int)
	out.Liquidity = vals[5].(*big.Int)
	out.Tick = int32(vals[6].(*big.Int).Int64())
	return out, nil
}

// Slot0Selector and LiquiditySelector are the 4-byte function selectors for
// a pool contract's slot0() and liquidity() read-only views, used to
// best-effort seed a pool's current price/liquidity at creation time
// (before any swap has happened).
var (
	Slot0Selector     = crypto.Keccak256([]byte("slot0()"))[:4]
	LiquiditySelector = crypto.Keccak256([]byte("liquidity()"))[:4]
)

var slot0ReturnArgs = arguments("uint160", "int24", "uint16", "uint16", "uint16", "uint8", "bool")
var liquidityReturnArgs = arguments("uint128")

// DecodeSlot0 unpacks a pool's slot0() return data down to the current
// sqrt-price; the remaining fields (tick, observation indices, unlocked
// flag) aren't needed by any caller yet.
func DecodeSlot0(data []byte) (*big.Int, error) {
	vals, err := slot0ReturnArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack slot0: %w", err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unpack slot0: empty result")
	}
	return vals[0].(*big.Int), nil
}

// DecodeLiquidity unpacks a pool's liquidity() return data.
func DecodeLiquidity(data []byte) (*big.Int, error) {
	vals, err := liquidityReturnArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack liquidity: %w", err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unpack liquidity: empty result")
	}
	return vals[0].(*big.Int), nil
}
