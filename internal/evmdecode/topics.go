// Package evmdecode unpacks the ABI-encoded log data for the two EVM pool
// families into plain Go structs, leaving everything else (subscription,
// store mutation, direction/price logic) to the listeners.
package evmdecode

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Topic hashes are the keccak256 of each event's canonical signature
// string.
var (
	TopicVenueBPoolCreated = crypto.Keccak256Hash([]byte("PoolCreated(address,address,uint24,int24,address)"))
	TopicVenueBSwap        = crypto.Keccak256Hash([]byte("Swap(address,address,int256,int256,uint160,uint128,int24)"))
	TopicVenueAInitialize  = crypto.Keccak256Hash([]byte("Initialize(bytes32,address,address,uint24,int24,address,uint160,int24)"))
	TopicVenueASwap        = crypto.Keccak256Hash([]byte("Swap(bytes32,address,int128,int128,uint160,uint128,int24,uint24)"))
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

func arguments(types ...string) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		args[i] = abi.Argument{Type: mustType(t)}
	}
	return args
}

var (
	venueAInitializeArgs = arguments("bytes32", "address", "address", "uint24", "int24", "address", "uint160", "int24")
	venueASwapArgs       = arguments("bytes32", "address", "int128", "int128", "uint160", "uint128", "int24", "uint24")
	venueBPoolCreatedArgs = arguments("address", "address", "uint24", "int24", "address")
	venueBSwapArgs        = arguments("address", "address", "int256", "int256", "uint160", "uint128", "int24")
)

// nativeAddress is the sentinel go-ethereum/Uniswap-style convention for
// "this currency is the chain's native asset, not an ERC-20."
var nativeAddress = common.Address{}
