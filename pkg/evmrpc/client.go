// Package evmrpc wraps the handful of read-only go-ethereum client calls
// the listeners and safety prober need, so nothing downstream imports
// ethclient directly.
package evmrpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client is a thin read-only facade over ethclient.Client, dialed once and
// shared by whichever listener and safety prober run against one chain.
type Client struct {
	eth *ethclient.Client
}

// Dial connects to an EVM JSON-RPC endpoint (ws:// or wss:// for
// subscriptions, http(s):// for calls) and verifies the reported chain id
// matches expected, per the "hard equality check on connect" requirement.
func Dial(ctx context.Context, url string, expectedChainID int64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	got, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain id check: %w", err)
	}
	if expectedChainID != 0 && got.Int64() != expectedChainID {
		eth.Close()
		return nil, fmt.Errorf("chain id mismatch: want %d, got %d", expectedChainID, got.Int64())
	}

	return &Client{eth: eth}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() { c.eth.Close() }

// CodeAt fetches the latest deployed bytecode at account, satisfying
// safety.CodeAtFunc.
func (c *Client) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return c.eth.CodeAt(ctx, account, nil)
}

// BlockNumber returns the current head block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// FilterLogs runs a one-shot log query, used by Venue-B's periodic swap
// polling over its tracked pools.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.eth.FilterLogs(ctx, q)
}

// SubscribeFilterLogs opens a live log subscription over the WS transport.
func (c *Client) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return c.eth.SubscribeFilterLogs(ctx, q, ch)
}

// CallContract performs a read-only eth_call, used for slot0/price reads.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, nil)
}
