// Package venuea drives the singleton-emitter EVM pool family: one manager contract, pools addressed by poolId, subscribed via
// two topic-filtered log streams.
package venuea

import (
	"context"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolsentry/internal/engine"
	"poolsentry/internal/evmdecode"
	"poolsentry/internal/state"
	"poolsentry/internal/util"
	"poolsentry/pkg/evmrpc"
)

// weiPerEth converts wei to a float ETH quantity, acceptable precision loss
// for USD display purposes only.
var weiPerEth = new(big.Float).SetFloat64(1e18)

type poolEntry struct {
	token          string
	nativeIsToken0 bool
}

// Listener subscribes to Venue-A's pool-initialize and swap events and
// feeds decoded observations into a chain store and engine.
type Listener struct {
	rpc      *evmrpc.Client
	manager  common.Address
	store    *state.Store
	engine   *engine.Engine
	ethPrice func() float64

	blockedHooks map[common.Address]struct{}

	mu    sync.Mutex
	pools map[string]poolEntry

	whaleQueue        chan *state.TokenState
	whaleThresholdUSD float64
}

// New constructs a Listener. blockedHooks rejects pools whose hooks
// address is in the set. whaleQueue may be nil to disable
// the optional whale-alert fan-out.
func New(rpc *evmrpc.Client, manager common.Address, store *state.Store, eng *engine.Engine, ethPrice func() float64, blockedHooks []common.Address, whaleQueue chan *state.TokenState, whaleThresholdUSD float64) *Listener {
	blocked := make(map[common.Address]struct{}, len(blockedHooks))
	for _, h := range blockedHooks {
		blocked[h] = struct{}{}
	}
	return &Listener{
		rpc:               rpc,
		manager:           manager,
		store:             store,
		engine:            eng,
		ethPrice:          ethPrice,
		blockedHooks:      blocked,
		pools:             make(map[string]poolEntry),
		whaleQueue:        whaleQueue,
		whaleThresholdUSD: whaleThresholdUSD,
	}
}

// Run subscribes and processes events until ctx is cancelled. Reconnects
// with exponential back-off on transport failure; cancellation is terminal.
func (l *Listener) Run(ctx context.Context) error {
	backoff := util.NewBackoff(time.Second, 30*time.Second)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := l.runOnce(ctx, backoff)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("[venuea] subscription error, reconnecting: %v", err)
		}
		if waitErr := backoff.Wait(ctx); waitErr != nil {
			return waitErr
		}
	}
}

func (l *Listener) runOnce(ctx context.Context, backoff *util.Backoff) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{l.manager},
		Topics: [][]common.Hash{{
			evmdecode.TopicVenueAInitialize,
			evmdecode.TopicVenueASwap,
		}},
	}

	logs := make(chan types.Log, 256)
	sub, err := l.rpc.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	backoff.Reset()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case lg := <-logs:
			l.handleLog(lg)
		}
	}
}

func (l *Listener) handleLog(lg types.Log) {
	if len(lg.Topics) == 0 {
		return
	}
	switch lg.Topics[0] {
	case evmdecode.TopicVenueAInitialize:
		l.handleInitialize(lg)
	case evmdecode.TopicVenueASwap:
		l.handleSwap(lg)
	}
}

func (l *Listener) handleInitialize(lg types.Log) {
	ev, err := evmdecode.DecodeVenueAInitialize(lg.Data)
	if err != nil {
		log.Printf("[venuea] decode initialize failed, dropping: %v", err)
		return
	}
	if !ev.IsNativePair() {
		return
	}
	if _, blocked := l.blockedHooks[ev.Hooks]; blocked {
		return
	}

	token := strings.ToLower(ev.Token().Hex())
	poolID := common.Bytes2Hex(ev.PoolID[:])

	if l.store.Contains(token) {
		return
	}

	ts := l.store.Create(token, poolID, state.VenueEvmA)
	ts.SetOnChainPrice(ev.SqrtPriceX96, 0) // liquidity seeded on first swap; no reserves at bare init
	ts.SetHooks(strings.ToLower(ev.Hooks.Hex()))

	l.mu.Lock()
	l.pools[poolID] = poolEntry{token: token, nativeIsToken0: ev.NativeIsToken0()}
	l.mu.Unlock()
}

func (l *Listener) handleSwap(lg types.Log) {
	ev, err := evmdecode.DecodeVenueASwap(lg.Data)
	if err != nil {
		log.Printf("[venuea] decode swap failed, dropping: %v", err)
		return
	}

	poolID := common.Bytes2Hex(ev.PoolID[:])

	l.mu.Lock()
	entry, ok := l.pools[poolID]
	l.mu.Unlock()
	if !ok {
		return
	}

	ts := l.store.Get(entry.token)
	if ts == nil || ts.IsSignaled() {
		l.mu.Lock()
		delete(l.pools, poolID)
		l.mu.Unlock()
		return
	}

	ethAmount := ev.Amount0
	if !entry.nativeIsToken0 {
		ethAmount = ev.Amount1
	}

	isBuy := ethAmount.Sign() > 0

	ethValue := new(big.Float).SetInt(new(big.Int).Abs(ethAmount))
	ethUnits := new(big.Float).Quo(ethValue, weiPerEth)
	ethPrice := l.ethPrice()
	usd, _ := new(big.Float).Mul(ethUnits, big.NewFloat(ethPrice)).Float64()

	ts.SetOnChainPrice(ev.SqrtPriceX96, util.LiquidityUSD(ev.Liquidity, ev.SqrtPriceX96, ethPrice))

	if isBuy {
		l.store.RecordBuy(entry.token, strings.ToLower(ev.Sender.Hex()), usd)
		if l.whaleQueue != nil && usd >= l.whaleThresholdUSD && l.whaleThresholdUSD > 0 {
			select {
			case l.whaleQueue <- ts:
			default:
			}
		}
		l.engine.Evaluate(ts)
	} else {
		l.store.RecordSell(entry.token)
	}
}
