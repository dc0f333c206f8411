// Package venueb drives the per-pool-emitter EVM pool family: a factory emits pool-creation; each pool contract emits its own
// swaps, so tracked pools are polled via block-range log queries instead
// of a single global subscription.
package venueb

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

var weiPerEth = new(big.Float).SetFloat64(1e18)

const pollInterval = 2 * time.Second
const seedTimeout = 5 * time.Second

type trackedPool struct {
	token          string
	nativeIsToken0 bool
}

// Listener subscribes to the factory's PoolCreated stream and polls swap
// logs for every tracked pool every pollInterval.
type Listener struct {
	rpc      *evmrpc.Client
	factory  common.Address
	store    *state.Store
	engine   *engine.Engine
	ethPrice func() float64

	mu          sync.Mutex
	tracked     map[common.Address]trackedPool
	lastPolled  uint64

	whaleQueue        chan *state.TokenState
	whaleThresholdUSD float64
}

// New constructs a Listener.
func New(rpc *evmrpc.Client, factory common.Address, store *state.Store, eng *engine.Engine, ethPrice func() float64, whaleQueue chan *state.TokenState, whaleThresholdUSD float64) *Listener {
	return &Listener{
		rpc:               rpc,
		factory:           factory,
		store:             store,
		engine:            eng,
		ethPrice:          ethPrice,
		tracked:           make(map[common.Address]trackedPool),
		whaleQueue:        whaleQueue,
		whaleThresholdUSD: whaleThresholdUSD,
	}
}

// Run subscribes to pool-creation and polls tracked pools for swaps until
// ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	if head, err := l.rpc.BlockNumber(ctx); err == nil {
		l.mu.Lock()
		l.lastPolled = head
		l.mu.Unlock()
	}

	backoff := util.NewBackoff(time.Second, 30*time.Second)

	createCh := make(chan error, 1)
	go func() {
		createCh <- l.runPoolCreatedSubscription(ctx, backoff)
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-createCh:
			return err
		case <-ticker.C:
			l.pollSwaps(ctx)
		}
	}
}

func (l *Listener) runPoolCreatedSubscription(ctx context.Context, backoff *util.Backoff) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := l.subscribeOnce(ctx, backoff)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("[venueb] pool-created subscription error, reconnecting: %v", err)
		}
		if waitErr := backoff.Wait(ctx); waitErr != nil {
			return waitErr
		}
	}
}

func (l *Listener) subscribeOnce(ctx context.Context, backoff *util.Backoff) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{l.factory},
		Topics:    [][]common.Hash{{evmdecode.TopicVenueBPoolCreated}},
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
			l.handlePoolCreated(ctx, lg)
		}
	}
}

func (l *Listener) handlePoolCreated(ctx context.Context, lg types.Log) {
	ev, err := evmdecode.DecodeVenueBPoolCreated(lg.Data)
	if err != nil {
		log.Printf("[venueb] decode pool-created failed, dropping: %v", err)
		return
	}
	if !ev.AllowedFeeTier() || !ev.IsNativePair() {
		return
	}

	token := strings.ToLower(ev.Token().Hex())
	if l.store.Contains(token) {
		return
	}

	ts := l.store.Create(token, strings.ToLower(ev.Pool.Hex()), state.VenueEvmB)
	l.seedOnChain(ctx, ts, ev.Pool)

	l.mu.Lock()
	l.tracked[ev.Pool] = trackedPool{token: token, nativeIsToken0: ev.NativeIsToken0()}
	l.mu.Unlock()
}

// seedOnChain best-effort reads a freshly created pool's current
// slot0/liquidity so a token isn't stuck at zero liquidity until its first
// swap arrives. RPC or decode failures are logged and left at the zero
// value; the first swap corrects it regardless.
func (l *Listener) seedOnChain(ctx context.Context, ts *state.TokenState, pool common.Address) {
	if l.rpc == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	slot0Data, err := l.rpc.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: evmdecode.Slot0Selector})
	if err != nil {
		log.Printf("[venueb] slot0 read failed for %s: %v", pool, err)
		return
	}
	sqrtPriceX96, err := evmdecode.DecodeSlot0(slot0Data)
	if err != nil {
		log.Printf("[venueb] slot0 decode failed for %s: %v", pool, err)
		return
	}

	liquidityData, err := l.rpc.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: evmdecode.LiquiditySelector})
	if err != nil {
		log.Printf("[venueb] liquidity read failed for %s: %v", pool, err)
		ts.SetOnChainPrice(sqrtPriceX96, 0)
		return
	}
	liquidity, err := evmdecode.DecodeLiquidity(liquidityData)
	if err != nil {
		log.Printf("[venueb] liquidity decode failed for %s: %v", pool, err)
		ts.SetOnChainPrice(sqrtPriceX96, 0)
		return
	}

	ts.SetOnChainPrice(sqrtPriceX96, util.LiquidityUSD(liquidity, sqrtPriceX96, l.ethPrice()))
}

// pollSwaps issues one block-range filtered log query across every tracked
// pool address.
func (l *Listener) pollSwaps(ctx context.Context) {
	l.mu.Lock()
	addrs := make([]common.Address, 0, len(l.tracked))
	for addr := range l.tracked {
		addrs = append(addrs, addr)
	}
	from := l.lastPolled + 1
	l.mu.Unlock()

	if len(addrs) == 0 {
		return
	}

	head, err := l.rpc.BlockNumber(ctx)
	if err != nil {
		log.Printf("[venueb] block number fetch failed: %v", err)
		return
	}
	if head < from {
		return
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: addrs,
		Topics:    [][]common.Hash{{evmdecode.TopicVenueBSwap}},
	}

	logs, err := l.rpc.FilterLogs(ctx, query)
	if err != nil {
		log.Printf("[venueb] swap poll failed: %v", err)
		return
	}

	for _, lg := range logs {
		l.handleSwap(lg)
	}

	l.mu.Lock()
	l.lastPolled = head
	l.mu.Unlock()
}

func (l *Listener) handleSwap(lg types.Log) {
	ev, err := evmdecode.DecodeVenueBSwap(lg.Data)
	if err != nil {
		log.Printf("[venueb] decode swap failed, dropping: %v", err)
		return
	}

	l.mu.Lock()
	entry, ok := l.tracked[lg.Address]
	l.mu.Unlock()
	if !ok {
		return
	}

	ts := l.store.Get(entry.token)
	if ts == nil || ts.IsSignaled() {
		l.mu.Lock()
		delete(l.tracked, lg.Address)
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
		if l.whaleQueue != nil && l.whaleThresholdUSD > 0 && usd >= l.whaleThresholdUSD {
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

// PrunePools drops tracked pools whose token has left the live store,
// mirroring store eviction so the tracked-pool map doesn't grow unbounded.
func (l *Listener) PrunePools() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, entry := range l.tracked {
		if !l.store.Contains(entry.token) {
			delete(l.tracked, addr)
		}
	}
}
