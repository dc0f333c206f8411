// Package solana drives the non-EVM AMM listener: a
// program-log WebSocket subscription, ray_log init decoding, and a
// bounded-rate HTTP fetch of the full transaction to extract mints, pool,
// and deployer.
package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"poolsentry/internal/engine"
	"poolsentry/internal/state"
	"poolsentry/internal/util"
)

const (
	rayLogMarker   = "ray_log: "
	minInitLogLen  = 43
	pcAmountOffset = 27
	coinAmountOffset = 35
	ammAccountIndex    = 4
	deployerAccountIdx = 17
	lamportsPerNative  = 1e9
)

// Listener subscribes to program-log notifications for one AMM program,
// decodes init events, and fetches the owning transaction to populate a
// TokenState.
type Listener struct {
	wsURL   string
	program string

	store  *state.Store
	engine *engine.Engine

	solPrice func() float64

	minLiquidityNative float64

	fetchTx func(ctx context.Context, signature string) (*Transaction, error)

	limiter *rate.Limiter
}

// New constructs a Listener. fetchTx is injected so tests can stub the
// HTTP getTransaction call; production wires it to an http-backed
// implementation with its own HTTP client, and the listener's own limiter
// spaces the calls at least 100ms apart.
func New(wsURL, program string, store *state.Store, eng *engine.Engine, solPrice func() float64, minLiquidityNative float64, fetchTx func(ctx context.Context, signature string) (*Transaction, error)) *Listener {
	return &Listener{
		wsURL:              wsURL,
		program:            program,
		store:              store,
		engine:             eng,
		solPrice:           solPrice,
		minLiquidityNative: minLiquidityNative,
		fetchTx:            fetchTx,
		limiter:            rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

// logsNotification mirrors the relevant subset of a Solana
// logsSubscribe notification.
type logsNotification struct {
	Params struct {
		Result struct {
			Value struct {
				Signature string   `json:"signature"`
				Err       interface{} `json:"err"`
				Logs      []string `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Run dials the WS endpoint, subscribes to program-log notifications, and
// processes init events until ctx is cancelled. Reconnects with
// exponential back-off; cancellation is terminal.
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
			log.Printf("[solana] subscription error, reconnecting: %v", err)
		}
		if waitErr := backoff.Wait(ctx); waitErr != nil {
			return waitErr
		}
	}
}

func (l *Listener) runOnce(ctx context.Context, backoff *util.Backoff) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []interface{}{
			map[string]interface{}{"mentions": []string{l.program}},
			map[string]interface{}{"commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var confirm map[string]interface{}
	if err := conn.ReadJSON(&confirm); err != nil {
		return err
	}
	conn.SetReadDeadline(time.Time{})
	backoff.Reset()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(done)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return ctx.Err()
			default:
				return err
			}
		}
		l.handleMessage(ctx, msg)
	}
}

func (l *Listener) handleMessage(ctx context.Context, msg []byte) {
	var note logsNotification
	if err := json.Unmarshal(msg, &note); err != nil {
		return
	}
	value := note.Params.Result.Value
	if value.Err != nil {
		return
	}

	for _, line := range value.Logs {
		idx := strings.Index(line, rayLogMarker)
		if idx < 0 {
			continue
		}
		payload := line[idx+len(rayLogMarker):]
		l.handleRayLog(ctx, value.Signature, payload)
	}
}

func (l *Listener) handleRayLog(ctx context.Context, signature, b64 string) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		log.Printf("[solana] ray_log base64 decode failed, dropping: %v", err)
		return
	}
	if len(raw) == 0 {
		return
	}

	discriminator := raw[0]
	if discriminator != 0 {
		return // only init (type 0) is acted on in this core
	}
	if len(raw) < minInitLogLen {
		return
	}

	pcAmount := binary.LittleEndian.Uint64(raw[pcAmountOffset : pcAmountOffset+8])
	coinAmount := binary.LittleEndian.Uint64(raw[coinAmountOffset : coinAmountOffset+8])

	pcNative := float64(pcAmount) / lamportsPerNative
	if pcNative < l.minLiquidityNative {
		return
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return
	}
	tx, err := l.fetchTx(ctx, signature)
	if err != nil || tx == nil {
		log.Printf("[solana] tx fetch failed for %s: %v", signature, err)
		return
	}

	mint, wrappedNativeSeen := tx.NewTokenMint()
	if mint == "" || !wrappedNativeSeen {
		return
	}

	if l.store.Contains(mint) {
		return
	}

	pool := tx.PoolAddress()
	deployer := tx.FirstSigner()

	liquidityUSD := 2 * pcNative * l.solPrice()
	_ = coinAmount

	ts := l.store.Create(mint, pool, state.VenueSolRay)
	ts.SetLiquidityUSD(liquidityUSD)
	ts.SetDeployer(strings.ToLower(deployer))

	l.engine.Evaluate(ts)
}
