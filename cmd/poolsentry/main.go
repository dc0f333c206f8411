// Command poolsentry wires every component into one running process:
// two chain stores, their engines, both EVM listeners, the non-EVM
// listener, the enricher loops, the post-mortem scheduler, the
// output fan-out, and the periodic maintenance the supervisor drives.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poolsentry/internal/config"
	"poolsentry/internal/db"
	"poolsentry/internal/enrich"
	"poolsentry/internal/enricherloop"
	"poolsentry/internal/engine"
	"poolsentry/internal/fanout"
	"poolsentry/internal/journal"
	"poolsentry/internal/listener/solana"
	"poolsentry/internal/listener/venuea"
	"poolsentry/internal/listener/venueb"
	"poolsentry/internal/metrics"
	"poolsentry/internal/oracle"
	"poolsentry/internal/postmortem"
	"poolsentry/internal/safety"
	"poolsentry/internal/state"
	"poolsentry/internal/supervisor"
	"poolsentry/pkg/evmrpc"
)

// oracleRunner adapts oracle.Oracle's error-less Run to supervisor.Runner.
type oracleRunner struct {
	o *oracle.Oracle
}

func (r oracleRunner) Run(ctx context.Context) error {
	r.o.Run(ctx)
	return nil
}

// fanoutRunner binds a FanOut to the signal queue it reads from, satisfying
// supervisor.Runner.
type fanoutRunner struct {
	f      *fanout.FanOut
	source engine.SignalQueue
}

func (r fanoutRunner) Run(ctx context.Context) error {
	return r.f.Run(ctx, r.source)
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("poolsentry: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enricherClient := enrich.New(cfg.EnricherBaseURL, 250*time.Millisecond)

	thresholds := engine.Thresholds{
		EVMMaxAge:            cfg.MaxTokenAge(),
		SolMaxAge:            cfg.SolMaxTokenAge(),
		MaxMcapUSD:           cfg.MaxMcapUSD,
		MinLiquidityUSD:      cfg.MinLiquidityUSD,
		MinBuys:              cfg.MinBuys,
		MinLargestBuyPct:     cfg.MinLargestBuyPct,
		MaxSignalsPerHour:    cfg.MaxSignalsPerHour,
		MaxDeployerTokens24h: cfg.MaxDeployerTokens24h,
		MaxSignalLatencySec:  cfg.MaxSignalLatencySec,
	}

	signalQueue := make(engine.SignalQueue, 256)

	evmStore := state.New(state.ChainEVM, cfg.MaxTokenAge())
	evmEngine := engine.New(thresholds, evmStore, signalQueue)

	ethOracle := oracle.New("ETH", 3000, 60*time.Second, oracle.NewEnricherFetcher(enricherClient, "WETH"))

	rpc, err := evmrpc.Dial(ctx, cfg.RPCWSS, cfg.ChainID)
	if err != nil {
		return err
	}

	rules, err := safety.LoadRuleSet(cfg.SafetyRulesPath)
	if err != nil {
		return err
	}
	evmProber := safety.NewEVMProber(rules, rpc.CodeAt)

	var whaleQueue chan *state.TokenState
	if cfg.WhaleAlertMinUSD > 0 {
		whaleQueue = make(chan *state.TokenState, 32)
		go drainWhaleAlerts(ctx, whaleQueue)
	}

	var blockedHooks []common.Address
	for _, h := range cfg.BlockedHooks {
		blockedHooks = append(blockedHooks, common.HexToAddress(h))
	}

	lA := venuea.New(rpc, common.HexToAddress(cfg.VenueAManager), evmStore, evmEngine, ethOracle.Value, blockedHooks, whaleQueue, cfg.WhaleAlertMinUSD)
	lB := venueb.New(rpc, common.HexToAddress(cfg.VenueBFactory), evmStore, evmEngine, ethOracle.Value, whaleQueue, cfg.WhaleAlertMinUSD)

	evmEnricher := enricherloop.New(cfg.EnricherChain, enricherClient, evmStore, evmEngine)

	metricsExporter := metrics.New()
	metricsExporter.Register("evm", evmEngine.Stats())

	sup := supervisor.New(enricherClient).
		AddEVMStore("evm", evmStore, evmEngine).
		WithEVMProber(evmProber).
		AddRunner(oracleRunner{ethOracle}).
		AddRunner(lA).
		AddRunner(lB).
		AddPoolPruner(lB).
		AddRunner(evmEnricher).
		AddRunner(metricsExporter)

	if cfg.SolEnabled {
		solStore := state.New(state.ChainSol, cfg.SolMaxTokenAge())
		solEngine := engine.New(thresholds, solStore, signalQueue)
		solOracle := oracle.New("SOL", 150, 60*time.Second, oracle.NewEnricherFetcher(enricherClient, "SOL"))
		splProber := safety.NewSPLProber(cfg.SolRPCHTTP)

		solListener := solana.New(cfg.SolRPCWSS, cfg.SolAMMProgram, solStore, solEngine, solOracle.Value, cfg.SolMinLiquiditySOL, solana.NewHTTPFetcher(cfg.SolRPCHTTP))
		solEnricher := enricherloop.New(cfg.SolEnricherChain, enricherClient, solStore, solEngine)

		metricsExporter.Register("sol", solEngine.Stats())

		sup.AddSolStore("sol", solStore, solEngine).
			WithSPLProber(splProber).
			AddRunner(oracleRunner{solOracle}).
			AddRunner(solListener).
			AddRunner(solEnricher)
	}

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsExporter.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = metricsSrv.Close()
	}()

	var recorder *db.MySQLRecorder
	if cfg.MySQLDSN != "" {
		recorder, err = db.NewMySQLRecorder(cfg.MySQLDSN)
		if err != nil {
			return err
		}
		defer recorder.Close()
	}

	var jrnl *journal.Journal
	if cfg.JournalPath != "" {
		f, err := os.OpenFile(cfg.JournalPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		jrnl = journal.New(f)
	}

	scheduler := postmortem.New(enricherClient, evmEngine.Stats(), func(res postmortem.Result) {
		if recorder != nil {
			if err := recorder.RecordClassification(res.Entry.Token, res.Entry.SignalTime, string(res.Classification), res.ChangePct); err != nil {
				log.Printf("record classification: %v", err)
			}
		}
	})
	sup.AddRunner(scheduler)

	fanOut, downstream := fanout.New(cfg.FanoutQueues, 64)
	sup.AddRunner(fanoutRunner{fanOut, signalQueue})
	enricherChains := map[state.Chain]string{state.ChainEVM: cfg.EnricherChain, state.ChainSol: cfg.SolEnricherChain}
	for _, q := range downstream {
		go consumeSignals(ctx, q, recorder, jrnl, scheduler, enricherChains)
	}

	return sup.Run(ctx)
}

// consumeSignals relays every fired signal from one fan-out queue into
// the durable recorder, the journal, and the post-mortem scheduler.
// enricherChains maps a store's chain tag to the enricher chain slug the
// post-mortem lookup uses.
func consumeSignals(ctx context.Context, q chan *state.TokenState, recorder *db.MySQLRecorder, jrnl *journal.Journal, scheduler *postmortem.Scheduler, enricherChains map[state.Chain]string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ts, ok := <-q:
			if !ok {
				return
			}

			chain := string(ts.Chain)
			if recorder != nil {
				latency := time.Since(ts.FirstSeen).Seconds()
				if err := recorder.RecordSignal(ts.Token, chain, ts.SignalTime, ts.BestMcap(), ts.BestLiquidity(), latency); err != nil {
					log.Printf("record signal: %v", err)
				}
			}
			if jrnl != nil {
				jrnl.RecordSignal(chain, ts.Token)
			}
			scheduler.Enqueue(postmortem.FromSignal(enricherChains[ts.Chain], ts))
		}
	}
}

func drainWhaleAlerts(ctx context.Context, q chan *state.TokenState) {
	for {
		select {
		case <-ctx.Done():
			return
		case ts := <-q:
			log.Printf("[whale] %s on %s pair=%s mcap=%.0f liquidity=%.0f", ts.Token, ts.Chain, ts.Pair, ts.BestMcap(), ts.BestLiquidity())
		}
	}
}
