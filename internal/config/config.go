// Package config loads the single immutable configuration record used by
// every component constructor. There is exactly one way to build a Config:
// from the process environment at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is passed by value (or pointer-to-immutable) to every component
// constructor. Nothing in this package mutates a Config after Load returns.
type Config struct {
	RPCWSS  string
	RPCHTTP string
	ChainID int64

	SolEnabled bool
	SolRPCWSS  string
	SolRPCHTTP string

	MaxTokenAgeSeconds    int
	SolMaxTokenAgeSeconds int

	MaxMcapUSD        float64
	MinLiquidityUSD   float64
	MinBuys           int
	MinLargestBuyPct  float64

	MaxSignalsPerHour      int
	MaxDeployerTokens24h   int
	MaxSignalLatencySec    int

	WhaleAlertMinUSD float64
	DryRun           bool
	LogLevel         string

	SolMinLiquiditySOL float64

	VenueAManager  string
	VenueBFactory  string
	BlockedHooks   []string
	SolAMMProgram  string

	EnricherBaseURL string
	EnricherChain   string // dexscreener chain slug for pairs-for-token, e.g. "base"
	SolEnricherChain string

	SafetyRulesPath string

	MySQLDSN string

	JournalPath string

	FanoutQueues int

	MetricsAddr string
}

// Load reads an optional .env file (never an error if absent) and then
// populates Config from the environment, applying sensible defaults when
// a key is unset.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not fatal

	c := &Config{
		RPCWSS:  os.Getenv("RPC_WSS"),
		RPCHTTP: os.Getenv("RPC_HTTP"),

		SolEnabled: envBool("SOL_ENABLED", false),
		SolRPCWSS:  os.Getenv("SOL_RPC_WSS"),
		SolRPCHTTP: os.Getenv("SOL_RPC_HTTP"),

		MaxTokenAgeSeconds:    envInt("MAX_TOKEN_AGE_SECONDS", 180),
		SolMaxTokenAgeSeconds: envInt("SOL_MAX_TOKEN_AGE_SECONDS", 120),

		MaxMcapUSD:       envFloat("MAX_MCAP_USD", 30000),
		MinLiquidityUSD:  envFloat("MIN_LIQUIDITY_USD", 3000),
		MinBuys:          envInt("MIN_BUYS", 2),
		MinLargestBuyPct: envFloat("MIN_LARGEST_BUY_PCT", 10),

		MaxSignalsPerHour:    envInt("MAX_SIGNALS_PER_HOUR", 5),
		MaxDeployerTokens24h: envInt("MAX_DEPLOYER_TOKENS_24H", 2),
		MaxSignalLatencySec:  envInt("MAX_SIGNAL_LATENCY_SECONDS", 0),

		WhaleAlertMinUSD: envFloat("WHALE_ALERT_MIN_USD", 0),
		DryRun:           envBool("DRY_RUN", false),
		LogLevel:         getEnvDefault("LOG_LEVEL", "info"),

		SolMinLiquiditySOL: envFloat("SOL_MIN_LIQUIDITY_SOL", 10),

		VenueAManager: os.Getenv("VENUE_A_MANAGER"),
		VenueBFactory: os.Getenv("VENUE_B_FACTORY"),
		BlockedHooks:  envList("BLOCKED_HOOKS"),
		SolAMMProgram: os.Getenv("SOL_AMM_PROGRAM"),

		EnricherBaseURL:  os.Getenv("ENRICHER_BASE_URL"),
		EnricherChain:    getEnvDefault("ENRICHER_CHAIN", "ethereum"),
		SolEnricherChain: getEnvDefault("SOL_ENRICHER_CHAIN", "solana"),

		SafetyRulesPath: getEnvDefault("SAFETY_RULES_PATH", "configs/safety_rules.yml"),

		MySQLDSN: os.Getenv("MYSQL_DSN"),

		JournalPath: os.Getenv("JOURNAL_PATH"),

		FanoutQueues: envInt("FANOUT_QUEUES", 1),

		MetricsAddr: getEnvDefault("METRICS_ADDR", ":9090"),
	}

	chainID := os.Getenv("CHAIN_ID")
	if chainID != "" {
		v, err := strconv.ParseInt(chainID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CHAIN_ID %q: %w", chainID, err)
		}
		c.ChainID = v
	}

	if c.RPCWSS == "" || c.RPCHTTP == "" {
		return nil, fmt.Errorf("RPC_WSS and RPC_HTTP are required")
	}
	if c.SolEnabled && (c.SolRPCWSS == "" || c.SolRPCHTTP == "") {
		return nil, fmt.Errorf("SOL_ENABLED set but SOL_RPC_WSS/SOL_RPC_HTTP missing")
	}

	return c, nil
}

// MaxTokenAge returns the per-chain TTL as a Duration.
func (c *Config) MaxTokenAge() time.Duration {
	return time.Duration(c.MaxTokenAgeSeconds) * time.Second
}

// SolMaxTokenAge returns the non-EVM chain's TTL as a Duration.
func (c *Config) SolMaxTokenAge() time.Duration {
	return time.Duration(c.SolMaxTokenAgeSeconds) * time.Second
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
