package safety

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poolsentry/internal/state"
)

const probeTimeout = 10 * time.Second

// CodeAtFunc matches evmrpc.Client.CodeAt's signature (latest block, no
// blockNumber argument), kept as a function value so callers can pass that
// method directly without satisfying an awkward interface.
type CodeAtFunc func(ctx context.Context, account common.Address) ([]byte, error)

// EVMProber implements the EVM bytecode safety heuristic.
type EVMProber struct {
	rules   *RuleSet
	codeAt  CodeAtFunc
}

// NewEVMProber wraps a code-fetch function (typically
// ethclient.Client.CodeAt bound with a nil block number for "latest").
func NewEVMProber(rules *RuleSet, codeAt CodeAtFunc) *EVMProber {
	return &EVMProber{rules: rules, codeAt: codeAt}
}

// Result is the prober's advisory output.
type Result struct {
	Safety  state.Safety
	Reasons []string
}

// Probe fetches the contract's bytecode and classifies it. Unsafe requires
// two-or-more critical matches, or one critical plus two-or-more warnings;
// otherwise safe. RPC error or timeout yields SafetyUnknown, which is
// advisory only and never itself a rejection.
func (p *EVMProber) Probe(ctx context.Context, address string) Result {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	code, err := p.codeAt(ctx, common.HexToAddress(address))
	if err != nil {
		return Result{Safety: state.SafetyUnknown, Reasons: []string{fmt.Sprintf("rpc error: %v", err)}}
	}
	if len(code) == 0 {
		return Result{Safety: state.SafetyUnsafe, Reasons: []string{"empty bytecode"}}
	}

	hexCode := strings.ToLower(hex.EncodeToString(code))

	for _, prefix := range p.rules.ProxyPrefixes {
		if strings.HasPrefix(hexCode, strings.ToLower(prefix)) {
			return Result{Safety: state.SafetyUnknown, Reasons: []string{"proxy bytecode, cannot assess implementation"}}
		}
	}

	var reasons []string
	criticalHits := 0
	for _, rule := range p.rules.Critical {
		if strings.Contains(hexCode, strings.ToLower(rule.Selector)) {
			criticalHits++
			reasons = append(reasons, rule.Category)
		}
	}
	warningHits := 0
	for _, rule := range p.rules.Warnings {
		if strings.Contains(hexCode, strings.ToLower(rule.Selector)) {
			warningHits++
			reasons = append(reasons, rule.Category)
		}
	}

	if criticalHits >= 2 || (criticalHits >= 1 && warningHits >= 2) {
		return Result{Safety: state.SafetyUnsafe, Reasons: reasons}
	}
	return Result{Safety: state.SafetySafe, Reasons: reasons}
}
