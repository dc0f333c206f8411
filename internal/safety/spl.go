package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"poolsentry/internal/state"
)

// SPLResult extends Result with the raw authority identifiers for display.
type SPLResult struct {
	Result
	MintAuthority   string
	FreezeAuthority string
}

// SPLProber implements the SPL mint-authority safety heuristic
//: safe iff both mintAuthority and freezeAuthority are null.
type SPLProber struct {
	rpcURL string
	http   *http.Client
}

// NewSPLProber constructs a prober against a Solana JSON-RPC HTTP endpoint.
func NewSPLProber(rpcURL string) *SPLProber {
	return &SPLProber{
		rpcURL: rpcURL,
		http:   &http.Client{Timeout: probeTimeout},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type getAccountInfoResponse struct {
	Result struct {
		Value *struct {
			Data struct {
				Parsed struct {
					Info struct {
						MintAuthority   *string `json:"mintAuthority"`
						FreezeAuthority *string `json:"freezeAuthority"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"value"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Probe fetches parsed mint account info and classifies it. Unknown on RPC
// error or timeout.
func (p *SPLProber) Probe(ctx context.Context, mint string) SPLResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getAccountInfo",
		Params: []interface{}{
			mint,
			map[string]string{"encoding": "jsonParsed"},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return SPLResult{Result: Result{Safety: state.SafetyUnknown, Reasons: []string{err.Error()}}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return SPLResult{Result: Result{Safety: state.SafetyUnknown, Reasons: []string{err.Error()}}}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return SPLResult{Result: Result{Safety: state.SafetyUnknown, Reasons: []string{fmt.Sprintf("rpc error: %v", err)}}}
	}
	defer resp.Body.Close()

	var out getAccountInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SPLResult{Result: Result{Safety: state.SafetyUnknown, Reasons: []string{fmt.Sprintf("decode error: %v", err)}}}
	}
	if out.Error != nil {
		return SPLResult{Result: Result{Safety: state.SafetyUnknown, Reasons: []string{out.Error.Message}}}
	}
	if out.Result.Value == nil {
		return SPLResult{Result: Result{Safety: state.SafetyUnknown, Reasons: []string{"account not found"}}}
	}

	info := out.Result.Value.Data.Parsed.Info
	mintAuth := ""
	if info.MintAuthority != nil {
		mintAuth = *info.MintAuthority
	}
	freezeAuth := ""
	if info.FreezeAuthority != nil {
		freezeAuth = *info.FreezeAuthority
	}

	res := SPLResult{MintAuthority: mintAuth, FreezeAuthority: freezeAuth}
	if mintAuth == "" && freezeAuth == "" {
		res.Safety = state.SafetySafe
		return res
	}
	res.Safety = state.SafetyUnsafe
	if mintAuth != "" {
		res.Reasons = append(res.Reasons, "mint authority set")
	}
	if freezeAuth != "" {
		res.Reasons = append(res.Reasons, "freeze authority set")
	}
	return res
}
