package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const getTransactionTimeout = 30 * time.Second

// NewHTTPFetcher returns a fetchTx implementation that calls
// getTransaction over JSON-RPC HTTP with the jsonParsed encoding.
func NewHTTPFetcher(rpcURL string) func(ctx context.Context, signature string) (*Transaction, error) {
	client := &http.Client{Timeout: getTransactionTimeout}

	return func(ctx context.Context, signature string) (*Transaction, error) {
		body := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "getTransaction",
			"params": []interface{}{
				signature,
				map[string]interface{}{
					"encoding":                       "jsonParsed",
					"maxSupportedTransactionVersion": 0,
					"commitment":                     "confirmed",
				},
			},
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rpcURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var out getTransactionResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, err
		}
		if out.Error != nil {
			return nil, fmt.Errorf("rpc error: %s", out.Error.Message)
		}
		if out.Result == nil {
			return nil, fmt.Errorf("transaction not found")
		}

		return out.Result.toTransaction(), nil
	}
}

type getTransactionResponse struct {
	Result *parsedTransactionResult `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type parsedTransactionResult struct {
	Transaction struct {
		Message struct {
			AccountKeys []struct {
				Pubkey string `json:"pubkey"`
			} `json:"accountKeys"`
			Instructions []struct {
				Accounts []string `json:"accounts"`
			} `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
	Meta struct {
		PostTokenBalances []struct {
			Mint string `json:"mint"`
		} `json:"postTokenBalances"`
		InnerInstructions []struct {
			Instructions []struct {
				Accounts []string `json:"accounts"`
			} `json:"instructions"`
		} `json:"innerInstructions"`
	} `json:"meta"`
}

// toTransaction projects the raw parsed-JSON shape into the Transaction
// type the listener's decode logic operates on. The AMM instruction is
// taken as the last top-level instruction (the AMM program is invoked
// directly, typically after any compute-budget/setup instructions).
func (r *parsedTransactionResult) toTransaction() *Transaction {
	t := &Transaction{}

	for _, k := range r.Transaction.Message.AccountKeys {
		t.AccountKeys = append(t.AccountKeys, k.Pubkey)
	}
	for _, b := range r.Meta.PostTokenBalances {
		t.PostTokenBalances = append(t.PostTokenBalances, TokenBalance{Mint: b.Mint})
	}

	instrs := r.Transaction.Message.Instructions
	if len(instrs) > 0 {
		t.AMMInstructionAccounts = instrs[len(instrs)-1].Accounts
	}
	if len(r.Meta.InnerInstructions) > 0 {
		inner := r.Meta.InnerInstructions[len(r.Meta.InnerInstructions)-1].Instructions
		if len(inner) > 0 {
			t.InnerInstructionAccounts = inner[len(inner)-1].Accounts
		}
	}

	return t
}
