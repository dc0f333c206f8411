// Package enrich implements the Enricher Client: one
// logical HTTP connection to an external price/pair API, exposing
// pairs-for-token / pair-by-id / search-by-symbol, self-rate-limited with
// a minimum inter-request gap and a 429 back-off.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL       = "https://api.dexscreener.com"
	defaultMinGap        = 300 * time.Millisecond
	defaultTimeout       = 5 * time.Second
	rateLimitBackoff     = 5 * time.Second
)

// Client is the shared enricher HTTP connection, owned by the supervisor
// and shared across the EVM enricher loop, non-EVM enricher loop, and
// post-mortem scheduler.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	// backoffUntil gates requests after a 429; Client is used by multiple
	// goroutines, so mu guards it: getJSON sets it on a 429 and wait()
	// reads it before every request.
	mu           sync.Mutex
	backoffUntil time.Time
}

// New constructs a Client. minGap is the minimum inter-request interval
//; baseURL may be empty to use the default.
func New(baseURL string, minGap time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if minGap <= 0 {
		minGap = defaultMinGap
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Every(minGap), 1),
	}
}

// Close releases the client's idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// PairsForToken implements "pairs-for-token(chain, token)".
// Returns nil, nil on timeout, non-200, or a rate-limited response — the
// caller treats a nil result as missing data, not rejection.
func (c *Client) PairsForToken(ctx context.Context, chain, token string) ([]PairRecord, error) {
	url := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, chain, token)
	var out []PairRecord
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, nil //nolint:nilerr // missing data is not an error condition to the caller
	}
	return out, nil
}

// PairByID implements "pair-by-id(chain, pair)".
func (c *Client) PairByID(ctx context.Context, chain, pair string) (*PairRecord, error) {
	url := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", c.baseURL, chain, pair)
	var out struct {
		Pairs []PairRecord `json:"pairs"`
	}
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, nil
	}
	if len(out.Pairs) == 0 {
		return nil, nil
	}
	return &out.Pairs[0], nil
}

// SearchBySymbol implements "search-by-symbol(query)", used
// by the enricher loop's copycat check.
func (c *Client) SearchBySymbol(ctx context.Context, query string) ([]PairRecord, error) {
	url := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, query)
	var out struct {
		Pairs []PairRecord `json:"pairs"`
	}
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, nil
	}
	return out.Pairs, nil
}

// getJSON performs the rate-limited, timed-out GET and JSON-decodes the
// body. A non-nil error here always means "no data"; callers never surface
// it further.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.mu.Lock()
		c.backoffUntil = time.Now().Add(rateLimitBackoff)
		c.mu.Unlock()
		return fmt.Errorf("rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// wait enforces the minimum inter-request gap and the 429 back-off.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	until := c.backoffUntil
	c.mu.Unlock()
	if !until.IsZero() {
		if d := time.Until(until); d > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
			}
		}
	}
	return c.limiter.Wait(ctx)
}
