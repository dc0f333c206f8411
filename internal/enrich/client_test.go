package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairsForTokenHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"baseToken":{"address":"0xabc","symbol":"FOO"},"liquidity":{"usd":5000},"marketCap":15000}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Millisecond)
	defer c.Close()

	pairs, err := c.PairsForToken(context.Background(), "evm", "0xabc")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "FOO", pairs[0].BaseToken.Symbol)
	assert.Equal(t, 15000.0, pairs[0].EffectiveMarketCap())
}

func TestPairsForTokenRateLimitedReturnsNilNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Millisecond)
	defer c.Close()

	pairs, err := c.PairsForToken(context.Background(), "evm", "0xabc")
	assert.NoError(t, err)
	assert.Nil(t, pairs)
}

func TestPairsForToken5xxReturnsNilNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Millisecond)
	defer c.Close()

	pairs, err := c.PairsForToken(context.Background(), "evm", "0xabc")
	assert.NoError(t, err)
	assert.Nil(t, pairs)
}

func TestEffectiveMarketCapFallsBackToFDV(t *testing.T) {
	p := PairRecord{FDV: 42}
	assert.Equal(t, 42.0, p.EffectiveMarketCap())
}
