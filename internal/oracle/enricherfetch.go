package oracle

import (
	"context"
	"fmt"

	"poolsentry/internal/enrich"
)

// NewEnricherFetcher builds a Fetcher that resolves a native asset's USD
// price via the enricher client's search-by-symbol call, picking the
// highest-liquidity same-symbol pair.
func NewEnricherFetcher(client *enrich.Client, symbol string) Fetcher {
	return func(ctx context.Context) (float64, error) {
		pairs, err := client.SearchBySymbol(ctx, symbol)
		if err != nil {
			return 0, err
		}
		if len(pairs) == 0 {
			return 0, fmt.Errorf("no pairs found for symbol %q", symbol)
		}

		best := pairs[0]
		for _, p := range pairs[1:] {
			if p.Liquidity.USD > best.Liquidity.USD {
				best = p
			}
		}
		if best.PriceUSD <= 0 {
			return 0, fmt.Errorf("no positive priceUsd for symbol %q", symbol)
		}
		return best.PriceUSD, nil
	}
}
