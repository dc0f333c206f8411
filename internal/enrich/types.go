package enrich

// PairRecord is the external enrichment API's per-pool object. Field
// names mirror the documented wire shape directly.
type PairRecord struct {
	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
		Name    string `json:"name"`
	} `json:"baseToken"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	PriceUSD  float64 `json:"priceUsd,string"`
	MarketCap float64 `json:"marketCap"`
	FDV       float64 `json:"fdv"`
	Txns      struct {
		M5 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"m5"`
	} `json:"txns"`
	Volume struct {
		M5 float64 `json:"m5"`
	} `json:"volume"`
	PriceChange struct {
		M5 float64 `json:"m5"`
		H1 float64 `json:"h1"`
	} `json:"priceChange"`
	Info struct {
		Socials  []map[string]string `json:"socials"`
		Websites []map[string]string `json:"websites"`
	} `json:"info"`
	PairCreatedAt int64  `json:"pairCreatedAt"`
	ChainID       string `json:"chainId"`
}

// EffectiveMarketCap returns MarketCap when present, falling back to FDV.
func (p PairRecord) EffectiveMarketCap() float64 {
	if p.MarketCap > 0 {
		return p.MarketCap
	}
	return p.FDV
}

// HasSocials reports whether the pair's info block lists any social link.
func (p PairRecord) HasSocials() bool {
	return len(p.Info.Socials) > 0
}
