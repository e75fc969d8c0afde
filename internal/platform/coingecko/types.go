package coingecko

// apiCoin mirrors the subset of the CoinGecko /coins/{id} response the
// snapshot assembler needs.
type apiCoin struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	MarketData struct {
		CurrentPrice map[string]float64 `json:"current_price"`
		MarketCap    map[string]float64 `json:"market_cap"`
		TotalVolume  map[string]float64 `json:"total_volume"`
	} `json:"market_data"`
}

// apiMarketChart mirrors the /coins/{id}/market_chart response. Each entry
// is a [timestamp_ms, value] pair.
type apiMarketChart struct {
	Prices [][2]float64 `json:"prices"`
}
