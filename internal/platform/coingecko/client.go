// Package coingecko implements domain.MarketDataSource against the public
// CoinGecko REST API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// DefaultBaseURL is the public CoinGecko API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// historyDays is the lookback for the historical price series attached to
// each snapshot. Daily granularity over 30 days gives the moving-average
// agents enough points for a 20-period window.
const historyDays = 30

// coinIDs maps ticker symbols to CoinGecko coin ids. Symbols outside this
// map cannot be evaluated.
var coinIDs = map[string]string{
	"DOGE":     "dogecoin",
	"SHIB":     "shiba-inu",
	"PEPE":     "pepe",
	"FLOKI":    "floki",
	"BONK":     "bonk",
	"WIF":      "dogwifcoin",
	"POPCAT":   "popcat",
	"BRETT":    "based-pepe",
	"WOJAK":    "wojak",
	"MEME":     "memecoin",
	"BABYDOGE": "baby-doge-coin",
	"KISHU":    "kishu-inu",
	"AKITA":    "akita-inu",
	"HOKK":     "hokkaidu-inu",
	"ELON":     "dogelon-mars",
}

// CoinID resolves a ticker symbol to its CoinGecko coin id.
func CoinID(symbol string) (string, bool) {
	id, ok := coinIDs[strings.ToUpper(symbol)]
	return id, ok
}

// Symbols returns every ticker symbol the client can resolve.
func Symbols() []string {
	syms := make([]string, 0, len(coinIDs))
	for sym := range coinIDs {
		syms = append(syms, sym)
	}
	return syms
}

// Client is the REST client for the CoinGecko API. It implements
// domain.MarketDataSource; sentiment fields of the returned snapshots are
// zero and are filled in by the snapshot assembler from the sentiment cache.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new CoinGecko client. baseURL falls back to DefaultBaseURL
// when empty; apiKey is optional and sent as the demo API key header.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetMarketSnapshot fetches price, volume, market cap, and the daily price
// history for a symbol. Unknown symbols and upstream failures surface as
// domain.ErrMarketDataUnavailable so callers can distinguish a dead feed
// from a bad request.
func (c *Client) GetMarketSnapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	coinID, ok := CoinID(symbol)
	if !ok {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: unknown symbol %s", domain.ErrMarketDataUnavailable, symbol)
	}

	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "true")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")

	body, err := c.doGet(ctx, "/coins/"+url.PathEscape(coinID)+"?"+params.Encode())
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("coingecko: get coin %s: %w", coinID, err)
	}

	var coin apiCoin
	if err := json.Unmarshal(body, &coin); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("coingecko: decode coin %s: %w", coinID, err)
	}

	snap := domain.MarketSnapshot{
		Symbol:       strings.ToUpper(symbol),
		CurrentPrice: coin.MarketData.CurrentPrice["usd"],
		Volume:       coin.MarketData.TotalVolume["usd"],
		MarketCap:    coin.MarketData.MarketCap["usd"],
		Timestamp:    time.Now().UTC(),
	}
	if snap.CurrentPrice == 0 {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: no usd price for %s", domain.ErrMarketDataUnavailable, symbol)
	}

	history, err := c.getPriceHistory(ctx, coinID)
	if err != nil {
		// A missing history degrades the moving-average agents but does not
		// block the evaluation.
		history = nil
	}
	snap.HistoricalPrices = history

	return snap, nil
}

// getPriceHistory fetches the daily closing price series for a coin.
func (c *Client) getPriceHistory(ctx context.Context, coinID string) ([]float64, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", fmt.Sprintf("%d", historyDays))
	params.Set("interval", "daily")

	body, err := c.doGet(ctx, "/coins/"+url.PathEscape(coinID)+"/market_chart?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("coingecko: get market chart %s: %w", coinID, err)
	}

	var chart apiMarketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("coingecko: decode market chart %s: %w", coinID, err)
	}

	prices := make([]float64, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		prices = append(prices, pair[1])
	}
	return prices, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMarketDataUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrMarketDataUnavailable, statusCode, bodyStr)
	}
}

// Compile-time interface check.
var _ domain.MarketDataSource = (*Client)(nil)
