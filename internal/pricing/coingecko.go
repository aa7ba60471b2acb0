package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// defaultCoinIDs maps ticker symbols to CoinGecko coin ids.
var defaultCoinIDs = map[string]string{
	"ETH":   "ethereum",
	"BTC":   "bitcoin",
	"MATIC": "polygon-ecosystem-token",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"DAI":   "dai",
	"WETH":  "weth",
	"WBTC":  "wrapped-bitcoin",
	"ARB":   "arbitrum",
}

// CoinGeckoClient fetches current and historical USD prices from CoinGecko.
type CoinGeckoClient struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	apiKey     string
	limiter    *rate.Limiter

	mu      sync.RWMutex
	coinIDs map[string]string
}

// CoinGeckoOption configures a CoinGeckoClient.
type CoinGeckoOption func(*CoinGeckoClient)

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) CoinGeckoOption {
	return func(c *CoinGeckoClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithAPIKey sends the key as the demo API key header.
func WithAPIKey(key string) CoinGeckoOption {
	return func(c *CoinGeckoClient) { c.apiKey = key }
}

// WithRateLimit throttles outbound requests to perSecond with the given burst.
// A non-positive perSecond disables throttling.
func WithRateLimit(perSecond float64, burst int) CoinGeckoOption {
	return func(c *CoinGeckoClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewCoinGeckoClient creates a CoinGecko price client.
func NewCoinGeckoClient(httpClient *http.Client, opts ...CoinGeckoOption) *CoinGeckoClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	c := &CoinGeckoClient{
		httpClient: httpClient,
		baseURL:    defaultCoinGeckoBaseURL,
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 5),
		coinIDs:    make(map[string]string, len(defaultCoinIDs)),
	}
	for sym, id := range defaultCoinIDs {
		c.coinIDs[sym] = id
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider's display name.
func (c *CoinGeckoClient) Name() string { return "CoinGecko" }

// AddCoinMapping maps a symbol to a CoinGecko coin id, replacing any
// existing mapping.
func (c *CoinGeckoClient) AddCoinMapping(symbol, coinID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coinIDs[strings.ToUpper(symbol)] = coinID
}

// AddCoinMappings applies every entry of m.
func (c *CoinGeckoClient) AddCoinMappings(m map[string]string) {
	for sym, id := range m {
		c.AddCoinMapping(sym, id)
	}
}

// CoinID returns the CoinGecko id for symbol.
func (c *CoinGeckoClient) CoinID(symbol string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.coinIDs[strings.ToUpper(symbol)]
	return id, ok
}

// CurrentPrice returns the latest USD price for symbol.
func (c *CoinGeckoClient) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := c.CurrentPrices(ctx, []string{symbol})
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := prices[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, ErrPriceUnavailable)
	}
	return price, nil
}

// CurrentPrices fetches the latest USD prices for several symbols in one
// request. Symbols without a price are left out of the result; the call only
// fails if none of the symbols is mapped or the request itself fails.
func (c *CoinGeckoClient) CurrentPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	idToSymbol := make(map[string]string, len(symbols))
	ids := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		id, ok := c.CoinID(sym)
		if !ok {
			continue
		}
		if _, seen := idToSymbol[id]; !seen {
			ids = append(ids, id)
		}
		idToSymbol[id] = strings.ToUpper(sym)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(symbols, ","), ErrUnknownSymbol)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")

	var body map[string]map[string]decimal.Decimal
	if err := c.getJSON(ctx, "/simple/price", query, &body); err != nil {
		return nil, err
	}

	result := make(map[string]decimal.Decimal, len(body))
	for id, quote := range body {
		sym, ok := idToSymbol[id]
		if !ok {
			continue
		}
		if usd, ok := quote["usd"]; ok {
			result[sym] = usd
		}
	}
	return result, nil
}

type coinHistoryResponse struct {
	MarketData *struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
	} `json:"market_data"`
}

// HistoricalPrice returns the USD price for symbol on the UTC day of date.
func (c *CoinGeckoClient) HistoricalPrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	id, ok := c.CoinID(symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}

	query := url.Values{}
	query.Set("date", date.UTC().Format("02-01-2006"))
	query.Set("localization", "false")

	var body coinHistoryResponse
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/history", query, &body); err != nil {
		return decimal.Zero, err
	}
	if body.MarketData == nil {
		return decimal.Zero, fmt.Errorf("%s on %s: %w", symbol, date.UTC().Format(time.DateOnly), ErrPriceUnavailable)
	}
	usd, ok := body.MarketData.CurrentPrice["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s on %s: %w", symbol, date.UTC().Format(time.DateOnly), ErrPriceUnavailable)
	}
	return usd, nil
}

func (c *CoinGeckoClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for coingecko rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling coingecko %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("coingecko %s: %w", path, ErrPriceUnavailable)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("coingecko %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding coingecko %s response: %w", path, err)
	}
	return nil
}
