package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"oracleflow/internal/domain/model"
	"oracleflow/internal/infrastructure/config"
)

// route maps an internal pair to the upstream that serves its 24h stats.
type route struct {
	exchange string
	symbol   string
}

// StatsClient fetches 24h reference statistics. Lookups that fail or have no
// mapping degrade to nil; the stats are metadata, never the authoritative
// price.
type StatsClient struct {
	httpClient *http.Client
	binanceURL string
	bybitURL   string
	routes     map[string]route
	logger     *slog.Logger
}

func NewStatsClient(pairs []config.PairConfig, logger *slog.Logger) *StatsClient {
	routes := make(map[string]route, len(pairs))
	for _, p := range pairs {
		if p.ExchangeSymbol == "" {
			continue
		}
		exch := p.StatsExchange
		if exch == "" {
			exch = "binance"
		}
		routes[p.Pair] = route{exchange: exch, symbol: p.ExchangeSymbol}
	}

	return &StatsClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		binanceURL: "https://api.binance.com",
		bybitURL:   "https://api.bybit.com",
		routes:     routes,
		logger:     logger,
	}
}

type binanceTicker struct {
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
}

type bybitTickers struct {
	Result struct {
		List []struct {
			Price24hPcnt string `json:"price24hPcnt"`
			HighPrice24h string `json:"highPrice24h"`
			LowPrice24h  string `json:"lowPrice24h"`
		} `json:"list"`
	} `json:"result"`
}

// FetchStats returns the 24h stats for pair, or nil when the pair has no
// mapping or the upstream call fails.
func (c *StatsClient) FetchStats(ctx context.Context, pair string) *model.RefStats {
	r, ok := c.routes[pair]
	if !ok {
		c.logger.Warn("no exchange mapping for pair", "pair", pair)
		return nil
	}

	switch r.exchange {
	case "bybit":
		return c.fetchBybitStats(ctx, pair, r.symbol)
	default:
		return c.fetchBinanceStats(ctx, pair, r.symbol)
	}
}

func (c *StatsClient) fetchBinanceStats(ctx context.Context, pair, symbol string) *model.RefStats {
	url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", c.binanceURL, symbol)

	var ticker binanceTicker
	if err := c.getJSON(ctx, url, &ticker); err != nil {
		c.logger.Error("binance 24h stats fetch failed", "pair", pair, "error", err)
		return nil
	}

	change, err1 := strconv.ParseFloat(ticker.PriceChangePercent, 64)
	high, err2 := strconv.ParseFloat(ticker.HighPrice, 64)
	low, err3 := strconv.ParseFloat(ticker.LowPrice, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		c.logger.Error("binance 24h stats payload malformed", "pair", pair, "error", model.ErrMalformedResponse)
		return nil
	}

	return &model.RefStats{Change24h: change, High24h: high, Low24h: low}
}

func (c *StatsClient) fetchBybitStats(ctx context.Context, pair, symbol string) *model.RefStats {
	url := fmt.Sprintf("%s/v5/market/tickers?category=spot&symbol=%s", c.bybitURL, symbol)

	var tickers bybitTickers
	if err := c.getJSON(ctx, url, &tickers); err != nil {
		c.logger.Error("bybit 24h stats fetch failed", "pair", pair, "error", err)
		return nil
	}
	if len(tickers.Result.List) == 0 {
		c.logger.Error("bybit 24h stats payload malformed", "pair", pair, "error", model.ErrMalformedResponse)
		return nil
	}

	t := tickers.Result.List[0]
	pcnt, err1 := strconv.ParseFloat(t.Price24hPcnt, 64)
	high, err2 := strconv.ParseFloat(t.HighPrice24h, 64)
	low, err3 := strconv.ParseFloat(t.LowPrice24h, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		c.logger.Error("bybit 24h stats payload malformed", "pair", pair, "error", model.ErrMalformedResponse)
		return nil
	}

	// Bybit reports the 24h change as a fraction, not a percentage.
	return &model.RefStats{Change24h: pcnt * 100, High24h: high, Low24h: low}
}

// FetchMultiple runs all lookups concurrently and omits pairs whose stats
// are unavailable.
func (c *StatsClient) FetchMultiple(ctx context.Context, pairs []string) map[string]model.RefStats {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]model.RefStats, len(pairs))
	)

	for _, pair := range pairs {
		wg.Add(1)
		go func(pair string) {
			defer wg.Done()
			if stats := c.FetchStats(ctx, pair); stats != nil {
				mu.Lock()
				out[pair] = *stats
				mu.Unlock()
			}
		}(pair)
	}
	wg.Wait()

	return out
}

func (c *StatsClient) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", model.ErrUpstreamUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	return nil
}
