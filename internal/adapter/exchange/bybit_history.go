package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"oracleflow/internal/domain/model"
	"oracleflow/internal/infrastructure/config"
)

// candleDecimals is the precision hint recorded on candle-derived samples.
const candleDecimals = 6

// BybitHistoryClient fetches spot candles as a higher-volume fallback price
// series. Any failure degrades to an empty slice.
type BybitHistoryClient struct {
	httpClient *http.Client
	baseURL    string
	symbols    map[string]string
	logger     *slog.Logger
}

func NewBybitHistoryClient(pairs []config.PairConfig, logger *slog.Logger) *BybitHistoryClient {
	symbols := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.ExchangeSymbol != "" {
			symbols[p.Pair] = p.ExchangeSymbol
		}
	}

	return &BybitHistoryClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://api.bybit.com",
		symbols:    symbols,
		logger:     logger,
	}
}

type bybitKline struct {
	Result struct {
		List [][]string `json:"list"`
	} `json:"result"`
}

// FetchRange returns 30-minute close-price samples over [startTime, endTime]
// ascending by timestamp. Unmapped pairs yield an empty slice.
func (c *BybitHistoryClient) FetchRange(ctx context.Context, pair string, startTime, endTime int64) []model.PriceSample {
	symbol, ok := c.symbols[pair]
	if !ok {
		return nil
	}

	url := fmt.Sprintf(
		"%s/v5/market/kline?category=spot&symbol=%s&interval=30&start=%d&end=%d",
		c.baseURL, symbol, startTime*1000, endTime*1000,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("bybit kline fetch failed", "pair", pair, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("bybit kline fetch failed", "pair", pair, "status", resp.StatusCode)
		return nil
	}

	var payload bybitKline
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Error("bybit kline payload malformed", "pair", pair, "error", err)
		return nil
	}

	// Bybit returns candles newest first: [startMs, open, high, low, close, ...].
	samples := make([]model.PriceSample, 0, len(payload.Result.List))
	for i := len(payload.Result.List) - 1; i >= 0; i-- {
		candle := payload.Result.List[i]
		if len(candle) < 5 {
			c.logger.Warn("bybit candle too short", "pair", pair, "fields", len(candle))
			continue
		}

		startMs, err1 := strconv.ParseInt(candle[0], 10, 64)
		closePrice, err2 := strconv.ParseFloat(candle[4], 64)
		if err1 != nil || err2 != nil {
			c.logger.Warn("bybit candle malformed", "pair", pair)
			continue
		}

		samples = append(samples, model.PriceSample{
			Pair:      pair,
			Price:     closePrice,
			Decimals:  candleDecimals,
			Timestamp: startMs / 1000,
		})
	}

	return samples
}
