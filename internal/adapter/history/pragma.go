package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oracleflow/internal/domain/model"
	"oracleflow/internal/infrastructure/config"
)

// PragmaClient fetches a pair's past median series from the authoritative
// onchain-history API. Every failure degrades to an empty slice; the caller
// decides whether missing history matters.
type PragmaClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	network    string
	logger     *slog.Logger
}

func NewPragmaClient(cfg config.PragmaConfig, logger *slog.Logger) *PragmaClient {
	return &PragmaClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		network:    cfg.Network,
		logger:     logger,
	}
}

// HasCredential reports whether an API key is configured. Seeding is skipped
// without one.
func (c *PragmaClient) HasCredential() bool {
	return c.apiKey != ""
}

type pragmaEntry struct {
	PairID    string `json:"pair_id"`
	Timestamp int64  `json:"timestamp"`
	// median_price is a hex-encoded integer scaled by 10^decimals.
	MedianPrice string `json:"median_price"`
	Decimals    int    `json:"decimals"`
}

// FetchRange returns median samples for pair over [startTime, endTime].
func (c *PragmaClient) FetchRange(ctx context.Context, pair string, startTime, endTime int64) []model.PriceSample {
	base, quote, ok := strings.Cut(pair, "/")
	if !ok {
		c.logger.Warn("malformed pair for history fetch", "pair", pair)
		return nil
	}

	url := fmt.Sprintf("%s/%s/%s?network=%s&timestamp=%d,%d&chunk_interval=1h",
		c.baseURL, base, quote, c.network, startTime, endTime)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("pragma history fetch failed", "pair", pair, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("pragma history fetch failed",
			"pair", pair, "status", resp.StatusCode, "body", string(body))
		return nil
	}

	var entries []pragmaEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		c.logger.Error("pragma history payload malformed", "pair", pair, "error", err)
		return nil
	}

	samples := make([]model.PriceSample, 0, len(entries))
	for _, e := range entries {
		price, ok := decodeHexPrice(e.MedianPrice, e.Decimals)
		if !ok {
			c.logger.Warn("pragma median price malformed", "pair", pair, "raw", e.MedianPrice)
			continue
		}
		samples = append(samples, model.PriceSample{
			Pair:      pair,
			Price:     price,
			Decimals:  e.Decimals,
			Timestamp: e.Timestamp,
		})
	}

	return samples
}

// decodeHexPrice converts a hex-encoded fixed-point integer to a decimal
// price: hexValue / 10^decimals.
func decodeHexPrice(raw string, decimals int) (float64, bool) {
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if raw == "" {
		return 0, false
	}

	n, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return 0, false
	}

	price := decimal.NewFromBigInt(n, -int32(decimals))
	return price.InexactFloat64(), true
}
