package oracle

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"oracleflow/internal/domain/model"
	"oracleflow/internal/infrastructure/config"
	"oracleflow/internal/infrastructure/metrics"
)

// fixedPointDivisor converts the CLI's raw integer medians to decimal prices.
var fixedPointDivisor = decimal.NewFromInt(1_000_000)

var medianValueRe = regexp.MustCompile(`Median value: (\d+)`)

// embeddedArrayRe pulls the first JSON array out of the CLI's mixed output.
var embeddedArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// runFunc executes the CLI and returns its stdout. Injectable for tests.
type runFunc func(ctx context.Context, dir, bin string, args ...string) (string, error)

// CLIClient obtains authoritative median prices by invoking the external
// oracle CLI. Each attempt is bounded by a timeout; failures are retried
// with a fixed backoff before surfacing a PriceFetchError.
type CLIClient struct {
	workspace      string
	binary         string
	network        string
	attemptTimeout time.Duration
	maxAttempts    int
	backoff        time.Duration
	run            runFunc
	sleep          func(time.Duration)
	logger         *slog.Logger
}

func NewCLIClient(cfg config.OracleConfig, logger *slog.Logger) *CLIClient {
	return &CLIClient{
		workspace:      cfg.WorkspacePath,
		binary:         filepath.Join(cfg.CLIPath, "pm-oracle-cli"),
		network:        cfg.Network,
		attemptTimeout: cfg.AttemptTimeout,
		maxAttempts:    cfg.MaxAttempts,
		backoff:        cfg.RetryBackoff,
		run:            runCommand,
		sleep:          time.Sleep,
		logger:         logger,
	}
}

func runCommand(ctx context.Context, dir, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// FetchOne returns the current median price for one pair.
func (c *CLIClient) FetchOne(ctx context.Context, pair string) (float64, error) {
	out, err := c.invoke(ctx, []string{pair}, "median", pair, "--network", c.network)
	if err != nil {
		return 0, err
	}

	price, ok := parseSingleMedian(out)
	if !ok {
		// parse failures were already retried inside invoke
		return 0, &model.PriceFetchError{Pairs: []string{pair}, Attempts: c.maxAttempts, Err: model.ErrMalformedResponse}
	}
	return price, nil
}

// FetchBatch returns medians for all pairs from a single CLI invocation.
// Pairs the oracle did not report are absent from the map.
func (c *CLIClient) FetchBatch(ctx context.Context, pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return map[string]float64{}, nil
	}

	out, err := c.invoke(ctx, pairs, "median", strings.Join(pairs, ","), "--network", c.network, "--json")
	if err != nil {
		return nil, err
	}

	prices, ok := parseBatchMedians(out)
	if !ok {
		return nil, &model.PriceFetchError{Pairs: pairs, Attempts: c.maxAttempts, Err: model.ErrMalformedResponse}
	}
	return prices, nil
}

// invoke runs the CLI with retry. Parseability is part of success: output
// with no recognizable median counts as a failed attempt.
func (c *CLIClient) invoke(ctx context.Context, pairs []string, args ...string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		out, err := c.run(attemptCtx, c.workspace, c.binary, args...)
		cancel()

		if err == nil && hasParseableMedian(out) {
			return out, nil
		}

		if err == nil {
			err = model.ErrMalformedResponse
		}
		lastErr = err
		metrics.MedianFetchFailures.Inc()
		c.logger.Warn("median fetch attempt failed",
			"pairs", pairs, "attempt", attempt, "max_attempts", c.maxAttempts, "error", err)

		if attempt < c.maxAttempts {
			c.sleep(c.backoff)
		}
	}

	return "", &model.PriceFetchError{Pairs: pairs, Attempts: c.maxAttempts, Err: lastErr}
}

func hasParseableMedian(out string) bool {
	if medianValueRe.MatchString(out) {
		return true
	}
	raw := embeddedArrayRe.FindString(out)
	return raw != "" && gjson.Valid(raw)
}

func parseSingleMedian(out string) (float64, bool) {
	m := medianValueRe.FindStringSubmatch(out)
	if m == nil {
		return 0, false
	}

	raw, err := decimal.NewFromString(m[1])
	if err != nil {
		return 0, false
	}
	return raw.Div(fixedPointDivisor).InexactFloat64(), true
}

// parseBatchMedians extracts the JSON array embedded in the CLI output text:
// [{"pair": "BTC/USD", "median": 67123450000}, ...] with raw fixed-point
// integers scaled by 1e6.
func parseBatchMedians(out string) (map[string]float64, bool) {
	raw := embeddedArrayRe.FindString(out)
	if raw == "" || !gjson.Valid(raw) {
		return nil, false
	}

	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		return nil, false
	}

	prices := make(map[string]float64)
	for _, item := range parsed.Array() {
		pair := item.Get("pair").String()
		median := item.Get("median")
		if pair == "" || !median.Exists() {
			continue
		}
		prices[pair] = decimal.NewFromInt(median.Int()).Div(fixedPointDivisor).InexactFloat64()
	}

	if len(prices) == 0 {
		return nil, false
	}
	return prices, true
}
