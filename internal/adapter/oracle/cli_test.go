package oracle

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracleflow/internal/domain/model"
	"oracleflow/internal/infrastructure/config"
)

func testClient() *CLIClient {
	c := NewCLIClient(config.OracleConfig{
		WorkspacePath:  "/tmp/workspace",
		CLIPath:        "/usr/local/bin",
		Network:        "testnet",
		AttemptTimeout: time.Second,
		MaxAttempts:    3,
		RetryBackoff:   time.Second,
	}, slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1})))
	c.sleep = func(time.Duration) {}
	return c
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestFetchOne_ParsesAndScalesMedian(t *testing.T) {
	c := testClient()
	c.run = func(ctx context.Context, dir, bin string, args ...string) (string, error) {
		assert.Equal(t, "/tmp/workspace", dir)
		assert.Equal(t, []string{"median", "BTC/USD", "--network", "testnet"}, args)
		return "Reading oracle account...\nMedian value: 67123450000\n", nil
	}

	price, err := c.FetchOne(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, 67123.45, price)
}

func TestFetchBatch_ParsesEmbeddedArray(t *testing.T) {
	c := testClient()
	c.run = func(ctx context.Context, dir, bin string, args ...string) (string, error) {
		assert.Equal(t, []string{"median", "BTC/USD,ETH/USD", "--network", "testnet", "--json"}, args)
		return `Connected to node.
Fetching medians for 2 pairs...
[{"pair":"BTC/USD","median":67123450000},{"pair":"ETH/USD","median":3500125000}]
Done.
`, nil
	}

	prices, err := c.FetchBatch(context.Background(), []string{"BTC/USD", "ETH/USD"})
	require.NoError(t, err)
	assert.Equal(t, 67123.45, prices["BTC/USD"])
	assert.Equal(t, 3500.125, prices["ETH/USD"])
}

func TestFetchBatch_OmitsUnreportedPairs(t *testing.T) {
	c := testClient()
	c.run = func(ctx context.Context, dir, bin string, args ...string) (string, error) {
		return `[{"pair":"BTC/USD","median":67123450000}]`, nil
	}

	prices, err := c.FetchBatch(context.Background(), []string{"BTC/USD", "SOL/USD"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Contains(t, prices, "BTC/USD")
}

func TestFetchBatch_RetryExhaustion(t *testing.T) {
	c := testClient()

	var sleeps []time.Duration
	c.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	calls := 0
	c.run = func(ctx context.Context, dir, bin string, args ...string) (string, error) {
		calls++
		return "", errors.New("exit status 1")
	}

	_, err := c.FetchBatch(context.Background(), []string{"BTC/USD"})

	var fetchErr *model.PriceFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Equal(t, 3, calls, "exactly maxAttempts invocations")
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeps, "backoff between attempts, not after the last")
}

func TestFetchBatch_UnparseableOutputCountsAsFailure(t *testing.T) {
	c := testClient()

	calls := 0
	c.run = func(ctx context.Context, dir, bin string, args ...string) (string, error) {
		calls++
		return "no medians here", nil
	}

	_, err := c.FetchBatch(context.Background(), []string{"BTC/USD"})

	var fetchErr *model.PriceFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, model.ErrMalformedResponse)
	assert.Equal(t, 3, calls, "malformed output is retried like any failure")
}

func TestFetchBatch_RecoversOnLaterAttempt(t *testing.T) {
	c := testClient()

	calls := 0
	c.run = func(ctx context.Context, dir, bin string, args ...string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("timeout")
		}
		return `[{"pair":"BTC/USD","median":1000000}]`, nil
	}

	prices, err := c.FetchBatch(context.Background(), []string{"BTC/USD"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, prices["BTC/USD"])
	assert.Equal(t, 3, calls)
}

func TestFetchBatch_EmptyPairs(t *testing.T) {
	c := testClient()
	c.run = func(ctx context.Context, dir, bin string, args ...string) (string, error) {
		t.Fatal("no invocation expected for empty input")
		return "", nil
	}

	prices, err := c.FetchBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}
