package history

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracleflow/internal/infrastructure/config"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestClient(baseURL, apiKey string) *PragmaClient {
	return NewPragmaClient(config.PragmaConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Network: "starknet-mainnet",
	}, slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1})))
}

func TestFetchRange_DecodesHexMedians(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/BTC/USD", r.URL.Path)
		assert.Equal(t, "starknet-mainnet", r.URL.Query().Get("network"))
		assert.Equal(t, "100,200", r.URL.Query().Get("timestamp"))
		assert.Equal(t, "1h", r.URL.Query().Get("chunk_interval"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		// 0x3e8 = 1000; with 2 decimals the price is 10.00
		w.Write([]byte(`[
			{"pair_id":"BTC/USD","timestamp":120,"median_price":"3e8","decimals":2},
			{"pair_id":"BTC/USD","timestamp":180,"median_price":"0x7d0","decimals":2}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")

	samples := c.FetchRange(context.Background(), "BTC/USD", 100, 200)
	require.Len(t, samples, 2)
	assert.Equal(t, 10.0, samples[0].Price)
	assert.Equal(t, int64(120), samples[0].Timestamp)
	assert.Equal(t, 2, samples[0].Decimals)
	assert.Equal(t, 20.0, samples[1].Price)
	assert.Equal(t, "BTC/USD", samples[1].Pair)
}

func TestFetchRange_NoCredentialOmitsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-api-key"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	assert.False(t, c.HasCredential())
	assert.Empty(t, c.FetchRange(context.Background(), "BTC/USD", 100, 200))
}

func TestFetchRange_UpstreamErrorIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "wrong")
	assert.Empty(t, c.FetchRange(context.Background(), "BTC/USD", 100, 200))
}

func TestFetchRange_MalformedPayloadIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")
	assert.Empty(t, c.FetchRange(context.Background(), "BTC/USD", 100, 200))
}

func TestFetchRange_SkipsMalformedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"pair_id":"BTC/USD","timestamp":120,"median_price":"zzz","decimals":2},
			{"pair_id":"BTC/USD","timestamp":180,"median_price":"3e8","decimals":2}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")

	samples := c.FetchRange(context.Background(), "BTC/USD", 100, 200)
	require.Len(t, samples, 1)
	assert.Equal(t, int64(180), samples[0].Timestamp)
}

func TestFetchRange_MalformedPairIsEmpty(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0", "secret")
	assert.Empty(t, c.FetchRange(context.Background(), "BTCUSD", 100, 200))
}
