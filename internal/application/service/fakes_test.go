package service

import (
	"context"
	"log/slog"
	"sync"

	"oracleflow/internal/domain/model"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type fakeStorage struct {
	mu sync.Mutex

	samples  []model.PriceSample
	queryErr error

	inserted  [][]model.PriceSample
	insertErr error

	storeStats model.StoreStats
	statsErr   error

	pruned     int64
	pruneErr   error
	pruneCalls int

	rng      *model.PriceRange
	earliest *model.PriceSample
}

func (f *fakeStorage) InsertSamples(ctx context.Context, samples []model.PriceSample) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserted = append(f.inserted, samples)
	return len(samples), nil
}

func (f *fakeStorage) QuerySamples(ctx context.Context, pair string, startTime, endTime int64) ([]model.PriceSample, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.samples, nil
}

func (f *fakeStorage) Stats(ctx context.Context) (model.StoreStats, error) {
	return f.storeStats, f.statsErr
}

func (f *fakeStorage) Prune(ctx context.Context, olderThanHours int) (int64, error) {
	f.mu.Lock()
	f.pruneCalls++
	f.mu.Unlock()
	return f.pruned, f.pruneErr
}

func (f *fakeStorage) RangeAggregate(ctx context.Context, pair string, startTime int64) (*model.PriceRange, error) {
	return f.rng, nil
}

func (f *fakeStorage) EarliestAt(ctx context.Context, pair string, startTime int64) (*model.PriceSample, error) {
	return f.earliest, nil
}

func (f *fakeStorage) Ping(ctx context.Context) error { return nil }
func (f *fakeStorage) Close() error                   { return nil }

type fakeMedian struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
	calls  int
}

func (f *fakeMedian) FetchOne(ctx context.Context, pair string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.prices[pair], nil
}

func (f *fakeMedian) FetchBatch(ctx context.Context, pairs []string) (map[string]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

type fakeRefStats struct {
	stats map[string]model.RefStats
}

func (f *fakeRefStats) FetchStats(ctx context.Context, pair string) *model.RefStats {
	if s, ok := f.stats[pair]; ok {
		return &s
	}
	return nil
}

func (f *fakeRefStats) FetchMultiple(ctx context.Context, pairs []string) map[string]model.RefStats {
	out := make(map[string]model.RefStats)
	for _, p := range pairs {
		if s, ok := f.stats[p]; ok {
			out[p] = s
		}
	}
	return out
}

type fakeBackfill struct {
	mu      sync.Mutex
	samples map[string][]model.PriceSample
	calls   int
}

func (f *fakeBackfill) FetchRange(ctx context.Context, pair string, startTime, endTime int64) []model.PriceSample {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.samples[pair]
}
