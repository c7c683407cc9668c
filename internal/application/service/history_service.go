package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"oracleflow/internal/domain/model"
	"oracleflow/internal/domain/port"
	"oracleflow/internal/infrastructure/metrics"
)

// SourceOracle and SourceBybit name the provenance of a returned series.
const (
	SourceOracle = "oracle"
	SourceBybit  = "bybit"
)

// HistoryService serves a pair's time series for charting: store first,
// candle backfill when the store is sparse, then bucket-mean downsampling.
type HistoryService struct {
	storage     port.StoragePort
	backfill    port.BackfillPort
	fullHistory map[string]bool
	minPoints   int
	logger      *slog.Logger
	now         func() time.Time
}

func NewHistoryService(
	storage port.StoragePort,
	backfill port.BackfillPort,
	fullHistoryPairs []string,
	minPoints int,
	logger *slog.Logger,
) *HistoryService {
	full := make(map[string]bool, len(fullHistoryPairs))
	for _, p := range fullHistoryPairs {
		full[p] = true
	}

	return &HistoryService{
		storage:     storage,
		backfill:    backfill,
		fullHistory: full,
		minPoints:   minPoints,
		logger:      logger,
		now:         time.Now,
	}
}

// GetHistory returns the (possibly downsampled) series for pair over the
// last windowSeconds, with the source that supplied it. A pair unknown to
// every provider yields an empty series, not an error.
func (s *HistoryService) GetHistory(ctx context.Context, pair string, windowSeconds, bucketSeconds int64) ([]model.HistoryPoint, string) {
	now := s.now().Unix()
	startTime := now - windowSeconds

	samples, err := s.storage.QuerySamples(ctx, pair, startTime, now)
	if err != nil {
		// read path is best-effort; the backfill provider may still answer
		s.logger.Error("history store query failed", "pair", pair, "error", err)
		samples = nil
	}

	source := SourceOracle
	if !s.fullHistory[pair] || len(samples) < s.minPoints {
		alt := s.backfill.FetchRange(ctx, pair, startTime, now)
		// strictly more points wins; ties keep the oracle-derived series
		if len(alt) > len(samples) {
			samples = alt
			source = SourceBybit
			metrics.BackfillFallbacks.Inc()
		}
	}

	points := make([]model.HistoryPoint, 0, len(samples))
	for _, sm := range samples {
		points = append(points, model.HistoryPoint{
			Pair:      sm.Pair,
			Price:     sm.Price,
			Decimals:  sm.Decimals,
			Timestamp: sm.Timestamp,
		})
	}

	if bucketSeconds > 0 && len(points) > 0 {
		points = Downsample(points, bucketSeconds)
	}

	return points, source
}

// Downsample partitions points into fixed-width buckets keyed by
// floor(timestamp/interval)*interval and reduces each to its mean price at
// the bucket start. Empty buckets are never emitted.
func Downsample(points []model.HistoryPoint, intervalSeconds int64) []model.HistoryPoint {
	if intervalSeconds <= 0 || len(points) == 0 {
		return points
	}

	type bucket struct {
		first model.HistoryPoint
		sum   float64
		count int
	}

	buckets := make(map[int64]*bucket)
	for _, p := range points {
		key := p.Timestamp / intervalSeconds * intervalSeconds
		b, ok := buckets[key]
		if !ok {
			b = &bucket{first: p}
			buckets[key] = b
		}
		b.sum += p.Price
		b.count++
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]model.HistoryPoint, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		out = append(out, model.HistoryPoint{
			Pair:      b.first.Pair,
			Price:     b.sum / float64(b.count),
			Decimals:  b.first.Decimals,
			Timestamp: k,
		})
	}

	return out
}
