package port

import (
	"context"

	"oracleflow/internal/domain/model"
)

// MedianPort fetches the authoritative oracle median price for pairs.
// Implementations retry internally; a returned error is terminal.
type MedianPort interface {
	FetchOne(ctx context.Context, pair string) (float64, error)
	// FetchBatch returns a pair -> price map. Pairs absent from the oracle
	// output are simply missing from the map.
	FetchBatch(ctx context.Context, pairs []string) (map[string]float64, error)
}

// RefStatsPort fetches 24h reference statistics from an exchange API.
// A nil result means "no metadata", never a fatal condition.
type RefStatsPort interface {
	FetchStats(ctx context.Context, pair string) *model.RefStats
	FetchMultiple(ctx context.Context, pairs []string) map[string]model.RefStats
}

// BackfillPort fetches a pair's past price series from an external history
// source. Failures degrade to an empty slice, never an error.
type BackfillPort interface {
	FetchRange(ctx context.Context, pair string, startTime, endTime int64) []model.PriceSample
}
