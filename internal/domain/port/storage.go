package port

import (
	"context"

	"oracleflow/internal/domain/model"
)

// StoragePort is the durable time-series store of price samples, keyed
// uniquely by (pair, timestamp).
type StoragePort interface {
	// InsertSamples upserts the batch atomically and returns the number of
	// rows written. Empty input is a no-op returning 0.
	InsertSamples(ctx context.Context, samples []model.PriceSample) (int, error)

	// QuerySamples returns samples for pair ordered ascending by timestamp.
	// A zero bound is unconstrained.
	QuerySamples(ctx context.Context, pair string, startTime, endTime int64) ([]model.PriceSample, error)

	// Stats reports row count and timestamp extent; Oldest/Newest are nil
	// when the store is empty.
	Stats(ctx context.Context) (model.StoreStats, error)

	// Prune deletes samples older than the horizon and returns the count.
	Prune(ctx context.Context, olderThanHours int) (int64, error)

	// RangeAggregate returns the low/high over [startTime, now] for pair,
	// or nil when no rows are in range.
	RangeAggregate(ctx context.Context, pair string, startTime int64) (*model.PriceRange, error)

	// EarliestAt returns the first sample at or after startTime for pair,
	// or nil when none exists.
	EarliestAt(ctx context.Context, pair string, startTime int64) (*model.PriceSample, error)

	Ping(ctx context.Context) error
	Close() error
}
