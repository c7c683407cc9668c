package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"oracleflow/internal/domain/model"
	"oracleflow/internal/domain/port"
	"oracleflow/internal/infrastructure/metrics"
)

// ErrNoSeedData is returned when every pair failed to yield history.
var ErrNoSeedData = errors.New("no historical data fetched")

const seedWindowHours = 24

// PairSeedResult is the per-pair outcome of a backfill run.
type PairSeedResult struct {
	Pair       string `json:"pair"`
	DataPoints int    `json:"dataPoints"`
}

// SeedResult summarizes a backfill run.
type SeedResult struct {
	TotalInserted   int              `json:"totalInserted"`
	TotalDataPoints int              `json:"totalDataPoints"`
	Summary         []PairSeedResult `json:"summary"`
	StartTime       time.Time        `json:"startTime"`
}

// SeedService populates the store with historical samples from the
// authoritative history provider for the fully-tracked pairs.
type SeedService struct {
	storage  port.StoragePort
	provider port.BackfillPort
	hasKey   bool
	pairs    []string
	logger   *slog.Logger
	now      func() time.Time
}

func NewSeedService(storage port.StoragePort, provider port.BackfillPort, hasKey bool, pairs []string, logger *slog.Logger) *SeedService {
	return &SeedService{
		storage:  storage,
		provider: provider,
		hasKey:   hasKey,
		pairs:    pairs,
		logger:   logger,
		now:      time.Now,
	}
}

// SeedIfEmpty backfills once at startup. Skipped when the store already has
// rows or no API credential is configured; neither case is an error.
func (s *SeedService) SeedIfEmpty(ctx context.Context) error {
	stats, err := s.storage.Stats(ctx)
	if err != nil {
		return err
	}

	if stats.TotalRows > 0 {
		s.logger.Info("store already seeded",
			"rows", stats.TotalRows, "oldest", deref(stats.Oldest), "newest", deref(stats.Newest))
		return nil
	}

	if !s.hasKey {
		s.logger.Warn("history API key not set, skipping historical data seeding")
		return nil
	}

	s.logger.Info("store empty, fetching historical data",
		"hours", seedWindowHours, "pairs", s.pairs)

	result, err := s.Backfill(ctx)
	if err != nil {
		s.logger.Error("startup seeding failed", "error", err)
		return err
	}

	s.logger.Info("seeded historical data",
		"inserted", result.TotalInserted, "summary", result.Summary)
	return nil
}

// Backfill fetches the seed window for every configured pair concurrently
// and persists whatever came back. It fails only when all pairs failed.
func (s *SeedService) Backfill(ctx context.Context) (SeedResult, error) {
	endTime := s.now().Unix()
	startTime := endTime - seedWindowHours*3600

	results := make([][]model.PriceSample, len(s.pairs))
	var wg sync.WaitGroup
	for i, pair := range s.pairs {
		wg.Add(1)
		go func(i int, pair string) {
			defer wg.Done()
			results[i] = s.provider.FetchRange(ctx, pair, startTime, endTime)
		}(i, pair)
	}
	wg.Wait()

	var allRows []model.PriceSample
	summary := make([]PairSeedResult, len(s.pairs))
	for i, pair := range s.pairs {
		summary[i] = PairSeedResult{Pair: pair, DataPoints: len(results[i])}
		allRows = append(allRows, results[i]...)
	}

	if len(allRows) == 0 {
		return SeedResult{Summary: summary}, ErrNoSeedData
	}

	inserted, err := s.storage.InsertSamples(ctx, allRows)
	if err != nil {
		return SeedResult{Summary: summary}, err
	}
	metrics.SamplesInserted.Add(float64(inserted))

	return SeedResult{
		TotalInserted:   inserted,
		TotalDataPoints: len(allRows),
		Summary:         summary,
		StartTime:       time.Unix(startTime, 0).UTC(),
	}, nil
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
