package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"oracleflow/internal/domain/model"
	"oracleflow/internal/domain/port"
	"oracleflow/internal/infrastructure/config"
	"oracleflow/internal/infrastructure/metrics"
)

const snapshotCacheKey = "prices:all"

// hoursPerDay worth of seconds, the lookback for store-derived stats.
const statsLookbackSeconds = 24 * 60 * 60

// SnapshotService assembles the current per-pair asset records: authoritative
// oracle medians joined with reference exchange stats, persisted as samples
// and memoized under a short TTL.
type SnapshotService struct {
	median  port.MedianPort
	stats   port.RefStatsPort
	storage port.StoragePort
	cache   port.CachePort
	pairs   []config.PairConfig
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewSnapshotService(
	median port.MedianPort,
	stats port.RefStatsPort,
	storage port.StoragePort,
	cache port.CachePort,
	pairs []config.PairConfig,
	ttl time.Duration,
	logger *slog.Logger,
) *SnapshotService {
	return &SnapshotService{
		median:  median,
		stats:   stats,
		storage: storage,
		cache:   cache,
		pairs:   pairs,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// persistReport is the outcome of the best-effort sample write that follows
// a fresh fetch. It never fails the snapshot request.
type persistReport struct {
	inserted int
	err      error
}

// GetSnapshot returns the tracked pairs in configured order. Served from the
// result cache when fresh; otherwise the oracle batch and reference stats
// are fetched concurrently. A terminal median failure fails the whole call.
func (s *SnapshotService) GetSnapshot(ctx context.Context) ([]model.AssetSnapshot, error) {
	if cached, ok := s.cachedSnapshot(ctx); ok {
		metrics.SnapshotCacheHits.Inc()
		return cached, nil
	}

	tracked := make([]string, 0, len(s.pairs))
	for _, p := range s.pairs {
		tracked = append(tracked, p.Pair)
	}

	var (
		wg       sync.WaitGroup
		medians  map[string]float64
		medErr   error
		refStats map[string]model.RefStats
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		medians, medErr = s.median.FetchBatch(ctx, tracked)
	}()
	go func() {
		defer wg.Done()
		refStats = s.stats.FetchMultiple(ctx, tracked)
	}()
	wg.Wait()

	if medErr != nil {
		return nil, medErr
	}

	assets := make([]model.AssetSnapshot, 0, len(s.pairs))
	for _, p := range s.pairs {
		price := medians[p.Pair] // zero when the oracle did not report the pair
		assets = append(assets, s.buildSnapshot(ctx, p, price, refStats))
	}

	report := s.persistMedians(ctx, medians)
	if report.err != nil {
		s.logger.Warn("failed to persist price samples", "error", report.err)
	} else if report.inserted > 0 {
		metrics.SamplesInserted.Add(float64(report.inserted))
		s.logger.Debug("persisted price samples", "count", report.inserted)
	}

	s.cacheSnapshot(ctx, assets)

	return assets, nil
}

func (s *SnapshotService) buildSnapshot(ctx context.Context, p config.PairConfig, price float64, refStats map[string]model.RefStats) model.AssetSnapshot {
	asset := model.AssetSnapshot{
		Symbol:    p.Pair,
		Name:      p.Name,
		Price:     price,
		Change24h: 0,
		High24h:   price,
		Low24h:    price,
		MarketCap: p.MarketCap,
	}

	if stats, ok := refStats[p.Pair]; ok {
		asset.Change24h = stats.Change24h
		asset.High24h = stats.High24h
		asset.Low24h = stats.Low24h
		return asset
	}

	// No reference metadata; fall back to stats derived from stored samples
	// before settling for the documented defaults.
	if stats := s.storedStats(ctx, p.Pair, price); stats != nil {
		asset.Change24h = stats.Change24h
		asset.High24h = stats.High24h
		asset.Low24h = stats.Low24h
	}

	return asset
}

// storedStats computes 24h change/high/low purely from the time-series
// store. Returns nil when no rows are in range or the read fails.
func (s *SnapshotService) storedStats(ctx context.Context, pair string, currentPrice float64) *model.RefStats {
	startTime := s.now().Unix() - statsLookbackSeconds

	rng, err := s.storage.RangeAggregate(ctx, pair, startTime)
	if err != nil {
		s.logger.Warn("stored stats range lookup failed", "pair", pair, "error", err)
		return nil
	}
	if rng == nil {
		return nil
	}

	earliest, err := s.storage.EarliestAt(ctx, pair, startTime)
	if err != nil {
		s.logger.Warn("stored stats earliest lookup failed", "pair", pair, "error", err)
		return nil
	}
	if earliest == nil || earliest.Price == 0 {
		return nil
	}

	return &model.RefStats{
		Change24h: (currentPrice - earliest.Price) / earliest.Price * 100,
		High24h:   rng.High,
		Low24h:    rng.Low,
	}
}

func (s *SnapshotService) persistMedians(ctx context.Context, medians map[string]float64) persistReport {
	if len(medians) == 0 {
		return persistReport{}
	}

	ts := s.now().Unix()
	samples := make([]model.PriceSample, 0, len(medians))
	for _, p := range s.pairs {
		price, ok := medians[p.Pair]
		if !ok {
			continue
		}
		samples = append(samples, model.PriceSample{
			Pair:      p.Pair,
			Price:     price,
			Decimals:  6,
			Timestamp: ts,
		})
	}

	inserted, err := s.storage.InsertSamples(ctx, samples)
	return persistReport{inserted: inserted, err: err}
}

func (s *SnapshotService) cachedSnapshot(ctx context.Context) ([]model.AssetSnapshot, bool) {
	data, ok, err := s.cache.Get(ctx, snapshotCacheKey)
	if err != nil {
		s.logger.Warn("snapshot cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var assets []model.AssetSnapshot
	if err := json.Unmarshal(data, &assets); err != nil {
		s.logger.Warn("snapshot cache entry malformed", "error", err)
		return nil, false
	}
	return assets, true
}

func (s *SnapshotService) cacheSnapshot(ctx context.Context, assets []model.AssetSnapshot) {
	data, err := json.Marshal(assets)
	if err != nil {
		s.logger.Warn("failed to marshal snapshot for cache", "error", err)
		return
	}
	if err := s.cache.Set(ctx, snapshotCacheKey, data, s.ttl); err != nil {
		s.logger.Warn("snapshot cache write failed", "error", err)
	}
}
