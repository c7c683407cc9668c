package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"oracleflow/internal/domain/port"
	"oracleflow/internal/infrastructure/metrics"
)

// RetentionService prunes samples past the retention horizon on a schedule,
// plus once at startup. A prune failure is logged and left for the next
// cycle.
type RetentionService struct {
	storage     port.StoragePort
	schedule    string
	maxAgeHours int
	logger      *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewRetentionService(storage port.StoragePort, schedule string, maxAgeHours int, logger *slog.Logger) *RetentionService {
	return &RetentionService{
		storage:     storage,
		schedule:    schedule,
		maxAgeHours: maxAgeHours,
		logger:      logger,
	}
}

// Start schedules the pruning job and runs it once immediately. Calling
// Start again on a running service is a no-op.
func (s *RetentionService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("retention pruning already running")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		s.prune(context.Background())
	}); err != nil {
		s.mu.Unlock()
		return err
	}

	s.cron = c
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting retention pruning",
		"schedule", s.schedule, "max_age_hours", s.maxAgeHours)

	s.prune(ctx)
	c.Start()

	return nil
}

func (s *RetentionService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.cron = nil
	s.running = false
	s.logger.Info("retention pruning stopped")
}

func (s *RetentionService) prune(ctx context.Context) {
	deleted, err := s.storage.Prune(ctx, s.maxAgeHours)
	if err != nil {
		s.logger.Error("retention prune failed, will retry next cycle", "error", err)
		return
	}

	if deleted == 0 {
		return
	}

	metrics.RowsPruned.Add(float64(deleted))

	stats, err := s.storage.Stats(ctx)
	if err != nil {
		s.logger.Info("pruned old price samples", "deleted", deleted)
		return
	}
	s.logger.Info("pruned old price samples", "deleted", deleted, "remaining", stats.TotalRows)
}
