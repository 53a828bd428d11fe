package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/config"
	"github.com/mamadbah2/farmhub/internal/domain/models"
)

// LowStockSource lists feeds at or below their alert threshold across all owners.
type LowStockSource interface {
	LowStockAll(ctx context.Context) ([]models.Feed, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	feed     LowStockSource
	cfg      config.SchedulerConfig
	lowStock *prometheus.GaugeVec
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance and registers its gauge on reg.
func NewScheduler(cfg config.SchedulerConfig, feed LowStockSource, reg prometheus.Registerer, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone %q: %w", cfg.Timezone, err)
	}

	lowStock := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "farmhub_low_stock_feeds",
		Help: "Feeds at or below their stock alert threshold, per owner, as of the last sweep.",
	}, []string{"owner"})
	if reg != nil {
		if err := reg.Register(lowStock); err != nil {
			return nil, fmt.Errorf("register low stock gauge: %w", err)
		}
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		feed:     feed,
		cfg:      cfg,
		lowStock: lowStock,
		logger:   logger,
	}, nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("low_stock_schedule", s.cfg.LowStockSchedule))

	if _, err := s.cron.AddFunc(s.cfg.LowStockSchedule, s.runLowStockSweep); err != nil {
		return fmt.Errorf("schedule low stock sweep: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runLowStockSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.SweepLowStock(ctx); err != nil {
		s.logger.Error("low stock sweep failed", zap.Error(err))
	}
}

// SweepLowStock refreshes the per-owner gauge and logs one warning per owner
// with low stock. It returns the number of low feeds per owner.
func (s *Scheduler) SweepLowStock(ctx context.Context) (map[string]int, error) {
	feeds, err := s.feed.LowStockAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low stock feeds: %w", err)
	}

	byOwner := make(map[string][]string)
	for _, f := range feeds {
		owner := f.CreatedBy.Hex()
		byOwner[owner] = append(byOwner[owner], f.Name)
	}

	s.lowStock.Reset()
	counts := make(map[string]int, len(byOwner))
	for owner, names := range byOwner {
		counts[owner] = len(names)
		s.lowStock.WithLabelValues(owner).Set(float64(len(names)))
		s.logger.Warn("feeds at or below stock alert",
			zap.String("owner", owner),
			zap.Int("count", len(names)),
			zap.Strings("feeds", names))
	}

	s.logger.Info("low stock sweep completed", zap.Int("owners", len(counts)), zap.Int("feeds", len(feeds)))
	return counts, nil
}
