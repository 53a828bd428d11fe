package reporting

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository"
	"github.com/mamadbah2/farmhub/internal/service/ownership"
)

// FinanceSummarizer totals finance entries over a period.
type FinanceSummarizer interface {
	Summary(ctx context.Context, owner primitive.ObjectID, from, to *time.Time) (models.FinanceSummary, error)
}

// Service exposes lightweight analytics for the dashboard.
type Service struct {
	cattle   repository.CattleStore
	feed     repository.FeedStore
	finances FinanceSummarizer
	logger   *zap.Logger
	now      ownership.Clock
}

// NewService wires a new reporting service instance.
func NewService(cattle repository.CattleStore, feed repository.FeedStore, finances FinanceSummarizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cattle: cattle, feed: feed, finances: finances, logger: logger}
}

// Overview aggregates herd, inventory and finance figures for owner. The
// finance block covers [from, to]; nil bounds are open.
func (s *Service) Overview(ctx context.Context, owner primitive.ObjectID, from, to *time.Time) (*models.FarmOverview, error) {
	herd, err := s.cattle.Find(ctx, owner, repository.ListOptions{Exclude: []string{"healthRecords"}})
	if err != nil {
		return nil, fmt.Errorf("load cattle: %w", err)
	}
	feeds, err := s.feed.Find(ctx, owner, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	summary, err := s.finances.Summary(ctx, owner, from, to)
	if err != nil {
		return nil, err
	}

	overview := &models.FarmOverview{
		Cattle:      len(herd),
		FeedItems:   len(feeds),
		Finance:     summary,
		GeneratedAt: s.now.Now(),
	}
	for _, c := range herd {
		switch c.Gender {
		case models.GenderMale:
			overview.Male++
		case models.GenderFemale:
			overview.Female++
		}
	}
	for _, f := range feeds {
		if f.LowStock() {
			overview.LowStockFeeds++
		}
	}

	s.logger.Debug("overview generated",
		zap.String("owner", owner.Hex()),
		zap.Int("cattle", overview.Cattle),
		zap.Int("low_stock_feeds", overview.LowStockFeeds))
	return overview, nil
}
