package service

import (
	"context"
	"fmt"
	"time"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/models"
	"hotelbooking/internal/repository"

	"github.com/rs/zerolog"
)

const dashboardCacheKey = "dashboard:stats"

type DashboardService struct {
	repo   domain.StatsRepository
	cache  domain.CacheRepository
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time
}

func NewDashboardService(repo domain.StatsRepository, cache domain.CacheRepository, ttl time.Duration, logger *zerolog.Logger) *DashboardService {
	return &DashboardService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Stats returns the dashboard snapshot, served from cache while fresh.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	if s.cache != nil && s.ttl > 0 {
		var cached models.DashboardStats
		ok, err := repository.GetJSON(ctx, s.cache, dashboardCacheKey, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Dashboard cache read failed")
		}
		if ok {
			return &cached, nil
		}
	}

	stats, err := s.repo.GetDashboardStats(ctx, booking.NormalizeDate(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to build dashboard stats: %w", err)
	}

	if s.cache != nil && s.ttl > 0 {
		if err := repository.SetJSON(ctx, s.cache, dashboardCacheKey, stats, s.ttl); err != nil {
			s.logger.Warn().Err(err).Msg("Dashboard cache write failed")
		}
	}
	return stats, nil
}

func (s *DashboardService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, dashboardCacheKey)
}

// SubscribeInvalidation drops the cached snapshot on every domain event.
func (s *DashboardService) SubscribeInvalidation(bus *events.EventBus) {
	bus.Subscribe(events.AllEvents, func(event *events.Event) error {
		return s.Invalidate(context.Background())
	})
}
