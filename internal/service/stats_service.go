package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ifsertao/permuta-api/internal/dto"
	"github.com/ifsertao/permuta-api/internal/models"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

const statsCacheKey = "stats:dashboard"

type statsReader interface {
	CountsByStatus(ctx context.Context, since time.Time) (models.StatusCounts, error)
	TopProfessors(ctx context.Context, since time.Time, limit int) ([]models.ProfessorSwapCount, error)
	TopDisciplines(ctx context.Context, since time.Time, limit int) ([]models.DisciplineSwapCount, error)
	CountRequestedBetween(ctx context.Context, from, to time.Time) (int, error)
	WeekdayCounts(ctx context.Context, since time.Time) (map[models.Weekday]int, error)
}

type pendingSwapLister interface {
	List(ctx context.Context, filter models.SwapFilter) ([]models.SwapRequest, error)
}

// StatsConfig tunes the aggregation window and ranking size.
type StatsConfig struct {
	WindowDays int
	TopLimit   int
	CacheTTL   time.Duration
}

// StatsService assembles the coordination dashboard: status counts,
// pending requests still missing their make-up session, rankings and
// histograms over a rolling window.
type StatsService struct {
	repo   statsReader
	swaps  pendingSwapLister
	cache  *CacheService
	logger *zap.Logger
	config StatsConfig
	now    func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(repo statsReader, swaps pendingSwapLister, cache *CacheService, logger *zap.Logger, config StatsConfig) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.WindowDays <= 0 {
		config.WindowDays = 180
	}
	if config.TopLimit <= 0 {
		config.TopLimit = 5
	}
	return &StatsService{
		repo:   repo,
		swaps:  swaps,
		cache:  cache,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// Dashboard computes the full statistics payload, serving from cache
// when a fresh entry exists.
func (s *StatsService) Dashboard(ctx context.Context) (*dto.StatsResponse, error) {
	if s.cache.Enabled() {
		var cached dto.StatsResponse
		if hit, err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil && hit {
			cached.GeneratedFromCache = true
			return &cached, nil
		}
	}

	now := s.now().UTC()
	since := now.AddDate(0, 0, -s.config.WindowDays)

	counts, err := s.repo.CountsByStatus(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute status counts")
	}

	pendingWithoutMakeUp, err := s.countPendingWithoutMakeUp(ctx, since)
	if err != nil {
		return nil, err
	}

	topProfessors, err := s.repo.TopProfessors(ctx, since, s.config.TopLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank professors")
	}

	topDisciplines, err := s.repo.TopDisciplines(ctx, since, s.config.TopLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank disciplines")
	}

	monthly, err := s.monthlyHistogram(ctx, now)
	if err != nil {
		return nil, err
	}

	weekdays, err := s.weekdayHistogram(ctx, since)
	if err != nil {
		return nil, err
	}

	response := &dto.StatsResponse{
		Counts:               counts,
		PendingWithoutMakeUp: pendingWithoutMakeUp,
		TopProfessors:        topProfessors,
		TopDisciplines:       topDisciplines,
		MonthlyHistogram:     monthly,
		WeekdayHistogram:     weekdays,
		WindowDays:           s.config.WindowDays,
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, statsCacheKey, response, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache stats dashboard", zap.Error(err))
		}
	}
	return response, nil
}

// Invalidate drops the cached dashboard. Called after swap transitions.
func (s *StatsService) Invalidate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, statsCacheKey); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

func (s *StatsService) countPendingWithoutMakeUp(ctx context.Context, since time.Time) (int, error) {
	pending, err := s.swaps.List(ctx, models.SwapFilter{
		Status: []models.SwapStatus{models.SwapStatusPending},
		From:   &since,
		Limit:  500,
	})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending swaps")
	}
	count := 0
	for i := range pending {
		if !pending[i].HasMakeUp() {
			count++
		}
	}
	return count, nil
}

// monthlyHistogram splits the window into 30-day buckets ending now,
// oldest first, labelled by the bucket's starting month.
func (s *StatsService) monthlyHistogram(ctx context.Context, now time.Time) ([]models.PeriodBucket, error) {
	buckets := s.config.WindowDays / 30
	if buckets <= 0 {
		buckets = 1
	}
	histogram := make([]models.PeriodBucket, 0, buckets)
	for i := buckets; i > 0; i-- {
		from := now.AddDate(0, 0, -30*i)
		to := now.AddDate(0, 0, -30*(i-1))
		count, err := s.repo.CountRequestedBetween(ctx, from, to)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bucket swaps by period")
		}
		histogram = append(histogram, models.PeriodBucket{
			Label: from.Format("01/2006"),
			Count: count,
		})
	}
	return histogram, nil
}

func (s *StatsService) weekdayHistogram(ctx context.Context, since time.Time) ([]models.WeekdayBucket, error) {
	counts, err := s.repo.WeekdayCounts(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bucket swaps by weekday")
	}
	histogram := make([]models.WeekdayBucket, 0, len(models.Weekdays))
	for _, day := range models.Weekdays {
		histogram = append(histogram, models.WeekdayBucket{
			Weekday: day,
			Label:   day.Label(),
			Count:   counts[day],
		})
	}
	return histogram, nil
}
