package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/fitlog/internal/fitness/workouts"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type logsRepo interface {
	ListAllWithExercise(ctx context.Context) ([]workouts.LogEntry, error)
}

type Service struct {
	repo    logsRepo
	cache   *Cache
	opts    Options
	metrics *metrics.Manager
}

// NewService creates the stats service. cache may be nil.
func NewService(repo logsRepo, cache *Cache, opts Options, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		opts:    opts,
		metrics: metricsManager,
	}
}

func (s *Service) GetFitnessStats(ctx context.Context, now time.Time) (_ *FitnessStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.stats.get-fitness-stats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	day := s.opts.Calendar.Day(now)
	span.SetAttributes(attribute.String("day", day.String()))

	cacheKey := ""
	if s.cache != nil {
		cacheKey, err = s.cache.Key(ctx, s.opts.Calendar.Name(), day)
		if err != nil {
			log.Warnf("stats cache bypassed: %s", err)
			s.metrics.CounterStatsCache.WithLabelValues("bypass").Inc()
			err = nil
		} else if cached, ok := s.cache.Get(cacheKey); ok {
			s.metrics.CounterStatsCache.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("cached", true))
			return cached, nil
		} else {
			s.metrics.CounterStatsCache.WithLabelValues("miss").Inc()
		}
	}

	logs, err := s.repo.ListAllWithExercise(ctx)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}

	start := time.Now()
	stats := Compute(logs, now, s.opts)
	s.metrics.HistStatsComputeDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("logs", len(logs)))

	if cacheKey != "" {
		if err := s.cache.Set(cacheKey, &stats); err != nil {
			log.Errorf("failed to cache stats: %s", err)
			s.metrics.CounterStatsCache.WithLabelValues("store_failed").Inc()
		}
	}

	return &stats, nil
}
