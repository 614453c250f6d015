package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type articleCounter interface {
	CountByStatus(ctx context.Context) ([]models.ArticleStatusCount, error)
}

type sourceCounter interface {
	Counts(ctx context.Context) (total int, active int, err error)
}

type sessionCounter interface {
	CountActive(ctx context.Context, now time.Time) (int, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MonitoringService aggregates dashboard statistics.
type MonitoringService struct {
	articles articleCounter
	sources  sourceCounter
	sessions sessionCounter
	metrics  *MetricsService
	db       Pinger
	logger   *zap.Logger
	now      func() time.Time
}

// NewMonitoringService constructs the monitoring service. db may be nil when readiness is not checked.
func NewMonitoringService(articles articleCounter, sources sourceCounter, sessions sessionCounter, metrics *MetricsService, db Pinger, logger *zap.Logger) *MonitoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringService{
		articles: articles,
		sources:  sources,
		sessions: sessions,
		metrics:  metrics,
		db:       db,
		logger:   logger,
		now:      time.Now,
	}
}

// Stats returns content counts, the active session count and a process snapshot.
func (s *MonitoringService) Stats(ctx context.Context) (*models.MonitoringStats, error) {
	counts, err := s.articles.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count articles")
	}
	if counts == nil {
		counts = []models.ArticleStatusCount{}
	}
	total, active, err := s.sources.Counts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sources")
	}
	sessions, err := s.sessions.CountActive(ctx, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	return &models.MonitoringStats{
		Articles:       counts,
		Sources:        total,
		ActiveSources:  active,
		ActiveSessions: sessions,
		System:         s.metrics.Snapshot(),
	}, nil
}

// Ready pings the database.
func (s *MonitoringService) Ready(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "database unavailable")
	}
	return nil
}
