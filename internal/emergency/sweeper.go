package emergency

import (
	"context"
	"time"

	"GuardianPath/internal/models"

	"go.uber.org/zap"
)

type StaleSource interface {
	StaleActiveEvents(ctx context.Context, before time.Time) ([]models.PanicEvent, error)
}

type StaleGauge interface {
	SetStaleActiveEvents(n int)
}

// Sweeper reports events still active after MaxAge, which only happens when
// the process died mid-pipeline. It never changes an event's status.
type Sweeper struct {
	Source StaleSource
	Gauge  StaleGauge
	MaxAge time.Duration
	Logger *zap.Logger
	Now    func() time.Time
}

func (s *Sweeper) Run(ctx context.Context) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	events, err := s.Source.StaleActiveEvents(ctx, now().Add(-s.MaxAge))
	if err != nil {
		log.Warn("stale sweep failed", zap.Error(err))
		return
	}
	for _, ev := range events {
		log.Warn("panic event stuck in active state",
			zap.String("panic_id", ev.PanicID),
			zap.Uint("user_id", ev.UserID),
			zap.Time("created_at", ev.CreatedAt))
	}
	if s.Gauge != nil {
		s.Gauge.SetStaleActiveEvents(len(events))
	}
}
