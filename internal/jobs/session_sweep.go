package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/metrics"
)

const SessionSweepName = "session_sweep"

type Sweeper interface {
	Sweep(now time.Time) int
}

// SessionSweep удаляет просроченные сессии (и их мастера).
func SessionSweep(s Sweeper, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		n := s.Sweep(time.Now())
		if n == 0 {
			return ctx.Err()
		}
		metrics.SessionsExpired.Add(float64(n))
		if log != nil {
			log.Info("expired sessions removed", zap.Int("count", n))
		}
		return ctx.Err()
	}
}
