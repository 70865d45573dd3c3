package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/metrics"
	"github.com/Spok95/course-feedback/internal/observability"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
	log *zap.Logger
	wg  sync.WaitGroup
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctx: ctx, log: log}
}

func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	err := fn(r.ctx)
	// отмена при остановке не ошибка задачи
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	metrics.ObserveJob(name, time.Since(start), err)
	if err != nil {
		r.log.Warn("job failed", zap.String("job", name), zap.Error(err))
		observability.CaptureErrWith(err, map[string]string{"job": name})
	}
}

// Wait блокируется, пока все воркеры не выйдут после отмены ctx.
func (r *Runner) Wait() { r.wg.Wait() }
