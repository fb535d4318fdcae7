// Package scheduler запускает задачу через равные интервалы,
// выровненные по границе интервала.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job — задача, запускаемая по расписанию.
type Job func(ctx context.Context) error

// Scheduler вызывает Job каждые Interval. Каждый запуск идёт в отдельной
// горутине, поэтому долгий запуск не сдвигает расписание; пересечение
// запусков должна разрешать сама задача.
type Scheduler struct {
	Interval time.Duration
	Job      Job
	Log      *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(interval time.Duration, job Job, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{Interval: interval, Job: job, Log: log, now: time.Now, after: time.After}
}

// Next возвращает ближайшую границу интервала после t.
func Next(t time.Time, interval time.Duration) time.Time {
	next := t.Truncate(interval)
	if !next.After(t) {
		next = next.Add(interval)
	}
	return next
}

// Run блокируется до отмены ctx. Запущенные задачи получают тот же ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.now()
		next := Next(now, s.Interval)
		s.Log.Debug("следующий запуск", zap.Time("at", next))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(next.Sub(now)):
		}
		go s.fire(ctx)
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("паника в задаче по расписанию", zap.Any("panic", r))
		}
	}()
	if err := s.Job(ctx); err != nil {
		s.Log.Warn("задача по расписанию завершилась с ошибкой", zap.Error(err))
	}
}
