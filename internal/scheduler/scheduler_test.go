package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNext(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 20, 0, 0, time.UTC)
	if got := Next(base, time.Hour); !got.Equal(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("неверный следующий запуск: %v", got)
	}
	onBoundary := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	if got := Next(onBoundary, time.Hour); !got.Equal(onBoundary.Add(time.Hour)) {
		t.Fatalf("запуск на границе должен сдвигаться вперёд, получено %v", got)
	}
	if got := Next(base, 15*time.Minute); !got.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("неверный следующий запуск (15 минут): %v", got)
	}
}

func TestRunFiresAndStops(t *testing.T) {
	ticks := make(chan time.Time)
	fired := make(chan struct{}, 4)
	s := New(time.Hour, func(context.Context) error {
		fired <- struct{}{}
		return errors.New("cycle failed")
	}, nil)
	s.after = func(time.Duration) <-chan time.Time { return ticks }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	ticks <- time.Now()
	ticks <- time.Now()
	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("задача не запустилась")
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("ожидалась context.Canceled, получена: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("расписание не остановилось")
	}
}

func TestFireRecoversPanic(t *testing.T) {
	s := New(time.Hour, func(context.Context) error { panic("boom") }, nil)
	s.fire(context.Background())
}
