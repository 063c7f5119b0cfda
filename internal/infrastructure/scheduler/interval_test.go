package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerWaitRunsJobImmediately(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := NewIntervalScheduler(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(context.Background())

	s.TriggerWait()
	if got := runs.Load(); got != 1 {
		t.Fatalf("expected 1 run after trigger, got %d", got)
	}

	s.TriggerWait()
	if got := runs.Load(); got != 2 {
		t.Fatalf("expected 2 runs after second trigger, got %d", got)
	}
}

func TestStopHaltsTicking(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := NewIntervalScheduler(time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	settled := runs.Load()
	if settled == 0 {
		t.Fatal("expected at least one run before stop")
	}

	time.Sleep(20 * time.Millisecond)
	if got := runs.Load(); got != settled {
		t.Fatalf("job ran after stop: %d -> %d", settled, got)
	}
}

func TestStartTwiceReturnsError(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(context.Background())

	if err := s.Start(ctx, func(time.Time) {}); err == nil {
		t.Fatal("expected error from second Start")
	}
}

func TestTriggerWaitConcurrentWithStop(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := NewIntervalScheduler(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				s.TriggerWait()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Stop(context.Background())
	}()
	wg.Wait()

	// stopped schedulers must not block late callers
	s.TriggerWait()
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestTriggerWaitReturnsAfterContextCancel(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("start: %v", err)
	}

	cancel()

	finished := make(chan struct{})
	go func() {
		s.TriggerWait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("TriggerWait blocked after context cancellation")
	}
}

func TestStartWithNilJobIsNoop(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Millisecond, time.Millisecond)
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("start with nil job: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop without start: %v", err)
	}
}
