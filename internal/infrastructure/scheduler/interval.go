package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ClaimsPlatform/internal/ports"
)

// IntervalScheduler runs a job on a fixed period after an initial delay.
// TriggerWait forces an immediate run for deterministic tests and tooling.
// Safe for concurrent use: the channels are created once in Start and only
// ever closed, never reassigned, so TriggerWait can be called from any
// goroutine.
type IntervalScheduler struct {
	initialDelay time.Duration
	interval     time.Duration

	mu      sync.Mutex
	stopped bool
	trigger chan chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler with the given delay and period.
func NewIntervalScheduler(initialDelay, interval time.Duration) *IntervalScheduler {
	return &IntervalScheduler{
		initialDelay: initialDelay,
		interval:     interval,
	}
}

// Start launches the ticking goroutine. A second Start is an error.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return fmt.Errorf("scheduler already started")
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.trigger = make(chan chan struct{})

	go s.run(ctx, job, s.trigger, s.stop, s.done)

	return nil
}

// run owns the timer loop. done is closed on every exit path so TriggerWait
// never blocks on a scheduler that is no longer running.
func (s *IntervalScheduler) run(ctx context.Context, job func(time.Time), trigger chan chan struct{}, stop, done chan struct{}) {
	defer close(done)

	delay := time.NewTimer(s.initialDelay)
	defer delay.Stop()

	select {
	case t := <-delay.C:
		job(t)
	case req := <-trigger:
		job(time.Now())
		close(req)
	case <-ctx.Done():
		return
	case <-stop:
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case t := <-ticker.C:
			job(t)
		case req := <-trigger:
			job(time.Now())
			close(req)
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// TriggerWait runs the job out of band and returns once it completes. It
// returns immediately when the scheduler never started or already exited.
func (s *IntervalScheduler) TriggerWait() {
	s.mu.Lock()
	trigger, stop, done := s.trigger, s.stop, s.done
	s.mu.Unlock()

	if trigger == nil {
		return
	}

	req := make(chan struct{})
	select {
	case trigger <- req:
		<-req
	case <-stop:
	case <-done:
	}
}

// Stop halts the ticking goroutine. Safe to call more than once.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil || s.stopped {
		return nil
	}
	s.stopped = true
	close(s.stop)
	return nil
}
