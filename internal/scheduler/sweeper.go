// Package scheduler runs the periodic reclamation of lapsed capacity
// holds.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/courtside/tournament-registration/internal/logger"
)

// SweepFunc performs one reclamation pass and reports how many holds it
// released.
type SweepFunc func(ctx context.Context) (int, error)

// Sweeper invokes a SweepFunc on a fixed interval.  It is restartable:
// Stop then Start yields a fresh run loop.  Overlapping passes are
// prevented with a single-flight guard; if a pass is still running when
// the next tick fires, the tick is skipped rather than queued.
type Sweeper struct {
	interval time.Duration
	sweep    SweepFunc
	log      *logger.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running sync.Mutex
}

func NewSweeper(interval time.Duration, sweep SweepFunc, log *logger.Logger) *Sweeper {
	return &Sweeper{interval: interval, sweep: sweep, log: log}
}

// Start launches the run loop.  Calling Start on a running sweeper is a
// no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	s.log.Info("sweeper started", "interval", s.interval.String())
}

// Stop terminates the run loop and waits for an in-flight pass to
// finish.  Calling Stop on a stopped sweeper is a no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	s.log.Info("sweeper stopped")
}

func (s *Sweeper) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.RunOnce(context.Background())
		}
	}
}

// RunOnce performs a single pass unless one is already in flight.
// Exposed so tests and admin tooling can trigger a sweep directly.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if !s.running.TryLock() {
		s.log.Warn("sweep still in flight, skipping tick")
		return
	}
	defer s.running.Unlock()

	n, err := s.sweep(ctx)
	if err != nil {
		s.log.Error("sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("expired holds reclaimed", "count", n)
	}
}
