// Package scheduler runs each pipeline stage as an independently scheduled
// periodic job. Ticks of different jobs may run concurrently; within one
// job, ticks run strictly one at a time because each job owns a single
// goroutine that finishes a tick before waiting for the next.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/platform/correlation"
	"github.com/jonboulle/clockwork"
)

// Outcome classifies a completed tick. A no-op tick (nothing eligible,
// upstream had no data) is a normal outcome, not an error.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNoop
)

// TickFunc is one scheduled execution of a stage's work.
type TickFunc func(ctx context.Context) (Outcome, error)

type job struct {
	name     string
	interval time.Duration
	fn       TickFunc
}

// Scheduler owns the periodic jobs. Register everything before Start.
type Scheduler struct {
	clock clockwork.Clock
	jobs  []job
	wg    sync.WaitGroup
}

func New(clock clockwork.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

func (s *Scheduler) Register(name string, interval time.Duration, fn TickFunc) {
	s.jobs = append(s.jobs, job{name: name, interval: interval, fn: fn})
}

// Start launches one goroutine per job. It returns immediately; jobs stop
// when ctx is cancelled. Wait blocks until all job goroutines have exited.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, j)
	}
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	defer s.wg.Done()

	slog.Info("Scheduler job started", "job", j.name, "interval", j.interval)

	ticker := s.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler job stopped", "job", j.name)
			return
		case <-ticker.Chan():
			s.runTick(ctx, j)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context, j job) {
	tickCtx := correlation.WithID(ctx, correlation.NewID())
	start := s.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(tickCtx, "Tick panic recovered", "job", j.name, "panic", r)
			metrics.PipelineTicksTotal.WithLabelValues(j.name, "error").Inc()
		}
	}()

	outcome, err := j.fn(tickCtx)
	metrics.PipelineTickDuration.WithLabelValues(j.name).Observe(s.clock.Since(start).Seconds())

	switch {
	case err != nil:
		slog.ErrorContext(tickCtx, "Tick failed", "job", j.name, "error", err)
		metrics.PipelineTicksTotal.WithLabelValues(j.name, "error").Inc()
	case outcome == OutcomeNoop:
		slog.DebugContext(tickCtx, "Tick no-op", "job", j.name)
		metrics.PipelineTicksTotal.WithLabelValues(j.name, "noop").Inc()
	default:
		slog.DebugContext(tickCtx, "Tick completed", "job", j.name, "duration", s.clock.Since(start))
		metrics.PipelineTicksTotal.WithLabelValues(j.name, "ok").Inc()
	}
}
