// Package health samples pipeline health on a fixed cadence and raises
// warnings past thresholds. Operators consume the logs and gauges; the
// pipeline itself never reacts.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/scheduler"
	"github.com/jonboulle/clockwork"
)

const (
	recentWindow     = 5 * time.Minute
	failedThreshold  = 10
	pendingThreshold = 20
)

// Sample is one health observation.
type Sample struct {
	Healthy        bool   `json:"healthy"`
	RecentComments int    `json:"recentComments"`
	PendingCount   int    `json:"pendingComments"`
	FailedCount    int    `json:"failedComments"`
	Error          string `json:"error,omitempty"`
}

// Monitor samples comment counts from the store. A store failure yields an
// unhealthy sample; it never crashes the scheduler.
type Monitor struct {
	store domain.CommentStore
	clock clockwork.Clock

	mu   sync.Mutex
	last Sample
}

func NewMonitor(store domain.CommentStore, clock clockwork.Clock) *Monitor {
	return &Monitor{store: store, clock: clock}
}

// Last returns the most recent sample, for the readiness endpoint.
func (m *Monitor) Last() Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *Monitor) Tick(ctx context.Context) (scheduler.Outcome, error) {
	sample := m.sample(ctx)

	m.mu.Lock()
	m.last = sample
	m.mu.Unlock()

	if !sample.Healthy {
		slog.ErrorContext(ctx, "Health check failed", "error", sample.Error)
	} else {
		metrics.HealthFailedComments.Set(float64(sample.FailedCount))
		metrics.HealthPendingComments.Set(float64(sample.PendingCount))
	}

	// One record per tick no matter the outcome, so log-based
	// dashboards see a gap-free series.
	slog.InfoContext(ctx, "System health",
		"healthy", sample.Healthy,
		"recent_comments", sample.RecentComments,
		"pending_comments", sample.PendingCount,
		"failed_comments", sample.FailedCount,
	)

	if !sample.Healthy {
		return scheduler.OutcomeOK, nil
	}

	if sample.FailedCount > failedThreshold || sample.PendingCount > pendingThreshold {
		slog.WarnContext(ctx, "System health warning",
			"failed_comments", sample.FailedCount,
			"pending_comments", sample.PendingCount,
		)
	}

	return scheduler.OutcomeOK, nil
}

func (m *Monitor) sample(ctx context.Context) Sample {
	if err := m.store.Ping(ctx); err != nil {
		return Sample{Healthy: false, Error: err.Error()}
	}

	recent, err := m.store.CountCreatedSince(ctx, m.clock.Now().Add(-recentWindow))
	if err != nil {
		return Sample{Healthy: false, Error: err.Error()}
	}
	pending, err := m.store.CountPending(ctx)
	if err != nil {
		return Sample{Healthy: false, Error: err.Error()}
	}
	failed, err := m.store.CountFailed(ctx)
	if err != nil {
		return Sample{Healthy: false, Error: err.Error()}
	}

	return Sample{
		Healthy:        true,
		RecentComments: recent,
		PendingCount:   pending,
		FailedCount:    failed,
	}
}
