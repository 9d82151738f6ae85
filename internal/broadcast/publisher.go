package broadcast

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/civicpulse/civicpulse/internal/cache"
	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/scheduler"
)

const (
	refreshInterval = 2 * time.Second
	refreshBurst    = 3
	pushTimeout     = 10 * time.Second
)

// Sink is where the publisher pushes events. The hub implements it; tests
// substitute a recorder.
type Sink interface {
	Publish(event string, payload any)
	PublishTo(conn *websocket.Conn, event string, payload any)
}

// Publisher computes the aggregate views and pushes them to subscribers.
// Every cycle emits, in order: overall counts (as both total-count-update
// and comment-counts-update), USER counts, BUSINESS counts, then the
// weighted breakdown. A failed computation skips only its own events.
type Publisher struct {
	agg     domain.Aggregator
	cache   cache.SnapshotCache
	sink    Sink
	clock   clockwork.Clock
	limiter *rate.Limiter
}

func NewPublisher(agg domain.Aggregator, snapCache cache.SnapshotCache, sink Sink, clock clockwork.Clock) *Publisher {
	return &Publisher{
		agg:     agg,
		cache:   snapCache,
		sink:    sink,
		clock:   clock,
		limiter: rate.NewLimiter(rate.Every(refreshInterval), refreshBurst),
	}
}

// Tick runs one full broadcast cycle and refreshes the snapshot cache.
func (p *Publisher) Tick(ctx context.Context) (scheduler.Outcome, error) {
	start := p.clock.Now()
	defer func() {
		metrics.BroadcastCycleDuration.Observe(p.clock.Since(start).Seconds())
	}()

	published, err := p.cycle(ctx, nil)
	if published == 0 && err != nil {
		return scheduler.OutcomeOK, err
	}
	return scheduler.OutcomeOK, nil
}

// PushInitial sends all current views to a single freshly connected
// subscriber so it does not wait for the next interval.
func (p *Publisher) PushInitial(conn *websocket.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if _, err := p.cycle(ctx, conn); err != nil {
		slog.Warn("Initial subscriber push incomplete", "error", err)
	}
}

// Refresh handles a subscriber-initiated out-of-cycle push. With no event
// name it re-emits the overall counts; with one, just that event.
// Rate-limited so a chatty client cannot hammer the store.
func (p *Publisher) Refresh(eventName string) {
	if !p.limiter.Allow() {
		slog.Debug("Refresh request dropped by rate limit", "event", eventName)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	switch eventName {
	case "", domain.EventTotalCount, domain.EventCommentCounts:
		overall, err := p.agg.Overall(ctx)
		if err != nil {
			p.skip(domain.EventTotalCount, err)
			return
		}
		p.emit(nil, domain.EventTotalCount, overall)
		p.emit(nil, domain.EventCommentCounts, overall)
	case domain.EventNormalCount:
		counts, err := p.agg.ByCategory(ctx, domain.CategoryUser)
		if err != nil {
			p.skip(eventName, err)
			return
		}
		p.emit(nil, eventName, counts)
	case domain.EventIndustrialistCount:
		counts, err := p.agg.ByCategory(ctx, domain.CategoryBusiness)
		if err != nil {
			p.skip(eventName, err)
			return
		}
		p.emit(nil, eventName, counts)
	case domain.EventWeightedTotal:
		weighted, err := p.agg.Weighted(ctx)
		if err != nil {
			p.skip(eventName, err)
			return
		}
		p.emit(nil, eventName, weighted)
	default:
		slog.Debug("Refresh request for unknown event", "event", eventName)
	}
}

// cycle computes and emits the four views in order. A nil target broadcasts
// to everyone; otherwise only the given connection is pushed. Returns how
// many events went out and the last computation error.
func (p *Publisher) cycle(ctx context.Context, target *websocket.Conn) (int, error) {
	published := 0
	var lastErr error
	var snap domain.Snapshot
	complete := true

	if overall, err := p.agg.Overall(ctx); err != nil {
		p.skip(domain.EventTotalCount, err)
		p.skip(domain.EventCommentCounts, err)
		lastErr = err
		complete = false
	} else {
		snap.Overall = overall
		p.emit(target, domain.EventTotalCount, overall)
		p.emit(target, domain.EventCommentCounts, overall)
		published += 2
	}

	if counts, err := p.agg.ByCategory(ctx, domain.CategoryUser); err != nil {
		p.skip(domain.EventNormalCount, err)
		lastErr = err
		complete = false
	} else {
		snap.UserCounts = counts
		p.emit(target, domain.EventNormalCount, counts)
		published++
	}

	if counts, err := p.agg.ByCategory(ctx, domain.CategoryBusiness); err != nil {
		p.skip(domain.EventIndustrialistCount, err)
		lastErr = err
		complete = false
	} else {
		snap.BusinessCounts = counts
		p.emit(target, domain.EventIndustrialistCount, counts)
		published++
	}

	if weighted, err := p.agg.Weighted(ctx); err != nil {
		p.skip(domain.EventWeightedTotal, err)
		lastErr = err
		complete = false
	} else {
		snap.Weighted = weighted
		p.emit(target, domain.EventWeightedTotal, weighted)
		published++
	}

	// Only a fully computed snapshot goes to the cache; a partial one would
	// mix views from different moments.
	if complete && target == nil {
		if err := p.cache.Put(ctx, snap); err != nil {
			slog.Warn("Failed to cache sentiment snapshot", "error", err)
		}
	}

	return published, lastErr
}

func (p *Publisher) emit(target *websocket.Conn, event string, payload any) {
	if target != nil {
		p.sink.PublishTo(target, event, payload)
		return
	}
	p.sink.Publish(event, payload)
}

func (p *Publisher) skip(event string, err error) {
	slog.Error("Skipping broadcast event", "event", event, "error", err)
	metrics.BroadcastEventsTotal.WithLabelValues(event, "skipped").Inc()
}
