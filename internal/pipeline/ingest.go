package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/platform/retry"
	"github.com/civicpulse/civicpulse/internal/scheduler"
)

const ingestAttempts = 3

// IngestStage fetches one newly generated comment per tick and persists it
// as a RAW record. A tick that gets no data after all attempts is a no-op.
type IngestStage struct {
	store  domain.CommentStore
	client domain.GenerationClient
}

func NewIngestStage(store domain.CommentStore, client domain.GenerationClient) *IngestStage {
	return &IngestStage{store: store, client: client}
}

func (s *IngestStage) Tick(ctx context.Context) (scheduler.Outcome, error) {
	policy := retry.Policy{
		MaxAttempts: ingestAttempts,
		OnRetry: func(attempt int, err error, _ time.Duration) {
			slog.DebugContext(ctx, "Generation fetch retrying", "attempt", attempt, "error", err)
		},
	}
	classify := func(err error) retry.Action {
		if errors.Is(err, context.Canceled) {
			return retry.Stop
		}
		return retry.Retry
	}

	nc, err := retry.Do(ctx, policy, classify, func() (*domain.NewComment, error) {
		return s.client.Generate(ctx)
	})
	if err != nil {
		// All attempts failed or the upstream had nothing to give.
		// Either way this tick produces no comment.
		slog.InfoContext(ctx, "No comment ingested", "reason", err)
		return scheduler.OutcomeNoop, nil
	}

	created, err := s.store.InsertRaw(ctx, *nc)
	if err != nil {
		return scheduler.OutcomeOK, fmt.Errorf("failed to persist raw comment: %w", err)
	}

	metrics.CommentsIngestedTotal.Inc()
	slog.InfoContext(ctx, "Comment ingested",
		"comment_id", created.ID.String(),
		"post_id", created.PostID,
		"word_count", created.WordCount,
	)
	return scheduler.OutcomeOK, nil
}
