package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/logging"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/scheduler"
	"github.com/jonboulle/clockwork"
)

// claimLease must outlast the worst-case retry loop (three 20s calls plus
// persistence round-trips) so a live claim never expires mid-tick.
const claimLease = 5 * time.Minute

// outcome is the terminal result of one analysis run.
type outcome int

const (
	outcomeAnalyzed outcome = iota
	outcomeFailed
	outcomeAborted // persistence error, claim left to expire
)

// AnalyzeStage claims one eligible comment per tick and drives it to a
// terminal state. The claim is an atomic conditional update in the store,
// so two overlapping ticks (or two instances) never process the same row.
type AnalyzeStage struct {
	store  domain.CommentStore
	client domain.AnalysisClient
	clock  clockwork.Clock
}

func NewAnalyzeStage(store domain.CommentStore, client domain.AnalysisClient, clock clockwork.Clock) *AnalyzeStage {
	return &AnalyzeStage{store: store, client: client, clock: clock}
}

func (s *AnalyzeStage) Tick(ctx context.Context) (scheduler.Outcome, error) {
	comment, err := s.store.ClaimEligible(ctx, claimLease)
	if err != nil {
		return scheduler.OutcomeOK, fmt.Errorf("failed to claim comment: %w", err)
	}
	if comment == nil {
		return scheduler.OutcomeNoop, nil
	}

	result, err := s.process(ctx, comment)
	if err != nil {
		return scheduler.OutcomeOK, err
	}

	switch result {
	case outcomeAnalyzed:
		metrics.CommentsTerminalTotal.WithLabelValues("analyzed").Inc()
	case outcomeFailed:
		metrics.CommentsTerminalTotal.WithLabelValues("failed").Inc()
	}
	return scheduler.OutcomeOK, nil
}

// process runs the bounded retry state machine for one claimed comment:
// RAW -> (attempt 0..2) -> ANALYZED | FAILED. The attempt counter is
// persisted after every failure and never decreases.
func (s *AnalyzeStage) process(ctx context.Context, comment *domain.Comment) (outcome, error) {
	log := logging.WithComment(comment.ID)

	attempts := comment.ProcessingAttempts
	var lastErr error

	for attempts < domain.MaxProcessingAttempts {
		result, err := s.client.Analyze(ctx, comment.RawComment)
		if err == nil {
			metrics.AnalysisAttemptsTotal.WithLabelValues("success").Inc()
			if err := s.store.MarkAnalyzed(ctx, comment.ID, *result, s.clock.Now()); err != nil {
				return outcomeAborted, fmt.Errorf("failed to persist analysis result: %w", err)
			}
			log.InfoContext(ctx, "Comment analyzed",
				"sentiment", string(result.Sentiment),
				"attempts", attempts,
			)
			return outcomeAnalyzed, nil
		}

		metrics.AnalysisAttemptsTotal.WithLabelValues("failure").Inc()
		attempts++
		lastErr = err
		log.WarnContext(ctx, "Analysis attempt failed",
			"attempt", attempts,
			"max_attempts", domain.MaxProcessingAttempts,
			"error", err,
		)

		if err := s.store.UpdateAttempts(ctx, comment.ID, attempts); err != nil {
			return outcomeAborted, fmt.Errorf("failed to persist attempt count: %w", err)
		}
	}

	if err := s.store.MarkFailed(ctx, comment.ID, attempts, lastErr.Error()); err != nil {
		return outcomeAborted, fmt.Errorf("failed to mark comment as failed: %w", err)
	}
	log.ErrorContext(ctx, "Comment failed permanently, manual review required",
		"attempts", attempts,
		"error", lastErr,
	)
	return outcomeFailed, nil
}
