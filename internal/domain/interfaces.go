package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AnalysisResult is the successful output of the analysis service for one
// comment. A malformed or unsuccessful upstream response never produces a
// partially filled result; callers get an error instead.
type AnalysisResult struct {
	StandardComment string
	Language        string
	Sentiment       Sentiment
	SentimentScore  float64
	Summary         string
}

// CommentStore is the durable table of comment records. It is the only
// shared mutable resource: the ingestion stage inserts, the analysis stage
// updates, everything else reads.
type CommentStore interface {
	// InsertRaw persists a freshly generated comment with status RAW and
	// zero processing attempts.
	InsertRaw(ctx context.Context, nc NewComment) (*Comment, error)

	// ClaimEligible atomically claims the oldest comment with status RAW
	// and attempts below the maximum. The claim prevents a second analysis
	// tick from selecting the same row while the first is still working.
	// Returns (nil, nil) when no comment is eligible.
	ClaimEligible(ctx context.Context, lease time.Duration) (*Comment, error)

	// UpdateAttempts persists the attempt counter after a failed analysis
	// call so a crash mid-retry does not lose attempt history.
	UpdateAttempts(ctx context.Context, id uuid.UUID, attempts int) error

	// MarkAnalyzed writes the analysis fields, sets status ANALYZED,
	// records processedAt, clears processingError, and releases the claim.
	MarkAnalyzed(ctx context.Context, id uuid.UUID, res AnalysisResult, processedAt time.Time) error

	// MarkFailed sets status FAILED with the last observed error message
	// and releases the claim.
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, reason string) error

	GetByID(ctx context.Context, id uuid.UUID) (*Comment, error)

	// ResetForRetry moves a FAILED comment back to RAW with attempts reset
	// to zero. Manual operator action only.
	ResetForRetry(ctx context.Context, id uuid.UUID) error

	// ForceFail marks a non-terminal comment FAILED with an operator
	// supplied reason.
	ForceFail(ctx context.Context, id uuid.UUID, reason string) error

	// CountsBySentiment aggregates analyzed comments, optionally filtered
	// by the company's business category type (nil means all).
	CountsBySentiment(ctx context.Context, categoryType *CategoryType) (SentimentCounts, error)

	// AnalyzedWithWeights lists analyzed comments joined with their
	// category weight for the weighted breakdown.
	AnalyzedWithWeights(ctx context.Context) ([]WeightedComment, error)

	// StatusCounts reports how many comments sit in each lifecycle state.
	StatusCounts(ctx context.Context) (map[CommentStatus]int, error)

	// Health-monitor samples.
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountPending(ctx context.Context) (int, error)
	CountFailed(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
}

// GenerationClient fetches one newly generated comment from the external
// text-generation service.
type GenerationClient interface {
	Generate(ctx context.Context) (*NewComment, error)
}

// AnalysisClient runs sentiment analysis and translation for one comment.
type AnalysisClient interface {
	Analyze(ctx context.Context, comment string) (*AnalysisResult, error)
}

// EventPublisher pushes a named event to all interested subscribers.
// Injected into the broadcast publisher so tests can observe emissions
// without a live websocket hub.
type EventPublisher interface {
	Publish(event string, payload any)
}

// Aggregator computes sentiment aggregates from the current store contents.
type Aggregator interface {
	Overall(ctx context.Context) (SentimentCounts, error)
	ByCategory(ctx context.Context, ct CategoryType) (SentimentCounts, error)
	Weighted(ctx context.Context) (WeightedBreakdown, error)
	Snapshot(ctx context.Context) (*Snapshot, error)
}
