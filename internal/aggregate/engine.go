// Package aggregate computes sentiment aggregates from the comment store.
//
// Results are pure functions of the store contents at call time: repeated
// calls over unchanged data produce identical output.
package aggregate

import (
	"context"
	"fmt"
	"math"

	"github.com/civicpulse/civicpulse/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Engine computes the overall, per-category and weighted breakdowns.
// Concurrent Snapshot calls (broadcast tick plus subscriber refreshes)
// collapse into one store read via singleflight.
type Engine struct {
	store domain.CommentStore
	group singleflight.Group
}

func NewEngine(store domain.CommentStore) *Engine {
	return &Engine{store: store}
}

// Overall returns the unweighted sentiment counts across all analyzed
// comments.
func (e *Engine) Overall(ctx context.Context) (domain.SentimentCounts, error) {
	return e.store.CountsBySentiment(ctx, nil)
}

// ByCategory returns the counts restricted to comments whose company's
// business category has the given type.
func (e *Engine) ByCategory(ctx context.Context, ct domain.CategoryType) (domain.SentimentCounts, error) {
	return e.store.CountsBySentiment(ctx, &ct)
}

// Weighted returns the category-weighted breakdown. A comment contributes
// its category's weightage score instead of a unit count; a missing
// category contributes weight 1. An empty analyzed set yields an explicit
// all-zero payload.
func (e *Engine) Weighted(ctx context.Context) (domain.WeightedBreakdown, error) {
	comments, err := e.store.AnalyzedWithWeights(ctx)
	if err != nil {
		return domain.WeightedBreakdown{}, fmt.Errorf("failed to load weighted comments: %w", err)
	}

	var breakdown domain.WeightedBreakdown
	breakdown.TotalAnalyzedComments = len(comments)

	for _, c := range comments {
		addWeight(&breakdown.RawWeights, c.Sentiment, c.Weight)
		switch c.CategoryType {
		case domain.CategoryUser:
			addCategoryWeight(&breakdown.CategoryBreakdown.User, c.Sentiment, c.Weight)
		case domain.CategoryBusiness:
			addCategoryWeight(&breakdown.CategoryBreakdown.Business, c.Sentiment, c.Weight)
		}
	}

	total := breakdown.RawWeights.Positive + breakdown.RawWeights.Negative + breakdown.RawWeights.Neutral
	breakdown.TotalWeightedScore = round2(total)

	if total > 0 {
		breakdown.WeightedPercentages.Positive = round2(100 * breakdown.RawWeights.Positive / total)
		breakdown.WeightedPercentages.Negative = round2(100 * breakdown.RawWeights.Negative / total)
		breakdown.WeightedPercentages.Neutral = round2(100 * breakdown.RawWeights.Neutral / total)
	}

	breakdown.RawWeights.Positive = round2(breakdown.RawWeights.Positive)
	breakdown.RawWeights.Negative = round2(breakdown.RawWeights.Negative)
	breakdown.RawWeights.Neutral = round2(breakdown.RawWeights.Neutral)
	roundCategory(&breakdown.CategoryBreakdown.User)
	roundCategory(&breakdown.CategoryBreakdown.Business)

	return breakdown, nil
}

// Snapshot computes all four aggregate views in one pass. Concurrent
// callers share a single computation.
func (e *Engine) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	v, err, _ := e.group.Do("snapshot", func() (any, error) {
		return e.computeSnapshot(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Snapshot), nil
}

func (e *Engine) computeSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	overall, err := e.Overall(ctx)
	if err != nil {
		return nil, fmt.Errorf("overall counts: %w", err)
	}
	userCounts, err := e.ByCategory(ctx, domain.CategoryUser)
	if err != nil {
		return nil, fmt.Errorf("user counts: %w", err)
	}
	businessCounts, err := e.ByCategory(ctx, domain.CategoryBusiness)
	if err != nil {
		return nil, fmt.Errorf("business counts: %w", err)
	}
	weighted, err := e.Weighted(ctx)
	if err != nil {
		return nil, fmt.Errorf("weighted breakdown: %w", err)
	}

	return &domain.Snapshot{
		Overall:        overall,
		UserCounts:     userCounts,
		BusinessCounts: businessCounts,
		Weighted:       weighted,
	}, nil
}

func addWeight(w *domain.WeightSums, sentiment domain.Sentiment, weight float64) {
	switch sentiment {
	case domain.SentimentPositive:
		w.Positive += weight
	case domain.SentimentNegative:
		w.Negative += weight
	case domain.SentimentNeutral:
		w.Neutral += weight
	}
}

func addCategoryWeight(c *domain.CategoryWeights, sentiment domain.Sentiment, weight float64) {
	switch sentiment {
	case domain.SentimentPositive:
		c.Positive += weight
	case domain.SentimentNegative:
		c.Negative += weight
	case domain.SentimentNeutral:
		c.Neutral += weight
	}
	c.TotalWeight += weight
}

func roundCategory(c *domain.CategoryWeights) {
	c.Positive = round2(c.Positive)
	c.Negative = round2(c.Negative)
	c.Neutral = round2(c.Neutral)
	c.TotalWeight = round2(c.TotalWeight)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
