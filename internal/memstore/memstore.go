// Package memstore provides an in-memory CommentStore for single-instance
// mode and tests. The Postgres implementation in internal/database is the
// durable counterpart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Store keeps comments and category metadata in process memory. Unlike the
// durable store it is shared by all stages directly, so every method takes
// the lock.
type Store struct {
	clock clockwork.Clock

	mu         sync.Mutex
	comments   map[uuid.UUID]*domain.Comment
	categories map[string]domain.BusinessCategory
	claims     map[uuid.UUID]time.Time
	order      []uuid.UUID
}

func New(clock clockwork.Clock) *Store {
	return &Store{
		clock:      clock,
		comments:   make(map[uuid.UUID]*domain.Comment),
		categories: make(map[string]domain.BusinessCategory),
		claims:     make(map[uuid.UUID]time.Time),
	}
}

// SeedCategory registers a business category so aggregation can resolve
// weights and audience buckets.
func (s *Store) SeedCategory(cat domain.BusinessCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[cat.ID] = cat
}

func (s *Store) InsertRaw(_ context.Context, nc domain.NewComment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &domain.Comment{
		ID:                 uuid.New(),
		PostID:             nc.PostID,
		PostTitle:          nc.PostTitle,
		CompanyID:          nc.CompanyID,
		BusinessCategoryID: nc.BusinessCategoryID,
		StakeholderName:    nc.StakeholderName,
		RawComment:         nc.RawComment,
		WordCount:          nc.WordCount,
		Status:             domain.StatusRaw,
		CreatedAt:          s.clock.Now(),
	}
	s.comments[c.ID] = c
	s.order = append(s.order, c.ID)

	copied := *c
	return &copied, nil
}

func (s *Store) ClaimEligible(_ context.Context, lease time.Duration) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for _, id := range s.order {
		c := s.comments[id]
		if !c.Eligible() {
			continue
		}
		if until, held := s.claims[id]; held && now.Before(until) {
			continue
		}
		s.claims[id] = now.Add(lease)
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (s *Store) UpdateAttempts(_ context.Context, id uuid.UUID, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.comments[id]
	if !exists {
		return domain.ErrCommentNotFound
	}
	if attempts > c.ProcessingAttempts {
		c.ProcessingAttempts = attempts
	}
	return nil
}

func (s *Store) MarkAnalyzed(_ context.Context, id uuid.UUID, res domain.AnalysisResult, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.comments[id]
	if !exists {
		return domain.ErrCommentNotFound
	}

	standard := res.StandardComment
	language := res.Language
	sentiment := res.Sentiment
	score := res.SentimentScore
	summary := res.Summary
	processed := processedAt

	c.StandardComment = &standard
	c.Language = &language
	c.Sentiment = &sentiment
	c.SentimentScore = &score
	c.Summary = &summary
	c.Status = domain.StatusAnalyzed
	c.ProcessedAt = &processed
	c.ProcessingError = nil
	delete(s.claims, id)
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id uuid.UUID, attempts int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.comments[id]
	if !exists {
		return domain.ErrCommentNotFound
	}
	c.Status = domain.StatusFailed
	c.ProcessingAttempts = attempts
	c.ProcessingError = &reason
	delete(s.claims, id)
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.comments[id]
	if !exists {
		return nil, domain.ErrCommentNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *Store) ResetForRetry(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.comments[id]
	if !exists {
		return domain.ErrCommentNotFound
	}
	if c.Status != domain.StatusFailed {
		return domain.ErrNotFailed
	}
	c.Status = domain.StatusRaw
	c.ProcessingAttempts = 0
	c.ProcessingError = nil
	return nil
}

func (s *Store) ForceFail(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.comments[id]
	if !exists {
		return domain.ErrCommentNotFound
	}
	if c.Status != domain.StatusRaw {
		return domain.ErrAlreadyTerminal
	}
	c.Status = domain.StatusFailed
	c.ProcessingAttempts = domain.MaxProcessingAttempts
	c.ProcessingError = &reason
	delete(s.claims, id)
	return nil
}

func (s *Store) CountsBySentiment(_ context.Context, categoryType *domain.CategoryType) (domain.SentimentCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts domain.SentimentCounts
	for _, c := range s.comments {
		if c.Status != domain.StatusAnalyzed || c.Sentiment == nil {
			continue
		}
		if categoryType != nil {
			cat, known := s.categories[c.BusinessCategoryID]
			if !known || cat.CategoryType != *categoryType {
				continue
			}
		}
		switch *c.Sentiment {
		case domain.SentimentPositive:
			counts.Positive++
		case domain.SentimentNegative:
			counts.Negative++
		case domain.SentimentNeutral:
			counts.Neutral++
		default:
			continue
		}
		counts.Total++
	}
	return counts, nil
}

func (s *Store) AnalyzedWithWeights(_ context.Context) ([]domain.WeightedComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Deterministic order keeps aggregation idempotent for identical data.
	ids := make([]uuid.UUID, 0, len(s.comments))
	for id, c := range s.comments {
		if c.Status == domain.StatusAnalyzed && c.Sentiment != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.comments[ids[i]].CreatedAt.Before(s.comments[ids[j]].CreatedAt)
	})

	out := make([]domain.WeightedComment, 0, len(ids))
	for _, id := range ids {
		c := s.comments[id]
		weight := 1.0
		var categoryType domain.CategoryType
		if cat, known := s.categories[c.BusinessCategoryID]; known {
			if cat.WeightageScore > 0 {
				weight = cat.WeightageScore
			}
			categoryType = cat.CategoryType
		}
		out = append(out, domain.WeightedComment{
			Sentiment:    *c.Sentiment,
			Weight:       weight,
			CategoryType: categoryType,
		})
	}
	return out, nil
}

func (s *Store) StatusCounts(_ context.Context) (map[domain.CommentStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.CommentStatus]int)
	for _, c := range s.comments {
		counts[c.Status]++
	}
	return counts, nil
}

func (s *Store) CountCreatedSince(_ context.Context, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, c := range s.comments {
		if !c.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountPending(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, c := range s.comments {
		if c.Status == domain.StatusRaw && c.ProcessingAttempts > 0 {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountFailed(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, c := range s.comments {
		if c.Status == domain.StatusFailed {
			count++
		}
	}
	return count, nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}
