package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxProcessingAttempts bounds the analysis retry loop. A comment that
// exhausts all attempts transitions to StatusFailed and is never retried
// automatically.
const MaxProcessingAttempts = 3

// CommentStatus is the lifecycle state of a comment.
// Transitions are monotonic: RAW -> ANALYZED or RAW -> FAILED, never back.
type CommentStatus string

const (
	StatusRaw      CommentStatus = "RAW"
	StatusAnalyzed CommentStatus = "ANALYZED"
	StatusFailed   CommentStatus = "FAILED"
)

// Sentiment is the label assigned by the analysis service.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// CategoryType buckets business categories for per-audience breakdowns.
type CategoryType string

const (
	CategoryUser     CategoryType = "USER"
	CategoryBusiness CategoryType = "BUSINESS"
)

// Comment is a single public comment moving through the pipeline.
// RawComment is immutable after ingestion; the analysis fields are set once
// on the transition to ANALYZED and are nil until then.
type Comment struct {
	ID                 uuid.UUID     `db:"id"`
	PostID             string        `db:"post_id"`
	PostTitle          string        `db:"post_title"`
	CompanyID          string        `db:"company_id"`
	BusinessCategoryID string        `db:"business_category_id"`
	StakeholderName    string        `db:"stakeholder_name"`
	RawComment         string        `db:"raw_comment"`
	WordCount          int           `db:"word_count"`
	StandardComment    *string       `db:"standard_comment"`
	Summary            *string       `db:"summary"`
	Sentiment          *Sentiment    `db:"sentiment"`
	SentimentScore     *float64      `db:"sentiment_score"`
	Language           *string       `db:"language"`
	Status             CommentStatus `db:"status"`
	ProcessingAttempts int           `db:"processing_attempts"`
	ProcessingError    *string       `db:"processing_error"`
	CreatedAt          time.Time     `db:"created_at"`
	ProcessedAt        *time.Time    `db:"processed_at"`
}

// Eligible reports whether the comment can still be claimed by the
// analysis stage.
func (c *Comment) Eligible() bool {
	return c.Status == StatusRaw && c.ProcessingAttempts < MaxProcessingAttempts
}

// NewComment carries the fields of a freshly generated comment before it is
// persisted as a RAW record.
type NewComment struct {
	PostID             string
	PostTitle          string
	CompanyID          string
	BusinessCategoryID string
	StakeholderName    string
	RawComment         string
	WordCount          int
}

// BusinessCategory is owned by an external collaborator; the pipeline only
// reads the weight and the audience bucket.
type BusinessCategory struct {
	ID             string       `db:"id"`
	Name           string       `db:"name"`
	WeightageScore float64      `db:"weightage_score"`
	CategoryType   CategoryType `db:"category_type"`
}
