package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// commentColumns must match the Scan order in scanComment.
const commentColumns = `id, post_id, post_title, company_id, business_category_id, stakeholder_name,
	raw_comment, word_count, standard_comment, summary, sentiment, sentiment_score, language,
	status, processing_attempts, processing_error, created_at, processed_at`

// CommentStore implements domain.CommentStore backed by PostgreSQL.
type CommentStore struct {
	pool *pgxpool.Pool
}

func NewCommentStore(pool *pgxpool.Pool) *CommentStore {
	return &CommentStore{pool: pool}
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	var sentiment *string
	err := row.Scan(
		&c.ID, &c.PostID, &c.PostTitle, &c.CompanyID, &c.BusinessCategoryID, &c.StakeholderName,
		&c.RawComment, &c.WordCount, &c.StandardComment, &c.Summary, &sentiment, &c.SentimentScore,
		&c.Language, &c.Status, &c.ProcessingAttempts, &c.ProcessingError, &c.CreatedAt, &c.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	if sentiment != nil {
		s := domain.Sentiment(*sentiment)
		c.Sentiment = &s
	}
	return &c, nil
}

func (s *CommentStore) InsertRaw(ctx context.Context, nc domain.NewComment) (*domain.Comment, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO comments (post_id, post_title, company_id, business_category_id, stakeholder_name, raw_comment, word_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'RAW')
		RETURNING `+commentColumns,
		nc.PostID, nc.PostTitle, nc.CompanyID, nc.BusinessCategoryID, nc.StakeholderName, nc.RawComment, nc.WordCount,
	)

	c, err := scanComment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert raw comment: %w", err)
	}
	return c, nil
}

// ClaimEligible selects the oldest eligible comment and stamps a lease on it
// in one statement, so two overlapping analysis ticks can never claim the
// same row. SKIP LOCKED keeps concurrent claimers from blocking each other.
func (s *CommentStore) ClaimEligible(ctx context.Context, lease time.Duration) (*domain.Comment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE comments
		SET claimed_until = NOW() + make_interval(secs => $1)
		WHERE id = (
			SELECT id FROM comments
			WHERE status = 'RAW'
			  AND processing_attempts < $2
			  AND (claimed_until IS NULL OR claimed_until < NOW())
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+commentColumns,
		lease.Seconds(), domain.MaxProcessingAttempts,
	)

	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim eligible comment: %w", err)
	}
	return c, nil
}

func (s *CommentStore) UpdateAttempts(ctx context.Context, id uuid.UUID, attempts int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE comments
		SET processing_attempts = GREATEST(processing_attempts, $1)
		WHERE id = $2
	`, attempts, id)
	if err != nil {
		return fmt.Errorf("failed to update attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

func (s *CommentStore) MarkAnalyzed(ctx context.Context, id uuid.UUID, res domain.AnalysisResult, processedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE comments
		SET standard_comment = $1,
		    language = $2,
		    sentiment = $3,
		    sentiment_score = $4,
		    summary = $5,
		    status = 'ANALYZED',
		    processed_at = $6,
		    processing_error = NULL,
		    claimed_until = NULL
		WHERE id = $7 AND status = 'RAW'
	`, res.StandardComment, res.Language, string(res.Sentiment), res.SentimentScore, res.Summary, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark analyzed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

func (s *CommentStore) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE comments
		SET status = 'FAILED',
		    processing_attempts = $1,
		    processing_error = $2,
		    claimed_until = NULL
		WHERE id = $3 AND status = 'RAW'
	`, attempts, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

func (s *CommentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)

	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

func (s *CommentStore) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE comments
		SET status = 'RAW',
		    processing_attempts = 0,
		    processing_error = NULL,
		    claimed_until = NULL
		WHERE id = $1 AND status = 'FAILED'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to reset comment for retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrNotFailed
	}
	return nil
}

func (s *CommentStore) ForceFail(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE comments
		SET status = 'FAILED',
		    processing_attempts = $1,
		    processing_error = $2,
		    claimed_until = NULL
		WHERE id = $3 AND status = 'RAW'
	`, domain.MaxProcessingAttempts, reason, id)
	if err != nil {
		return fmt.Errorf("failed to force-fail comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrAlreadyTerminal
	}
	return nil
}

func (s *CommentStore) CountsBySentiment(ctx context.Context, categoryType *domain.CategoryType) (domain.SentimentCounts, error) {
	query := `
		SELECT c.sentiment, COUNT(*)
		FROM comments c
	`
	args := []any{}
	if categoryType != nil {
		query += `
		JOIN business_categories bc ON bc.id = c.business_category_id
		WHERE c.status = 'ANALYZED' AND c.sentiment IS NOT NULL AND bc.category_type = $1
		`
		args = append(args, string(*categoryType))
	} else {
		query += `
		WHERE c.status = 'ANALYZED' AND c.sentiment IS NOT NULL
		`
	}
	query += `GROUP BY c.sentiment`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.SentimentCounts{}, fmt.Errorf("failed to count by sentiment: %w", err)
	}
	defer rows.Close()

	var counts domain.SentimentCounts
	for rows.Next() {
		var sentiment string
		var count int
		if err := rows.Scan(&sentiment, &count); err != nil {
			return domain.SentimentCounts{}, fmt.Errorf("failed to scan sentiment count: %w", err)
		}
		switch domain.Sentiment(sentiment) {
		case domain.SentimentPositive:
			counts.Positive = count
		case domain.SentimentNegative:
			counts.Negative = count
		case domain.SentimentNeutral:
			counts.Neutral = count
		default:
			continue
		}
		counts.Total += count
	}
	if err := rows.Err(); err != nil {
		return domain.SentimentCounts{}, fmt.Errorf("failed to read sentiment counts: %w", err)
	}
	return counts, nil
}

func (s *CommentStore) AnalyzedWithWeights(ctx context.Context) ([]domain.WeightedComment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.sentiment,
		       COALESCE(bc.weightage_score, 1.0),
		       COALESCE(bc.category_type, '')
		FROM comments c
		LEFT JOIN business_categories bc ON bc.id = c.business_category_id
		WHERE c.status = 'ANALYZED' AND c.sentiment IS NOT NULL
		ORDER BY c.created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyzed comments: %w", err)
	}
	defer rows.Close()

	var out []domain.WeightedComment
	for rows.Next() {
		var sentiment, categoryType string
		var weight float64
		if err := rows.Scan(&sentiment, &weight, &categoryType); err != nil {
			return nil, fmt.Errorf("failed to scan weighted comment: %w", err)
		}
		if weight <= 0 {
			weight = 1.0
		}
		out = append(out, domain.WeightedComment{
			Sentiment:    domain.Sentiment(sentiment),
			Weight:       weight,
			CategoryType: domain.CategoryType(categoryType),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read weighted comments: %w", err)
	}
	return out, nil
}

func (s *CommentStore) StatusCounts(ctx context.Context) (map[domain.CommentStatus]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM comments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.CommentStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.CommentStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}
	return counts, nil
}

func (s *CommentStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE created_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent comments: %w", err)
	}
	return count, nil
}

func (s *CommentStore) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM comments WHERE status = 'RAW' AND processing_attempts > 0
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending comments: %w", err)
	}
	return count, nil
}

func (s *CommentStore) CountFailed(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE status = 'FAILED'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed comments: %w", err)
	}
	return count, nil
}

func (s *CommentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
