// Package database implements the durable CommentStore on PostgreSQL.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected", "min_conns", poolCfg.MinConns, "max_conns", poolCfg.MaxConns)
	return pool, nil
}

func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS business_categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			weightage_score FLOAT NOT NULL DEFAULT 1.0,
			category_type TEXT NOT NULL DEFAULT 'BUSINESS',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			post_id TEXT NOT NULL,
			post_title TEXT NOT NULL DEFAULT '',
			company_id TEXT NOT NULL,
			business_category_id TEXT NOT NULL DEFAULT '',
			stakeholder_name TEXT NOT NULL DEFAULT '',
			raw_comment TEXT NOT NULL,
			word_count INT NOT NULL DEFAULT 0,
			standard_comment TEXT,
			summary TEXT,
			sentiment TEXT,
			sentiment_score FLOAT,
			language TEXT,
			status TEXT NOT NULL DEFAULT 'RAW',
			processing_attempts INT NOT NULL DEFAULT 0,
			processing_error TEXT,
			claimed_until TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_status ON comments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_eligible ON comments(created_at) WHERE status = 'RAW'`,
		`CREATE INDEX IF NOT EXISTS idx_comments_sentiment ON comments(sentiment) WHERE status = 'ANALYZED'`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
