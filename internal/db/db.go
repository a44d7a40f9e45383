package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool builds the process-wide connection pool. It is created once in
// main and closed on shutdown; every service shares it.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		strava_id TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		slug TEXT UNIQUE NOT NULL,
		startup_name TEXT,
		profile_image TEXT,
		country TEXT,
		socials JSONB,
		access_token TEXT,
		refresh_token TEXT,
		token_expires_at BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stats (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		total_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_pace DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_30d_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_30d_avg_pace DOUBLE PRECISION NOT NULL DEFAULT 0,
		daily_activity JSONB NOT NULL DEFAULT '[]',
		activity_heatmap JSONB,
		synced_activity_ids JSONB NOT NULL DEFAULT '[]',
		computed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS challenges (
		id UUID PRIMARY KEY,
		creator_user_id UUID NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		ruleset_type TEXT NOT NULL,
		ruleset_config JSONB NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		sponsor JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS challenge_participants (
		challenge_id UUID NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		progress JSONB NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (challenge_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard_cache (
		period TEXT PRIMARY KEY,
		entries JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_challenges_window ON challenges (start_date, end_date)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_user ON challenge_participants (user_id)`,
}

// Migrate bootstraps the schema. Statements are idempotent so startup can
// run them unconditionally.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
