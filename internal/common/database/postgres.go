package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"retail-chat-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient owns the pool used for chat usage records.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// chatUsageSchema is applied idempotently at startup.
const chatUsageSchema = `
CREATE TABLE IF NOT EXISTS chat_turn_usage (
	id                UUID PRIMARY KEY,
	session_id        TEXT,
	provider          TEXT NOT NULL,
	model             TEXT,
	intent            TEXT,
	confidence        DOUBLE PRECISION NOT NULL,
	hybrid_confidence DOUBLE PRECISION,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	response_type     TEXT NOT NULL,
	fallback_used     BOOLEAN NOT NULL DEFAULT false,
	latency_ms        BIGINT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the tables owned by this service.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, chatUsageSchema); err != nil {
		return fmt.Errorf("create chat_turn_usage: %w", err)
	}
	return nil
}
