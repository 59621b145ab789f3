package chat

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	apperrors "retail-chat-workers/internal/common/errors"
)

// TurnUsage is one row of chat_turn_usage.
type TurnUsage struct {
	ID               string
	SessionID        string
	Provider         string
	Model            string
	Intent           string
	Confidence       float64
	HybridConfidence *float64
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ResponseType     ResponseType
	FallbackUsed     bool
	Latency          time.Duration
}

// UsageRecorder persists per-turn usage. Failures never reach the chat caller.
type UsageRecorder interface {
	RecordTurn(ctx context.Context, usage TurnUsage) error
}

// PostgresUsageRecorder writes usage rows through database/sql.
type PostgresUsageRecorder struct {
	db *sql.DB
}

func NewPostgresUsageRecorder(db *sql.DB) *PostgresUsageRecorder {
	return &PostgresUsageRecorder{db: db}
}

const insertTurnUsage = `
INSERT INTO chat_turn_usage (
	id, session_id, provider, model, intent, confidence, hybrid_confidence,
	prompt_tokens, completion_tokens, total_tokens, response_type, fallback_used, latency_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (r *PostgresUsageRecorder) RecordTurn(ctx context.Context, usage TurnUsage) error {
	if usage.ID == "" {
		usage.ID = uuid.New().String()
	}

	var hybridConfidence sql.NullFloat64
	if usage.HybridConfidence != nil {
		hybridConfidence = sql.NullFloat64{Float64: *usage.HybridConfidence, Valid: true}
	}
	var sessionID sql.NullString
	if usage.SessionID != "" {
		sessionID = sql.NullString{String: usage.SessionID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertTurnUsage,
		usage.ID, sessionID, usage.Provider, usage.Model, usage.Intent,
		usage.Confidence, hybridConfidence,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens,
		string(usage.ResponseType), usage.FallbackUsed, usage.Latency.Milliseconds(),
	)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}
