// Package chat is the outward entry point for one chat turn: it bounds the
// conversation, runs the hybrid orchestrator and shapes the reply for the UI.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"retail-chat-workers/internal/common/config"
	apperrors "retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/common/metrics"
	"retail-chat-workers/internal/common/observability"
	"retail-chat-workers/internal/hybrid"
)

const defaultMaxHistory = 10

// Generator is the part of the orchestrator the chat service needs.
type Generator interface {
	GenerateResponse(ctx context.Context, req *hybrid.GenerationRequest) (*hybrid.GenerationResult, error)
}

type ServiceOptions struct {
	Generator     Generator
	Recorder      UsageRecorder
	Config        config.ChatConfig
	Logger        logger.Logger
	Observability *observability.Observability
}

type Service struct {
	generator Generator
	recorder  UsageRecorder
	config    config.ChatConfig
	logger    logger.Logger
	obs       *observability.Observability
}

func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Generator == nil {
		return nil, errors.New("chat service requires a generator")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Config.MaxHistoryMessages <= 0 {
		opts.Config.MaxHistoryMessages = defaultMaxHistory
	}
	return &Service{
		generator: opts.Generator,
		recorder:  opts.Recorder,
		config:    opts.Config,
		logger:    opts.Logger.With(map[string]interface{}{"component": "chat"}),
		obs:       opts.Observability,
	}, nil
}

// GenerateChatResponse answers one user message. An error means even the
// rule-based responder failed; callers should then show FallbackErrorResponse.
func (s *Service) GenerateChatResponse(ctx context.Context, userMessage string, convCtx *hybrid.ConversationContext) (*ChatResponse, *ContextUpdate, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return nil, nil, apperrors.NewChatInputInvalidError("userMessage is empty")
	}

	start := time.Now()
	bounded := s.boundHistory(convCtx)
	req := hybrid.NewRequest(userMessage, bounded, hybrid.GenerationOptions{})

	result, err := s.generator.GenerateResponse(ctx, req)
	if err != nil {
		s.logger.Error("chat generation failed", map[string]interface{}{
			"error":     err.Error(),
			"sessionId": sessionID(convCtx),
		})
		return nil, nil, apperrors.NewChatGenerationFailedError(err)
	}

	resp, update := Convert(result, userMessage, bounded)
	latency := time.Since(start)
	resp.Metadata.LatencyMs = latency.Milliseconds()

	metrics.ChatResponses.WithLabelValues(result.Provider, string(resp.Type)).Inc()
	s.obs.RecordChatTurn(ctx, result.Provider, string(resp.Type), latency)

	s.logger.Info("chat response generated", map[string]interface{}{
		"sessionId":  sessionID(convCtx),
		"provider":   result.Provider,
		"type":       resp.Type,
		"intent":     update.UserIntent,
		"stage":      update.QualificationStage,
		"confidence": result.Confidence,
		"latencyMs":  latency.Milliseconds(),
	})

	s.recordUsage(ctx, convCtx, result, resp, update, latency)
	return resp, update, nil
}

// boundHistory keeps the last MaxHistoryMessages prior messages. The caller's
// context is never modified.
func (s *Service) boundHistory(convCtx *hybrid.ConversationContext) *hybrid.ConversationContext {
	if convCtx == nil {
		return nil
	}
	bounded := *convCtx
	if n := len(convCtx.PreviousMessages); n > s.config.MaxHistoryMessages {
		bounded.PreviousMessages = convCtx.PreviousMessages[n-s.config.MaxHistoryMessages:]
	}
	return &bounded
}

func (s *Service) recordUsage(ctx context.Context, convCtx *hybrid.ConversationContext, result *hybrid.GenerationResult, resp *ChatResponse, update *ContextUpdate, latency time.Duration) {
	if s.recorder == nil || !s.config.RecordUsage {
		return
	}
	usage := TurnUsage{
		SessionID:        sessionID(convCtx),
		Provider:         result.Provider,
		Model:            result.Model,
		Intent:           update.UserIntent,
		Confidence:       result.Confidence,
		HybridConfidence: result.Metadata.HybridConfidence,
		ResponseType:     resp.Type,
		FallbackUsed:     resp.Metadata.FallbackUsed,
		Latency:          latency,
	}
	if result.Usage != nil {
		usage.PromptTokens = result.Usage.PromptTokens
		usage.CompletionTokens = result.Usage.CompletionTokens
		usage.TotalTokens = result.Usage.TotalTokens
	}
	if err := s.recorder.RecordTurn(ctx, usage); err != nil {
		s.logger.Warn("failed to record chat usage", map[string]interface{}{"error": err.Error()})
	}
}

func sessionID(convCtx *hybrid.ConversationContext) string {
	if convCtx == nil {
		return ""
	}
	return convCtx.SessionID
}

// FallbackErrorResponse is the reply to show when GenerateChatResponse fails.
func FallbackErrorResponse() *ChatResponse {
	return &ChatResponse{
		Content: "I'm sorry, I'm having trouble processing your request right now. Please try again, or choose one of the options below.",
		Type:    TypeOptions,
		Options: []string{"Try again", "Contact support", "View FAQ", "Schedule a call"},
	}
}
