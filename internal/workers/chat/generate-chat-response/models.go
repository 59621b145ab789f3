package generatechatresponse

import (
	"context"

	"retail-chat-workers/internal/chat"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
)

type Input struct {
	SessionID           string                      `json:"sessionId,omitempty"`
	UserMessage         string                      `json:"userMessage"`
	ConversationContext *hybrid.ConversationContext `json:"conversationContext,omitempty"`
}

type Output struct {
	Response      *chat.ChatResponse  `json:"response"`
	ContextUpdate *chat.ContextUpdate `json:"contextUpdate,omitempty"`
	Fallback      bool                `json:"fallback"`
}

// ChatResponder is the chat entry point the worker drives.
type ChatResponder interface {
	GenerateChatResponse(ctx context.Context, userMessage string, convCtx *hybrid.ConversationContext) (*chat.ChatResponse, *chat.ContextUpdate, error)
}

type ServiceDependencies struct {
	Chat   ChatResponder
	Logger logger.Logger
}
