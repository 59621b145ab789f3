package generatechatresponse

import (
	"context"
	"errors"
	"fmt"

	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
)

var ErrChatGenerationFailed = errors.New("chat generation failed")

type Service struct {
	chat   ChatResponder
	logger logger.Logger
}

func NewService(deps ServiceDependencies) *Service {
	return &Service{
		chat:   deps.Chat,
		logger: deps.Logger,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	convCtx := input.ConversationContext
	if convCtx == nil {
		convCtx = &hybrid.ConversationContext{}
	}
	if convCtx.SessionID == "" {
		withSession := *convCtx
		withSession.SessionID = input.SessionID
		convCtx = &withSession
	}

	resp, update, err := s.chat.GenerateChatResponse(ctx, input.UserMessage, convCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChatGenerationFailed, err)
	}

	s.logger.Debug("chat turn answered", map[string]interface{}{
		"sessionId": convCtx.SessionID,
		"type":      resp.Type,
		"stage":     update.QualificationStage,
	})
	return &Output{Response: resp, ContextUpdate: update}, nil
}
