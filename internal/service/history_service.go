package service

import (
	"context"

	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/repository/contract"
	"ai-companion-be/internal/repository/specification"
	"ai-companion-be/internal/websocket"

	"github.com/google/uuid"
)

const defaultHistoryLimit = 50

type IHistoryService interface {
	GetConversationHistory(ctx context.Context, userID int64, env websocket.Envelope)
}

type historyService struct {
	messages      contract.MessageRepository
	conversations contract.ConversationRepository
	manager       *websocket.Manager
	logger        logger.ILogger
}

func NewHistoryService(
	messages contract.MessageRepository,
	conversations contract.ConversationRepository,
	manager *websocket.Manager,
	log logger.ILogger,
) IHistoryService {
	return &historyService{
		messages:      messages,
		conversations: conversations,
		manager:       manager,
		logger:        log,
	}
}

func (s *historyService) GetConversationHistory(ctx context.Context, userID int64, env websocket.Envelope) {
	if env.ConversationID == "" {
		s.manager.SendError(userID, "conversation_id is required")
		return
	}
	convID, err := uuid.Parse(env.ConversationID)
	if err != nil {
		s.manager.SendError(userID, "invalid conversation_id")
		return
	}

	// Ownership check before reading messages.
	conv, err := s.conversations.FindOne(ctx,
		specification.ByID{ID: convID},
		specification.ByUserID{UserID: userID},
	)
	if err != nil {
		s.logger.Error("HistoryService", "failed to load conversation", map[string]interface{}{
			"conversation_id": env.ConversationID,
			"error":           err.Error(),
		})
		s.manager.SendError(userID, "failed to load history")
		return
	}
	if conv == nil {
		s.manager.SendError(userID, "conversation not found")
		return
	}

	messages, err := s.messages.FindAll(ctx,
		specification.ByConversationID{ConversationID: convID},
		specification.OrderBy{Field: "created_at", Desc: false},
		specification.Pagination{Limit: defaultHistoryLimit},
	)
	if err != nil {
		s.logger.Error("HistoryService", "failed to load messages", map[string]interface{}{
			"conversation_id": env.ConversationID,
			"error":           err.Error(),
		})
		s.manager.SendError(userID, "failed to load history")
		return
	}

	resp := dto.ConversationHistoryResponse{
		Type:           websocket.OutConversationHistory,
		ConversationId: env.ConversationID,
		Messages:       make([]dto.MessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, dto.MessageResponse{
			Id:             m.Id.String(),
			ConversationId: m.ConversationId.String(),
			SenderId:       m.SenderId,
			Content:        m.Content,
			MessageType:    m.MessageType,
			IsAiMessage:    m.IsAiMessage,
			AiCharacterId:  m.AiCharacterId,
			CreatedAt:      m.CreatedAt,
		})
	}
	s.manager.SendJSON(userID, resp)
}
