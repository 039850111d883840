package service

import (
	"context"

	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/repository/contract"
	"ai-companion-be/internal/repository/specification"
	"ai-companion-be/internal/websocket"
	"ai-companion-be/pkg/flow"
	"ai-companion-be/pkg/flow/state"

	"github.com/google/uuid"
)

type ICharacterService interface {
	ListCharacters(ctx context.Context, userID int64)
	SwitchCharacter(ctx context.Context, userID int64, env websocket.Envelope)
}

type characterService struct {
	characters    contract.AICharacterRepository
	conversations contract.ConversationRepository
	states        *state.Store
	manager       *websocket.Manager
	logger        logger.ILogger
}

func NewCharacterService(
	characters contract.AICharacterRepository,
	conversations contract.ConversationRepository,
	states *state.Store,
	manager *websocket.Manager,
	log logger.ILogger,
) ICharacterService {
	return &characterService{
		characters:    characters,
		conversations: conversations,
		states:        states,
		manager:       manager,
		logger:        log,
	}
}

func (s *characterService) ListCharacters(ctx context.Context, userID int64) {
	characters, err := s.characters.FindAll(ctx,
		specification.ByStatus{Status: "active"},
		specification.OrderBy{Field: "usage_count", Desc: true},
	)
	if err != nil {
		s.logger.Error("CharacterService", "failed to list characters", map[string]interface{}{
			"error": err.Error(),
		})
		s.manager.SendError(userID, "failed to load characters")
		return
	}

	resp := dto.CharacterListResponse{
		Type:       websocket.OutAICharacters,
		Characters: make([]dto.CharacterResponse, 0, len(characters)),
	}
	for _, c := range characters {
		resp.Characters = append(resp.Characters, dto.CharacterResponse{
			CharacterId:   c.CharacterId,
			Name:          c.Name,
			Nickname:      c.Nickname,
			Description:   c.Description,
			Personality:   c.Personality,
			SpeakingStyle: c.SpeakingStyle,
			UsageCount:    c.UsageCount,
		})
	}
	s.manager.SendJSON(userID, resp)
}

// SwitchCharacter rebinds the conversation to a new character. The cached
// conversation state is invalidated so the next message starts from a fresh
// default seeded with the new character's identity.
func (s *characterService) SwitchCharacter(ctx context.Context, userID int64, env websocket.Envelope) {
	if env.AICharacterID == "" {
		s.manager.SendError(userID, "ai_character_id is required")
		return
	}

	character, err := s.characters.FindByCharacterID(ctx, env.AICharacterID)
	if err != nil {
		s.logger.Error("CharacterService", "failed to load character", map[string]interface{}{
			"character_id": env.AICharacterID,
			"error":        err.Error(),
		})
		s.manager.SendError(userID, "failed to switch character")
		return
	}
	if character == nil {
		s.manager.SendError(userID, "unknown ai character")
		return
	}

	conversationID := env.ConversationID
	if conversationID != "" {
		id, parseErr := uuid.Parse(conversationID)
		if parseErr != nil {
			s.manager.SendError(userID, "invalid conversation_id")
			return
		}
		conv, err := s.conversations.FindOne(ctx,
			specification.ByID{ID: id},
			specification.ByUserID{UserID: userID},
		)
		if err != nil || conv == nil {
			s.manager.SendError(userID, "conversation not found")
			return
		}
		if err := s.conversations.UpdateCharacter(ctx, id, env.AICharacterID); err != nil {
			s.logger.Error("CharacterService", "failed to rebind conversation", map[string]interface{}{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
			s.manager.SendError(userID, "failed to switch character")
			return
		}
		s.states.Invalidate(ctx, flow.StateKey{UserID: userID, ConversationID: conversationID})
	}

	if err := s.characters.IncrementUsage(ctx, env.AICharacterID); err != nil {
		s.logger.Warn("CharacterService", "failed to increment character usage", map[string]interface{}{
			"character_id": env.AICharacterID,
			"error":        err.Error(),
		})
	}

	s.manager.BindCharacter(userID, env.AICharacterID)
	s.manager.SendJSON(userID, dto.CharacterSwitchedResponse{
		Type:           websocket.OutCharacterSwitched,
		ConversationId: conversationID,
		AiCharacterId:  env.AICharacterID,
	})
}
