package service

import (
	"context"

	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/repository/contract"
	"ai-companion-be/internal/websocket"
	"ai-companion-be/pkg/flow"
	"ai-companion-be/pkg/flow/state"
)

type IStateService interface {
	GetUserState(ctx context.Context, userID int64, env websocket.Envelope)
	UpdatePreferences(ctx context.Context, userID int64, env websocket.Envelope)
}

type stateService struct {
	preferences contract.UserPreferenceRepository
	states      *state.Store
	manager     *websocket.Manager
	logger      logger.ILogger
}

func NewStateService(
	preferences contract.UserPreferenceRepository,
	states *state.Store,
	manager *websocket.Manager,
	log logger.ILogger,
) IStateService {
	return &stateService{
		preferences: preferences,
		states:      states,
		manager:     manager,
		logger:      log,
	}
}

func (s *stateService) GetUserState(ctx context.Context, userID int64, env websocket.Envelope) {
	if env.ConversationID == "" {
		s.manager.SendError(userID, "conversation_id is required")
		return
	}

	characterID := env.AICharacterID
	if characterID == "" {
		characterID = s.manager.Character(userID)
	}

	st := s.states.Get(ctx, flow.StateKey{UserID: userID, ConversationID: env.ConversationID}, characterID)
	s.manager.SendJSON(userID, dto.UserStateResponse{
		Type:           websocket.OutUserState,
		ConversationId: env.ConversationID,
		State:          st,
	})
}

// UpdatePreferences upserts each key and drops the cached user profile so
// the next generation sees the new values.
func (s *stateService) UpdatePreferences(ctx context.Context, userID int64, env websocket.Envelope) {
	if len(env.Preferences) == 0 {
		s.manager.SendError(userID, "preferences are required")
		return
	}

	updated := 0
	for key, value := range env.Preferences {
		if key == "" {
			continue
		}
		err := s.preferences.Upsert(ctx, &entity.UserPreference{
			UserId:    userID,
			PrefKey:   key,
			PrefValue: value,
		})
		if err != nil {
			s.logger.Error("StateService", "failed to upsert preference", map[string]interface{}{
				"user_id": userID,
				"key":     key,
				"error":   err.Error(),
			})
			continue
		}
		updated++
	}

	s.states.InvalidateUser(ctx, userID)
	s.manager.SendJSON(userID, dto.PreferencesUpdatedResponse{
		Type:    websocket.OutPreferencesUpdated,
		Updated: updated,
	})
}
