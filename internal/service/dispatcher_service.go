package service

import (
	"context"
	"fmt"

	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/websocket"
	"ai-companion-be/pkg/flow"

	"github.com/go-playground/validator/v10"
)

// Dispatcher routes decoded envelopes to the owning service. It implements
// websocket.Dispatcher; ping frames are answered by the manager before
// reaching here.
type Dispatcher struct {
	chat       IChatService
	characters ICharacterService
	states     IStateService
	history    IHistoryService
	manager    *websocket.Manager
	validate   *validator.Validate
	logger     logger.ILogger
}

func NewDispatcher(
	chat IChatService,
	characters ICharacterService,
	states IStateService,
	history IHistoryService,
	manager *websocket.Manager,
	log logger.ILogger,
) *Dispatcher {
	return &Dispatcher{
		chat:       chat,
		characters: characters,
		states:     states,
		history:    history,
		manager:    manager,
		validate:   validator.New(),
		logger:     log,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, env websocket.Envelope) {
	if err := d.validate.Struct(env); err != nil {
		d.manager.SendError(userID, "invalid message envelope")
		return
	}

	switch env.Type {
	case flow.MessageChat:
		d.chat.HandleChatMessage(ctx, userID, env)
	case flow.MessageStartAISession:
		d.chat.StartSession(ctx, userID, env)
	case flow.MessageEndAISession:
		d.chat.EndSession(ctx, userID, env)
	case flow.MessageGetHistory:
		d.history.GetConversationHistory(ctx, userID, env)
	case flow.MessageGetAICharacters:
		d.characters.ListCharacters(ctx, userID)
	case flow.MessageGetUserState:
		d.states.GetUserState(ctx, userID, env)
	case flow.MessageUpdatePreferences:
		d.states.UpdatePreferences(ctx, userID, env)
	case flow.MessageSwitchAICharacter:
		d.characters.SwitchCharacter(ctx, userID, env)
	default:
		d.logger.Warn("Dispatcher", "unknown message type", map[string]interface{}{
			"user_id": userID,
			"type":    string(env.Type),
		})
		d.manager.SendError(userID, fmt.Sprintf("unknown message type: %s", env.Type))
	}
}
