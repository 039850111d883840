package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/repository/contract"
	"ai-companion-be/internal/repository/specification"
	"ai-companion-be/internal/websocket"
	"ai-companion-be/pkg/events"
	"ai-companion-be/pkg/flow"
	"ai-companion-be/pkg/flow/pipeline"
	"ai-companion-be/pkg/flow/state"
	natsbus "ai-companion-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const persistTimeout = 5 * time.Second

// IChatService owns the message path: persist the user turn, run the flow
// under the user's single generation slot, stream the result and persist
// the AI turn only after a completed, delivered generation.
type IChatService interface {
	HandleChatMessage(ctx context.Context, userID int64, env websocket.Envelope)
	StartSession(ctx context.Context, userID int64, env websocket.Envelope)
	EndSession(ctx context.Context, userID int64, env websocket.Envelope)
}

type chatService struct {
	messages      contract.MessageRepository
	conversations contract.ConversationRepository
	characters    contract.AICharacterRepository
	states        *state.Store
	processor     *pipeline.Processor
	manager       *websocket.Manager
	pubSub        *gochannel.GoChannel
	eventsTopic   string
	bus           *natsbus.Publisher
	logger        logger.ILogger
	genTimeout    time.Duration
	now           func() time.Time
}

func NewChatService(
	messages contract.MessageRepository,
	conversations contract.ConversationRepository,
	characters contract.AICharacterRepository,
	states *state.Store,
	processor *pipeline.Processor,
	manager *websocket.Manager,
	pubSub *gochannel.GoChannel,
	eventsTopic string,
	bus *natsbus.Publisher,
	log logger.ILogger,
	genTimeout time.Duration,
) IChatService {
	if genTimeout <= 0 {
		genTimeout = 30 * time.Second
	}
	return &chatService{
		messages:      messages,
		conversations: conversations,
		characters:    characters,
		states:        states,
		processor:     processor,
		manager:       manager,
		pubSub:        pubSub,
		eventsTopic:   eventsTopic,
		bus:           bus,
		logger:        log,
		genTimeout:    genTimeout,
		now:           time.Now,
	}
}

func (cs *chatService) HandleChatMessage(ctx context.Context, userID int64, env websocket.Envelope) {
	if strings.TrimSpace(env.Content) == "" {
		cs.manager.SendError(userID, "empty message content")
		return
	}

	characterID := env.AICharacterID
	if characterID == "" {
		characterID = cs.manager.Character(userID)
	}

	conv, err := cs.resolveConversation(ctx, userID, env.ConversationID, characterID)
	if err != nil {
		cs.logger.Error("ChatService", "failed to resolve conversation", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		cs.manager.StreamError(userID, "无法打开对话，请稍后再试。")
		return
	}
	if characterID == "" {
		characterID = conv.AiCharacterId
	}

	userMsg := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conv.Id,
		SenderId:       userID,
		Content:        env.Content,
		MessageType:    "text",
		IsAiMessage:    false,
		AiCharacterId:  characterID,
		CreatedAt:      cs.now(),
	}
	if err := cs.messages.Create(ctx, userMsg); err != nil {
		cs.logger.Error("ChatService", "failed to persist user message", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		cs.manager.StreamError(userID, "消息保存失败，请稍后再试。")
		return
	}
	if err := cs.conversations.UpdateLastMessage(ctx, conv.Id, userMsg.Id, userMsg.CreatedAt); err != nil {
		cs.logger.Warn("ChatService", "failed to update conversation last message", map[string]interface{}{
			"conversation_id": conv.Id.String(),
			"error":           err.Error(),
		})
	}
	cs.manager.SendUserMessageSent(userID, userMsg.Id.String(), conv.Id.String())

	aiMessageID := uuid.New()

	// Claim the user's single generation slot. Any in-flight generation is
	// cancelled and awaited here: last message wins.
	taskCtx, finish, err := cs.manager.BeginTask(userID, aiMessageID.String())
	if err != nil {
		return
	}

	input := flow.UserInput{
		UserID:         userID,
		MessageType:    flow.MessageChat,
		Content:        env.Content,
		ConversationID: conv.Id.String(),
		AICharacterID:  characterID,
		MessageID:      aiMessageID.String(),
		Metadata:       env.Metadata,
		Timestamp:      cs.now(),
	}

	go cs.generate(taskCtx, finish, userID, conv.Id, aiMessageID, input)
}

// generate runs one abandoned-on-cancel generation task. Every step after
// Process checks the task context: a replaced or disconnected task streams
// nothing further and persists nothing.
func (cs *chatService) generate(taskCtx context.Context, finish func(), userID int64, convID, aiMessageID uuid.UUID, input flow.UserInput) {
	defer finish()

	genCtx, cancel := context.WithTimeout(taskCtx, cs.genTimeout)
	defer cancel()

	resp := cs.processor.Process(genCtx, input)

	if taskCtx.Err() != nil {
		return
	}

	if err := cs.manager.StreamStart(userID, input.MessageID); err != nil {
		return
	}
	for _, chunk := range cs.processor.Chunks(resp.Content) {
		if taskCtx.Err() != nil {
			return
		}
		if err := cs.manager.StreamChunk(userID, input.MessageID, chunk); err != nil {
			return
		}
	}
	if taskCtx.Err() != nil {
		return
	}
	if err := cs.manager.StreamEnd(userID, input.MessageID, resp.Content); err != nil {
		return
	}

	cs.persistResponse(userID, convID, aiMessageID, input.AICharacterID, resp)
}

func (cs *chatService) persistResponse(userID int64, convID, aiMessageID uuid.UUID, characterID string, resp flow.AIResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	aiMsg := &entity.Message{
		Id:             aiMessageID,
		ConversationId: convID,
		ReceiverId:     userID,
		Content:        resp.Content,
		MessageType:    resp.MessageType,
		IsAiMessage:    true,
		AiCharacterId:  characterID,
		CreatedAt:      cs.now(),
	}
	if err := cs.messages.Create(ctx, aiMsg); err != nil {
		cs.logger.Error("ChatService", "failed to persist ai message", map[string]interface{}{
			"user_id":    userID,
			"message_id": aiMessageID.String(),
			"error":      err.Error(),
		})
		return
	}
	if err := cs.conversations.UpdateLastMessage(ctx, convID, aiMsg.Id, aiMsg.CreatedAt); err != nil {
		cs.logger.Warn("ChatService", "failed to update conversation last message", map[string]interface{}{
			"conversation_id": convID.String(),
			"error":           err.Error(),
		})
	}

	cs.publishPersisted(ctx, resp)
}

func (cs *chatService) publishPersisted(ctx context.Context, resp flow.AIResponse) {
	decisionType, _ := resp.Metadata["decision_type"].(string)
	confidence, _ := resp.Metadata["confidence_score"].(float64)

	if err := cs.bus.Publish(ctx, events.ResponsePersisted{
		UserID:         resp.UserID,
		ConversationID: resp.ConversationID,
		MessageID:      resp.MessageID,
		DecisionType:   decisionType,
		Confidence:     confidence,
		At:             cs.now(),
	}); err != nil {
		cs.logger.Warn("ChatService", "failed to publish persisted response to bus", map[string]interface{}{
			"message_id": resp.MessageID,
			"error":      err.Error(),
		})
	}

	if cs.pubSub == nil {
		return
	}
	payload, err := json.Marshal(dto.ResponsePersistedMessage{
		UserId:         resp.UserID,
		ConversationId: resp.ConversationID,
		MessageId:      resp.MessageID,
		DecisionType:   decisionType,
		Confidence:     confidence,
	})
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := cs.pubSub.Publish(cs.eventsTopic, msg); err != nil {
		cs.logger.Warn("ChatService", "failed to publish persisted response", map[string]interface{}{
			"message_id": resp.MessageID,
			"error":      err.Error(),
		})
	}
}

func (cs *chatService) StartSession(ctx context.Context, userID int64, env websocket.Envelope) {
	characterID := env.AICharacterID
	if characterID == "" {
		cs.manager.SendError(userID, "ai_character_id is required")
		return
	}

	character, err := cs.characters.FindByCharacterID(ctx, characterID)
	if err != nil {
		cs.logger.Error("ChatService", "failed to load character", map[string]interface{}{
			"character_id": characterID,
			"error":        err.Error(),
		})
		cs.manager.SendError(userID, "failed to start session")
		return
	}
	if character == nil {
		cs.manager.SendError(userID, "unknown ai character")
		return
	}

	conv, err := cs.resolveConversation(ctx, userID, env.ConversationID, characterID)
	if err != nil {
		cs.logger.Error("ChatService", "failed to open conversation", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		cs.manager.SendError(userID, "failed to start session")
		return
	}

	if err := cs.characters.IncrementUsage(ctx, characterID); err != nil {
		cs.logger.Warn("ChatService", "failed to increment character usage", map[string]interface{}{
			"character_id": characterID,
			"error":        err.Error(),
		})
	}

	cs.manager.BindCharacter(userID, characterID)
	cs.publishSession(ctx, events.TypeSessionStarted, userID, characterID)
	cs.manager.SendSessionStarted(userID, conv.Id.String(), characterID)
}

func (cs *chatService) EndSession(ctx context.Context, userID int64, env websocket.Envelope) {
	cs.manager.CancelTask(userID)

	if env.ConversationID != "" {
		cs.states.Invalidate(ctx, flow.StateKey{UserID: userID, ConversationID: env.ConversationID})
	}

	characterID := cs.manager.Character(userID)
	cs.manager.BindCharacter(userID, "")
	cs.publishSession(ctx, events.TypeSessionEnded, userID, characterID)
	cs.manager.SendSessionEnded(userID, env.ConversationID)
}

func (cs *chatService) publishSession(ctx context.Context, eventType string, userID int64, characterID string) {
	if cs.bus == nil {
		return
	}
	err := cs.bus.Publish(ctx, events.SessionEvent{
		Type:          eventType,
		UserID:        userID,
		AICharacterID: characterID,
		At:            cs.now(),
	})
	if err != nil {
		cs.logger.Warn("ChatService", "failed to publish session event", map[string]interface{}{
			"event":   eventType,
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

// resolveConversation loads the user's conversation or lazily creates one
// bound to the given character.
func (cs *chatService) resolveConversation(ctx context.Context, userID int64, conversationID, characterID string) (*entity.Conversation, error) {
	if conversationID != "" {
		id, err := uuid.Parse(conversationID)
		if err == nil {
			conv, err := cs.conversations.FindOne(ctx,
				specification.ByID{ID: id},
				specification.ByUserID{UserID: userID},
			)
			if err != nil {
				return nil, err
			}
			if conv != nil {
				return conv, nil
			}
		}
	}

	conv := &entity.Conversation{
		Id:            uuid.New(),
		UserId:        userID,
		AiCharacterId: characterID,
		CreatedAt:     cs.now(),
	}
	if err := cs.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}
