package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/pkg/flow"
	"ai-companion-be/pkg/flow/state"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService folds persisted AI responses back into the conversation
// state store, off the hot generation path.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	states    *state.Store
	logger    logger.ILogger
	now       func() time.Time
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	states *state.Store,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		states:    states,
		logger:    log,
		now:       time.Now,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ResponsePersistedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "failed to unmarshal persisted response", map[string]interface{}{
			"message_uuid": msg.UUID,
			"error":        err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	key := flow.StateKey{UserID: payload.UserId, ConversationID: payload.ConversationId}
	st := cs.states.Get(ctx, key, "")
	st.DynamicAdjustment.LastInteraction = cs.now().UTC().Format(time.RFC3339)
	if payload.DecisionType != "" {
		st.InteractionDynamics.InteractionPattern = payload.DecisionType
	}
	cs.states.Commit(ctx, st)

	msg.Ack()
}
