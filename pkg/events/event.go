package events

import (
	"time"
)

// Event is anything the engine announces on the bus.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
}

// Subjects published by the flow engine.
const (
	TypeSessionStarted    = "ai_session_started"
	TypeSessionEnded      = "ai_session_ended"
	TypeResponsePersisted = "ai_response_persisted"
)

// SessionEvent marks an AI session starting or ending for a user.
type SessionEvent struct {
	Type          string
	UserID        int64
	AICharacterID string
	At            time.Time
}

func (e SessionEvent) EventType() string { return e.Type }

func (e SessionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"ai_character_id": e.AICharacterID,
		"at":              e.At.UTC().Format(time.RFC3339),
	}
}

// ResponsePersisted is emitted after an AI message reaches the message
// store; consumers fold it back into the state store and statistics.
type ResponsePersisted struct {
	UserID         int64
	ConversationID string
	MessageID      string
	DecisionType   string
	Confidence     float64
	At             time.Time
}

func (e ResponsePersisted) EventType() string { return TypeResponsePersisted }

func (e ResponsePersisted) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"conversation_id": e.ConversationID,
		"message_id":      e.MessageID,
		"decision_type":   e.DecisionType,
		"confidence":      e.Confidence,
		"at":              e.At.UTC().Format(time.RFC3339),
	}
}
