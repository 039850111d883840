package websocket

import (
	"encoding/json"
	"time"

	"ai-companion-be/pkg/flow"
)

// Outbound envelope types.
const (
	OutConnectionEstablished = "connection_established"
	OutUserMessageSent       = "user_message_sent"
	OutAIStreamStart         = "ai_stream_start"
	OutAIStreamChunk         = "ai_stream_chunk"
	OutAIStreamEnd           = "ai_stream_end"
	OutAIError               = "ai_error"
	OutAISessionStarted      = "ai_session_started"
	OutAISessionEnded        = "ai_session_ended"
	OutConversationHistory   = "conversation_history"
	OutAICharacters          = "ai_characters"
	OutUserState             = "user_state"
	OutPreferencesUpdated    = "preferences_updated"
	OutCharacterSwitched     = "ai_character_switched"
	OutPong                  = "pong"
	OutError                 = "error"
)

// Envelope is one decoded inbound frame. Unknown fields are ignored;
// type-specific fields are validated by the service layer.
type Envelope struct {
	Type           flow.MessageType       `json:"type" validate:"required"`
	Content        string                 `json:"content,omitempty" validate:"max=4000"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	AICharacterID  string                 `json:"ai_character_id,omitempty"`
	MessageID      string                 `json:"message_id,omitempty"`
	Preferences    map[string]string      `json:"preferences,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// DecodeEnvelope parses one inbound frame. A malformed frame is reported to
// the sender as an error envelope, never as a closed connection.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Outbound envelope payloads.

type connectionEstablishedEnvelope struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
}

type userMessageSentEnvelope struct {
	Type           string `json:"type"`
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

type streamStartEnvelope struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
}

type streamChunkEnvelope struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Chunk     string `json:"chunk"`
}

type streamEndEnvelope struct {
	Type         string `json:"type"`
	MessageID    string `json:"message_id"`
	FinalContent string `json:"final_content"`
}

type aiErrorEnvelope struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type sessionEnvelope struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	AICharacterID  string `json:"ai_character_id,omitempty"`
}

type pongEnvelope struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type errorEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newPongEnvelope(t time.Time) pongEnvelope {
	return pongEnvelope{Type: OutPong, Timestamp: t.Unix()}
}
