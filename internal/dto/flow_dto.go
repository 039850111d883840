package dto

import "time"

type MessageResponse struct {
	Id             string    `json:"id"`
	ConversationId string    `json:"conversation_id"`
	SenderId       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	IsAiMessage    bool      `json:"is_ai_message"`
	AiCharacterId  string    `json:"ai_character_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationHistoryResponse struct {
	Type           string            `json:"type"`
	ConversationId string            `json:"conversation_id"`
	Messages       []MessageResponse `json:"messages"`
}

type CharacterResponse struct {
	CharacterId   string `json:"character_id"`
	Name          string `json:"name"`
	Nickname      string `json:"nickname"`
	Description   string `json:"description"`
	Personality   string `json:"personality"`
	SpeakingStyle string `json:"speaking_style"`
	UsageCount    int    `json:"usage_count"`
}

type CharacterListResponse struct {
	Type       string              `json:"type"`
	Characters []CharacterResponse `json:"characters"`
}

type UserStateResponse struct {
	Type           string      `json:"type"`
	ConversationId string      `json:"conversation_id"`
	State          interface{} `json:"state"`
}

type PreferencesUpdatedResponse struct {
	Type    string `json:"type"`
	Updated int    `json:"updated"`
}

type CharacterSwitchedResponse struct {
	Type           string `json:"type"`
	ConversationId string `json:"conversation_id"`
	AiCharacterId  string `json:"ai_character_id"`
}

// ResponsePersistedMessage is the bus payload consumers fold back into the
// state store.
type ResponsePersistedMessage struct {
	UserId         int64   `json:"user_id"`
	ConversationId string  `json:"conversation_id"`
	MessageId      string  `json:"message_id"`
	DecisionType   string  `json:"decision_type"`
	Confidence     float64 `json:"confidence"`
}
