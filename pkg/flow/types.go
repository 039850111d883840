package flow

import (
	"time"
)

// MessageType enumerates the inbound websocket envelope types.
type MessageType string

const (
	MessageStartAISession    MessageType = "start_ai_session"
	MessageEndAISession      MessageType = "end_ai_session"
	MessageChat              MessageType = "chat_message"
	MessageGetHistory        MessageType = "get_conversation_history"
	MessageGetAICharacters   MessageType = "get_ai_characters"
	MessageGetUserState      MessageType = "get_user_state"
	MessageUpdatePreferences MessageType = "update_user_preferences"
	MessageSwitchAICharacter MessageType = "switch_ai_character"
	MessagePing              MessageType = "ping"
)

// UserInput is one inbound message after envelope decoding.
type UserInput struct {
	UserID         int64
	MessageType    MessageType
	Content        string
	ConversationID string
	AICharacterID  string
	MessageID      string
	Metadata       map[string]interface{}
	Timestamp      time.Time
}

// Intent tags produced by the parser. UnknownIntent is the floor, never empty.
const (
	IntentGreeting           = "greeting"
	IntentQuestion           = "question"
	IntentRequest            = "request"
	IntentComplaint          = "complaint"
	IntentPraise             = "praise"
	IntentStoryRequest       = "story_request"
	IntentCreativeRequest    = "creative_request"
	IntentInformationRequest = "information_request"
	IntentEmotionalSupport   = "emotional_support"
	IntentTopicChange        = "topic_change"
	IntentFarewell           = "farewell"
	IntentUnknown            = "unknown"
)

// Sentiment tags.
const (
	SentimentPositive   = "positive"
	SentimentNegative   = "negative"
	SentimentExcited    = "excited"
	SentimentFrustrated = "frustrated"
	SentimentSad        = "sad"
	SentimentHappy      = "happy"
	SentimentAngry      = "angry"
	SentimentNeutral    = "neutral"
)

// ParsedEntity is one extracted entity with its span in the original text.
type ParsedEntity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// ParsedInput is the immutable result of parsing one message.
type ParsedInput struct {
	OriginalText string                 `json:"original_text"`
	Intent       string                 `json:"intent"`
	Entities     []ParsedEntity         `json:"entities"`
	Sentiment    string                 `json:"sentiment"`
	Confidence   float64                `json:"confidence"`
	Language     string                 `json:"language"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Decision types.
const (
	DecisionRespondImmediately = "respond_immediately"
	DecisionAskClarification   = "ask_clarification"
	DecisionProvideInformation = "provide_information"
	DecisionCreativeResponse   = "creative_response"
	DecisionEmotionalSupport   = "emotional_support"
	DecisionTopicSwitch        = "topic_switch"
)

// Action types.
const (
	ActionGenerateText      = "generate_text"
	ActionGenerateStreaming = "generate_streaming"
	ActionRequestMoreInfo   = "request_more_info"
)

// StateChanges is the partial patch a decision asks the caller to apply to
// the interaction-dynamics dimension. Nil pointers mean "leave unchanged".
type StateChanges struct {
	ConversationPhase  string   `json:"conversation_phase,omitempty"`
	ResponseUrgency    string   `json:"response_urgency,omitempty"`
	TopicFlow          string   `json:"topic_flow,omitempty"`
	EmotionalResonance *float64 `json:"emotional_resonance,omitempty"`
}

// FlowDecision is the engine's chosen strategy. Consumed once by the adapter.
type FlowDecision struct {
	DecisionType string                 `json:"decision_type"`
	Action       string                 `json:"action"`
	Parameters   map[string]interface{} `json:"parameters"`
	Confidence   float64                `json:"confidence"`
	Reasoning    string                 `json:"reasoning"`
	NextSteps    []string               `json:"next_steps"`
	StateChanges StateChanges           `json:"state_changes"`
}

// AIResponse is the terminal artifact of one pipeline run.
type AIResponse struct {
	UserID         int64                  `json:"user_id"`
	ConversationID string                 `json:"conversation_id"`
	MessageID      string                 `json:"message_id"`
	Content        string                 `json:"content"`
	MessageType    string                 `json:"message_type"`
	IsStreaming    bool                   `json:"is_streaming"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}
