package flow

import (
	"fmt"
	"time"
)

// Bounds for the rolling state sequences.
const (
	MaxEmotionChain       = 20
	MaxInteractionHistory = 50
	MaxMemoryContext      = 10
)

// StateKey identifies one conversation state entry.
type StateKey struct {
	UserID         int64
	ConversationID string
}

func (k StateKey) String() string {
	return fmt.Sprintf("conversation_state:%d:%s", k.UserID, k.ConversationID)
}

// RoleCognition describes who the character believes itself to be.
type RoleCognition struct {
	CharacterIdentity string   `json:"character_identity"`
	PersonalityTraits []string `json:"personality_traits"`
	MemoryContext     []string `json:"memory_context"`
	ConsistencyScore  float64  `json:"consistency_score"`
}

// InteractionDynamics tracks how the conversation is moving.
type InteractionDynamics struct {
	ConversationPhase   string   `json:"conversation_phase"` // greeting, main, clarification, closing
	UserEngagementLevel float64  `json:"user_engagement_level"`
	ResponseUrgency     string   `json:"response_urgency"` // low, medium, high
	TopicFlow           []string `json:"topic_flow"`
	InteractionPattern  string   `json:"interaction_pattern"`
	EmotionalResonance  float64  `json:"emotional_resonance"`
}

// ExpressionRules constrains how the character speaks.
type ExpressionRules struct {
	SpeakingStyle   string `json:"speaking_style"`
	LanguageLevel   string `json:"language_level"`
	HumorPreference string `json:"humor_preference"` // low, moderate, high
	FormalityLevel  string `json:"formality_level"`  // casual, formal
	CulturalContext string `json:"cultural_context"`
}

// CapabilityPermissions is what the character is allowed to do.
type CapabilityPermissions struct {
	AvailableFunctions []string        `json:"available_functions"`
	AccessLevel        string          `json:"access_level"`
	FeaturePermissions map[string]bool `json:"feature_permissions"`
	MaxTokens          int             `json:"max_tokens"`
	RateLimit          int             `json:"rate_limit"`
}

// EnvironmentScenario is the ambient setting of the conversation.
type EnvironmentScenario struct {
	CurrentScenario string `json:"current_scenario"`
	TimeContext     string `json:"time_context"` // morning, afternoon, evening, night
	LocationContext string `json:"location_context"`
	SocialContext   string `json:"social_context"`
	ActivityContext string `json:"activity_context"`
	MoodAtmosphere  string `json:"mood_atmosphere"`
}

// DynamicAdjustment accumulates tuning signals over the conversation.
type DynamicAdjustment struct {
	LearningRate     float64 `json:"learning_rate"`
	AdaptationLevel  string  `json:"adaptation_level"`
	InteractionCount int     `json:"interaction_count"`
	LastInteraction  string  `json:"last_interaction"`
}

// EmotionRecord is one link of the emotion chain.
type EmotionRecord struct {
	Emotion   string    `json:"emotion"`
	Intensity float64   `json:"intensity"`
	Timestamp time.Time `json:"timestamp"`
	Trigger   string    `json:"trigger"`
}

// InteractionRecord is one entry of the interaction history.
type InteractionRecord struct {
	Intent     string    `json:"intent"`
	Entities   int       `json:"entities"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConversationState is the six-dimension conversation context. It is a
// derived, rebuildable cache entry; losing it is recoverable.
type ConversationState struct {
	UserID         int64  `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	AICharacterID  string `json:"ai_character_id"`

	RoleCognition         RoleCognition         `json:"role_cognition"`
	InteractionDynamics   InteractionDynamics   `json:"interaction_dynamics"`
	ExpressionRules       ExpressionRules       `json:"expression_rules"`
	CapabilityPermissions CapabilityPermissions `json:"capability_permissions"`
	EnvironmentScenario   EnvironmentScenario   `json:"environment_scenario"`
	DynamicAdjustment     DynamicAdjustment     `json:"dynamic_adjustment"`

	EmotionChain       []EmotionRecord     `json:"emotion_chain"`
	InteractionHistory []InteractionRecord `json:"interaction_history"`
	LastUpdateTime     time.Time           `json:"last_update_time"`
}

// Key returns the cache identity of the state.
func (s *ConversationState) Key() StateKey {
	return StateKey{UserID: s.UserID, ConversationID: s.ConversationID}
}

// Clone returns a deep copy so updates never mutate a shared snapshot.
func (s *ConversationState) Clone() *ConversationState {
	c := *s
	c.RoleCognition.PersonalityTraits = append([]string(nil), s.RoleCognition.PersonalityTraits...)
	c.RoleCognition.MemoryContext = append([]string(nil), s.RoleCognition.MemoryContext...)
	c.InteractionDynamics.TopicFlow = append([]string(nil), s.InteractionDynamics.TopicFlow...)
	c.CapabilityPermissions.AvailableFunctions = append([]string(nil), s.CapabilityPermissions.AvailableFunctions...)
	c.CapabilityPermissions.FeaturePermissions = make(map[string]bool, len(s.CapabilityPermissions.FeaturePermissions))
	for k, v := range s.CapabilityPermissions.FeaturePermissions {
		c.CapabilityPermissions.FeaturePermissions[k] = v
	}
	c.EmotionChain = append([]EmotionRecord(nil), s.EmotionChain...)
	c.InteractionHistory = append([]InteractionRecord(nil), s.InteractionHistory...)
	return &c
}

// HasFunction reports whether a capability function is granted.
func (s *ConversationState) HasFunction(name string) bool {
	for _, f := range s.CapabilityPermissions.AvailableFunctions {
		if f == name {
			return true
		}
	}
	return false
}

// CharacterProfile is the cached snapshot of an AI character record.
type CharacterProfile struct {
	CharacterID   string `json:"character_id"`
	Name          string `json:"name"`
	Nickname      string `json:"nickname"`
	Description   string `json:"description"`
	Personality   string `json:"personality"`
	SpeakingStyle string `json:"speaking_style"`
	UsageCount    int    `json:"usage_count"`
}

// UserProfile is the cached snapshot of a user record.
type UserProfile struct {
	UserID      int64             `json:"user_id"`
	Username    string            `json:"username"`
	Preferences map[string]string `json:"preferences"`
}
