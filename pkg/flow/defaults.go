package flow

import (
	"strings"
	"time"
)

// DefaultState builds the initial conversation state for a key, seeded from
// a character profile when one is available. Every dimension is populated;
// absent inputs fall back to the documented defaults.
func DefaultState(key StateKey, characterID string, character *CharacterProfile, now time.Time) *ConversationState {
	identity := "assistant"
	traits := []string{"helpful", "friendly"}
	style := "natural"
	if character != nil {
		if character.Nickname != "" {
			identity = character.Nickname
		}
		if character.Personality != "" {
			traits = splitTraits(character.Personality)
		}
		if character.SpeakingStyle != "" {
			style = character.SpeakingStyle
		}
	}

	return &ConversationState{
		UserID:         key.UserID,
		ConversationID: key.ConversationID,
		AICharacterID:  characterID,
		RoleCognition: RoleCognition{
			CharacterIdentity: identity,
			PersonalityTraits: traits,
			MemoryContext:     []string{},
			ConsistencyScore:  0.8,
		},
		InteractionDynamics: InteractionDynamics{
			ConversationPhase:   "greeting",
			UserEngagementLevel: 0.5,
			ResponseUrgency:     "medium",
			TopicFlow:           []string{},
			InteractionPattern:  "standard",
			EmotionalResonance:  0.5,
		},
		ExpressionRules: ExpressionRules{
			SpeakingStyle:   style,
			LanguageLevel:   "intermediate",
			HumorPreference: "moderate",
			FormalityLevel:  "casual",
			CulturalContext: "neutral",
		},
		CapabilityPermissions: CapabilityPermissions{
			AvailableFunctions: []string{"chat", "question_answer", "creative_writing"},
			AccessLevel:        "standard",
			FeaturePermissions: map[string]bool{
				"chat":             true,
				"question_answer":  true,
				"creative_writing": true,
			},
			MaxTokens: 1000,
			RateLimit: 100,
		},
		EnvironmentScenario: EnvironmentScenario{
			CurrentScenario: "general_chat",
			TimeContext:     TimeContextFor(now),
			LocationContext: "unknown",
			SocialContext:   "one_on_one",
			ActivityContext: "chatting",
			MoodAtmosphere:  "neutral",
		},
		DynamicAdjustment: DynamicAdjustment{
			LearningRate:    0.1,
			AdaptationLevel: "medium",
		},
		EmotionChain:       []EmotionRecord{},
		InteractionHistory: []InteractionRecord{},
		LastUpdateTime:     now,
	}
}

// TimeContextFor buckets a wall-clock hour into the scenario time context.
func TimeContextFor(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return "morning"
	case h >= 12 && h < 18:
		return "afternoon"
	case h >= 18 && h < 22:
		return "evening"
	default:
		return "night"
	}
}

func splitTraits(personality string) []string {
	parts := strings.FieldsFunc(personality, func(r rune) bool {
		return r == ',' || r == '，'
	})
	traits := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			traits = append(traits, p)
		}
	}
	if len(traits) == 0 {
		return []string{"helpful", "friendly"}
	}
	return traits
}
