package state

import (
	"ai-companion-be/pkg/flow"
)

// Update derives the next state from the previous state and one parsed
// input. It is a pure function of its arguments plus the store clock and
// never touches external records. Re-applying the identical input under a
// fixed clock produces identical history, not duplicated entries.
func (s *Store) Update(prev *flow.ConversationState, parsed flow.ParsedInput) *flow.ConversationState {
	now := s.now()
	next := prev.Clone()

	// Role cognition: remember recent intents, blend consistency toward
	// the parse confidence.
	rc := &next.RoleCognition
	if parsed.Intent != "" && !contains(rc.MemoryContext, parsed.Intent) {
		rc.MemoryContext = append(rc.MemoryContext, parsed.Intent)
		if len(rc.MemoryContext) > flow.MaxMemoryContext {
			rc.MemoryContext = rc.MemoryContext[len(rc.MemoryContext)-flow.MaxMemoryContext:]
		}
	}
	rc.ConsistencyScore = clamp01((rc.ConsistencyScore + parsed.Confidence) / 2)

	// Interaction dynamics: phase flips on greeting/farewell, engagement is
	// an exponential blend with the parse confidence.
	id := &next.InteractionDynamics
	switch parsed.Intent {
	case flow.IntentGreeting:
		id.ConversationPhase = "greeting"
	case flow.IntentFarewell:
		id.ConversationPhase = "closing"
	default:
		id.ConversationPhase = "main"
	}
	id.UserEngagementLevel = clamp01((id.UserEngagementLevel + parsed.Confidence) / 2)

	// Expression rules: sentiment nudges formality.
	switch parsed.Sentiment {
	case flow.SentimentPositive, flow.SentimentHappy, flow.SentimentExcited:
		next.ExpressionRules.FormalityLevel = "casual"
	case flow.SentimentNegative, flow.SentimentAngry:
		next.ExpressionRules.FormalityLevel = "formal"
	}

	// Environment: re-bucket the time-of-day context.
	next.EnvironmentScenario.TimeContext = flow.TimeContextFor(now)

	// Dynamic adjustment: usage counters.
	next.DynamicAdjustment.InteractionCount++
	next.DynamicAdjustment.LastInteraction = now.UTC().Format("2006-01-02T15:04:05Z07:00")

	// Emotion chain: append iff a sentiment is present and the record
	// differs from the newest link. Bounded, oldest evicted.
	if parsed.Sentiment != "" {
		record := flow.EmotionRecord{
			Emotion:   parsed.Sentiment,
			Intensity: parsed.Confidence,
			Timestamp: now,
			Trigger:   parsed.Intent,
		}
		if n := len(next.EmotionChain); n == 0 || next.EmotionChain[n-1] != record {
			next.EmotionChain = append(next.EmotionChain, record)
		}
		if len(next.EmotionChain) > flow.MaxEmotionChain {
			next.EmotionChain = next.EmotionChain[len(next.EmotionChain)-flow.MaxEmotionChain:]
		}
	}

	// Interaction history: same duplicate suppression and bound.
	entry := flow.InteractionRecord{
		Intent:     parsed.Intent,
		Entities:   len(parsed.Entities),
		Confidence: parsed.Confidence,
		Timestamp:  now,
	}
	if n := len(next.InteractionHistory); n == 0 || next.InteractionHistory[n-1] != entry {
		next.InteractionHistory = append(next.InteractionHistory, entry)
	}
	if len(next.InteractionHistory) > flow.MaxInteractionHistory {
		next.InteractionHistory = next.InteractionHistory[len(next.InteractionHistory)-flow.MaxInteractionHistory:]
	}

	next.LastUpdateTime = now
	return next
}

// ApplyChanges applies a decision's state patch. The engine itself is
// side-effect-free; the flow processor calls this after deciding.
func ApplyChanges(st *flow.ConversationState, changes flow.StateChanges) {
	if changes.ConversationPhase != "" {
		st.InteractionDynamics.ConversationPhase = changes.ConversationPhase
	}
	if changes.ResponseUrgency != "" {
		st.InteractionDynamics.ResponseUrgency = changes.ResponseUrgency
	}
	if changes.TopicFlow != "" {
		st.InteractionDynamics.TopicFlow = append(st.InteractionDynamics.TopicFlow, changes.TopicFlow)
	}
	if changes.EmotionalResonance != nil {
		st.InteractionDynamics.EmotionalResonance = clamp01(*changes.EmotionalResonance)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
