package state

import (
	"testing"
	"time"

	"ai-companion-be/pkg/cache"
	"ai-companion-be/pkg/flow"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestStore(now time.Time) *Store {
	c := cache.NewMemory(time.Minute, time.Minute)
	return NewStore(c, nil, DefaultTTLConfig(), nil).WithClock(fixedClock(now))
}

func TestUpdateIsIdempotentUnderFixedClock(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStore(now)

	key := flow.StateKey{UserID: 1, ConversationID: "c1"}
	prev := flow.DefaultState(key, "char-1", nil, now)

	parsed := flow.ParsedInput{
		OriginalText: "你好",
		Intent:       flow.IntentGreeting,
		Sentiment:    flow.SentimentPositive,
		Confidence:   0.8,
	}

	first := store.Update(prev, parsed)
	second := store.Update(first, parsed)

	if len(second.EmotionChain) != len(first.EmotionChain) {
		t.Errorf("EmotionChain grew on identical input: %d -> %d",
			len(first.EmotionChain), len(second.EmotionChain))
	}
	if len(second.InteractionHistory) != len(first.InteractionHistory) {
		t.Errorf("InteractionHistory grew on identical input: %d -> %d",
			len(first.InteractionHistory), len(second.InteractionHistory))
	}
	if len(second.RoleCognition.MemoryContext) != len(first.RoleCognition.MemoryContext) {
		t.Errorf("MemoryContext grew on identical input: %d -> %d",
			len(first.RoleCognition.MemoryContext), len(second.RoleCognition.MemoryContext))
	}
}

func TestUpdateDoesNotMutatePrevious(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStore(now)

	key := flow.StateKey{UserID: 1, ConversationID: "c1"}
	prev := flow.DefaultState(key, "char-1", nil, now)
	prevChainLen := len(prev.EmotionChain)
	prevPhase := prev.InteractionDynamics.ConversationPhase

	store.Update(prev, flow.ParsedInput{
		Intent:     flow.IntentFarewell,
		Sentiment:  flow.SentimentSad,
		Confidence: 0.9,
	})

	if len(prev.EmotionChain) != prevChainLen {
		t.Error("Update mutated the previous state's emotion chain")
	}
	if prev.InteractionDynamics.ConversationPhase != prevPhase {
		t.Error("Update mutated the previous state's conversation phase")
	}
}

func TestUpdateBoundsSequences(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStore(now)

	key := flow.StateKey{UserID: 1, ConversationID: "c1"}
	st := flow.DefaultState(key, "char-1", nil, now)

	// Vary confidence so every record is distinct from its predecessor.
	for i := 0; i < 60; i++ {
		parsed := flow.ParsedInput{
			Intent:     flow.IntentQuestion,
			Sentiment:  flow.SentimentPositive,
			Confidence: 0.3 + float64(i)*0.01,
		}
		st = store.Update(st, parsed)
	}

	if len(st.EmotionChain) > flow.MaxEmotionChain {
		t.Errorf("EmotionChain = %d entries, want <= %d", len(st.EmotionChain), flow.MaxEmotionChain)
	}
	if len(st.InteractionHistory) > flow.MaxInteractionHistory {
		t.Errorf("InteractionHistory = %d entries, want <= %d",
			len(st.InteractionHistory), flow.MaxInteractionHistory)
	}
	if len(st.RoleCognition.MemoryContext) > flow.MaxMemoryContext {
		t.Errorf("MemoryContext = %d entries, want <= %d",
			len(st.RoleCognition.MemoryContext), flow.MaxMemoryContext)
	}

	// The newest links survive eviction.
	last := st.EmotionChain[len(st.EmotionChain)-1]
	if last.Intensity < 0.88 {
		t.Errorf("newest emotion intensity = %v, want the most recent record kept", last.Intensity)
	}
}

func TestUpdatePhaseTransitions(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStore(now)

	key := flow.StateKey{UserID: 1, ConversationID: "c1"}
	st := flow.DefaultState(key, "char-1", nil, now)

	tests := []struct {
		intent    string
		wantPhase string
	}{
		{flow.IntentGreeting, "greeting"},
		{flow.IntentQuestion, "main"},
		{flow.IntentFarewell, "closing"},
	}

	for _, tt := range tests {
		st = store.Update(st, flow.ParsedInput{Intent: tt.intent, Confidence: 0.7})
		if st.InteractionDynamics.ConversationPhase != tt.wantPhase {
			t.Errorf("after %s: phase = %q, want %q",
				tt.intent, st.InteractionDynamics.ConversationPhase, tt.wantPhase)
		}
	}
}

func TestApplyChanges(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	key := flow.StateKey{UserID: 1, ConversationID: "c1"}
	st := flow.DefaultState(key, "char-1", nil, now)

	resonance := 1.4
	ApplyChanges(st, flow.StateChanges{
		ConversationPhase:  "clarification",
		ResponseUrgency:    "low",
		TopicFlow:          "weather",
		EmotionalResonance: &resonance,
	})

	if st.InteractionDynamics.ConversationPhase != "clarification" {
		t.Errorf("phase = %q, want clarification", st.InteractionDynamics.ConversationPhase)
	}
	if st.InteractionDynamics.ResponseUrgency != "low" {
		t.Errorf("urgency = %q, want low", st.InteractionDynamics.ResponseUrgency)
	}
	if n := len(st.InteractionDynamics.TopicFlow); n != 1 || st.InteractionDynamics.TopicFlow[0] != "weather" {
		t.Errorf("topic flow = %v, want [weather]", st.InteractionDynamics.TopicFlow)
	}
	if st.InteractionDynamics.EmotionalResonance != 1.0 {
		t.Errorf("resonance = %v, want clamped to 1.0", st.InteractionDynamics.EmotionalResonance)
	}
}
