package state

import (
	"context"
	"log"
	"testing"
	"time"

	"ai-companion-be/pkg/cache"
	"ai-companion-be/pkg/flow"
)

// countingSource records which profile lookups the store performs.
type countingSource struct {
	character     *flow.CharacterProfile
	user          *flow.UserProfile
	characterHits int
	userHits      int
}

func (s *countingSource) CharacterProfile(ctx context.Context, characterID string) (*flow.CharacterProfile, error) {
	s.characterHits++
	return s.character, nil
}

func (s *countingSource) UserProfile(ctx context.Context, userID int64) (*flow.UserProfile, error) {
	s.userHits++
	return s.user, nil
}

func (s *countingSource) ConversationCharacter(ctx context.Context, conversationID string, userID int64) (string, error) {
	return "", nil
}

func TestGetAppliesUserPreferences(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	source := &countingSource{
		user: &flow.UserProfile{
			UserID: 7,
			Preferences: map[string]string{
				"formality_level":  "formal",
				"humor_preference": "low",
				"speaking_style":   "concise",
				"unknown_key":      "ignored",
			},
		},
	}
	store := NewStore(cache.NewMemory(time.Minute, time.Minute), source, DefaultTTLConfig(), log.Default()).
		WithClock(fixedClock(now))

	st := store.Get(context.Background(), flow.StateKey{UserID: 7, ConversationID: "c1"}, "char-1")

	if source.userHits == 0 {
		t.Fatal("Get never consulted the user profile")
	}
	if got := st.ExpressionRules.FormalityLevel; got != "formal" {
		t.Errorf("FormalityLevel = %q, want formal", got)
	}
	if got := st.ExpressionRules.HumorPreference; got != "low" {
		t.Errorf("HumorPreference = %q, want low", got)
	}
	if got := st.ExpressionRules.SpeakingStyle; got != "concise" {
		t.Errorf("SpeakingStyle = %q, want concise", got)
	}
}

func TestGetAppliesUserPreferencesToCachedState(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	source := &countingSource{
		user: &flow.UserProfile{UserID: 7, Preferences: map[string]string{}},
	}
	store := NewStore(cache.NewMemory(time.Minute, time.Minute), source, DefaultTTLConfig(), log.Default()).
		WithClock(fixedClock(now))
	key := flow.StateKey{UserID: 7, ConversationID: "c1"}

	store.Get(context.Background(), key, "char-1")

	// A preference change lands between two reads of an already cached
	// conversation state.
	store.InvalidateUser(context.Background(), 7)
	source.user = &flow.UserProfile{
		UserID:      7,
		Preferences: map[string]string{"formality_level": "formal"},
	}

	st := store.Get(context.Background(), key, "char-1")
	if got := st.ExpressionRules.FormalityLevel; got != "formal" {
		t.Errorf("FormalityLevel after preference update = %q, want formal", got)
	}
}
