// Package state owns the six-dimension conversation state: a read-through
// TTL cache over the durable character/user records, plus the pure
// per-message update rules.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ai-companion-be/pkg/cache"
	"ai-companion-be/pkg/flow"
)

// ProfileSource rebuilds state inputs from the persistence collaborator.
type ProfileSource interface {
	CharacterProfile(ctx context.Context, characterID string) (*flow.CharacterProfile, error)
	UserProfile(ctx context.Context, userID int64) (*flow.UserProfile, error)
	// ConversationCharacter resolves the character bound to a conversation,
	// or "" when the conversation is unknown.
	ConversationCharacter(ctx context.Context, conversationID string, userID int64) (string, error)
}

// TTLConfig carries the per-dimension-group cache lifetimes.
type TTLConfig struct {
	UserState         time.Duration
	CharacterState    time.Duration
	ConversationState time.Duration
	EnvironmentState  time.Duration
}

func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		UserState:         5 * time.Minute,
		CharacterState:    10 * time.Minute,
		ConversationState: 3 * time.Minute,
		EnvironmentState:  2 * time.Minute,
	}
}

// Store is the conversation state store. State is a derived cache entry:
// a miss rebuilds defaults from the character record and is never an error
// the pipeline surfaces.
type Store struct {
	cache  cache.Store
	source ProfileSource
	ttl    TTLConfig
	logger *log.Logger
	now    func() time.Time
}

func NewStore(c cache.Store, source ProfileSource, ttl TTLConfig, logger *log.Logger) *Store {
	return &Store{
		cache:  c,
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock fixes the store's clock. Tests use this for deterministic
// timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get returns the cached state for a key, rebuilding defaults when absent.
// characterID may be empty, in which case the conversation record is consulted.
// A rebuild failure synthesizes a default state; Get never fails the flow.
func (s *Store) Get(ctx context.Context, key flow.StateKey, characterID string) *flow.ConversationState {
	if data, ok := s.cache.Get(ctx, key.String()); ok {
		var st flow.ConversationState
		if err := json.Unmarshal(data, &st); err == nil {
			s.applyUserProfile(ctx, &st)
			return &st
		}
		s.cache.Delete(ctx, key.String())
	}

	if characterID == "" && s.source != nil {
		id, err := s.source.ConversationCharacter(ctx, key.ConversationID, key.UserID)
		if err != nil {
			s.logger.Printf("[STATE] resolve character for %s: %v", key, err)
		} else {
			characterID = id
		}
	}

	var character *flow.CharacterProfile
	if characterID != "" {
		character = s.Character(ctx, characterID)
	}

	st := flow.DefaultState(key, characterID, character, s.now())
	s.applyUserProfile(ctx, st)
	s.Commit(ctx, st)
	return st
}

// applyUserProfile folds the user's stored preference rows into the
// expression rules. Runs on every read, so once the profile snapshot is
// invalidated a preference update reaches the next generated reply.
func (s *Store) applyUserProfile(ctx context.Context, st *flow.ConversationState) {
	profile := s.User(ctx, st.UserID)
	if profile == nil {
		return
	}
	rules := &st.ExpressionRules
	for key, value := range profile.Preferences {
		if value == "" {
			continue
		}
		switch key {
		case "speaking_style":
			rules.SpeakingStyle = value
		case "language_level":
			rules.LanguageLevel = value
		case "humor_preference", "humor":
			rules.HumorPreference = value
		case "formality_level", "formality":
			rules.FormalityLevel = value
		case "cultural_context":
			rules.CulturalContext = value
		}
	}
}

// Commit writes a state snapshot back to the cache.
func (s *Store) Commit(ctx context.Context, st *flow.ConversationState) {
	data, err := json.Marshal(st)
	if err != nil {
		s.logger.Printf("[STATE] marshal %s: %v", st.Key(), err)
		return
	}
	s.cache.Set(ctx, st.Key().String(), data, s.ttl.ConversationState)
}

// Invalidate evicts a state entry, e.g. on session end or character switch.
func (s *Store) Invalidate(ctx context.Context, key flow.StateKey) {
	s.cache.Delete(ctx, key.String())
}

// Character returns the cached character profile, reading through to the
// durable record on a miss. Nil when the character cannot be resolved.
func (s *Store) Character(ctx context.Context, characterID string) *flow.CharacterProfile {
	cacheKey := "character_profile:" + characterID
	if data, ok := s.cache.Get(ctx, cacheKey); ok {
		var p flow.CharacterProfile
		if err := json.Unmarshal(data, &p); err == nil {
			return &p
		}
	}
	if s.source == nil {
		return nil
	}
	p, err := s.source.CharacterProfile(ctx, characterID)
	if err != nil || p == nil {
		if err != nil {
			s.logger.Printf("[STATE] load character %s: %v", characterID, err)
		}
		return nil
	}
	if data, err := json.Marshal(p); err == nil {
		s.cache.Set(ctx, cacheKey, data, s.ttl.CharacterState)
	}
	return p
}

// User returns the cached user profile, or nil when unavailable.
func (s *Store) User(ctx context.Context, userID int64) *flow.UserProfile {
	cacheKey := fmt.Sprintf("user_profile:%d", userID)
	if data, ok := s.cache.Get(ctx, cacheKey); ok {
		var p flow.UserProfile
		if err := json.Unmarshal(data, &p); err == nil {
			return &p
		}
	}
	if s.source == nil {
		return nil
	}
	p, err := s.source.UserProfile(ctx, userID)
	if err != nil || p == nil {
		if err != nil {
			s.logger.Printf("[STATE] load user %d: %v", userID, err)
		}
		return nil
	}
	if data, err := json.Marshal(p); err == nil {
		s.cache.Set(ctx, cacheKey, data, s.ttl.UserState)
	}
	return p
}

// InvalidateUser evicts a user profile snapshot (preference updates).
func (s *Store) InvalidateUser(ctx context.Context, userID int64) {
	s.cache.Delete(ctx, fmt.Sprintf("user_profile:%d", userID))
}
