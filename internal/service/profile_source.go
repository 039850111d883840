package service

import (
	"context"

	"ai-companion-be/internal/repository/contract"
	"ai-companion-be/internal/repository/specification"
	"ai-companion-be/pkg/flow"

	"github.com/google/uuid"
)

// repoProfileSource feeds the state store from the gorm repositories. It is
// the persistence side of the state rebuild path.
type repoProfileSource struct {
	characters    contract.AICharacterRepository
	conversations contract.ConversationRepository
	preferences   contract.UserPreferenceRepository
}

func NewProfileSource(
	characters contract.AICharacterRepository,
	conversations contract.ConversationRepository,
	preferences contract.UserPreferenceRepository,
) *repoProfileSource {
	return &repoProfileSource{
		characters:    characters,
		conversations: conversations,
		preferences:   preferences,
	}
}

func (s *repoProfileSource) CharacterProfile(ctx context.Context, characterID string) (*flow.CharacterProfile, error) {
	c, err := s.characters.FindByCharacterID(ctx, characterID)
	if err != nil || c == nil {
		return nil, err
	}
	return &flow.CharacterProfile{
		CharacterID:   c.CharacterId,
		Name:          c.Name,
		Nickname:      c.Nickname,
		Description:   c.Description,
		Personality:   c.Personality,
		SpeakingStyle: c.SpeakingStyle,
		UsageCount:    c.UsageCount,
	}, nil
}

func (s *repoProfileSource) UserProfile(ctx context.Context, userID int64) (*flow.UserProfile, error) {
	prefs, err := s.preferences.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := &flow.UserProfile{
		UserID:      userID,
		Preferences: make(map[string]string, len(prefs)),
	}
	for _, p := range prefs {
		profile.Preferences[p.PrefKey] = p.PrefValue
	}
	return profile, nil
}

func (s *repoProfileSource) ConversationCharacter(ctx context.Context, conversationID string, userID int64) (string, error) {
	id, err := uuid.Parse(conversationID)
	if err != nil {
		return "", nil
	}
	conv, err := s.conversations.FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userID},
	)
	if err != nil || conv == nil {
		return "", err
	}
	return conv.AiCharacterId, nil
}
