package mapper

import (
	"time"

	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/model"
)

type CompanionMapper struct{}

func NewCompanionMapper() *CompanionMapper {
	return &CompanionMapper{}
}

// Message Mappers

func (m *CompanionMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}
	return &entity.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		SenderId:       msg.SenderId,
		ReceiverId:     msg.ReceiverId,
		Content:        msg.Content,
		MessageType:    msg.MessageType,
		IsAiMessage:    msg.IsAiMessage,
		AiCharacterId:  msg.AiCharacterId,
		CreatedAt:      msg.CreatedAt,
	}
}

func (m *CompanionMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}
	return &model.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		SenderId:       msg.SenderId,
		ReceiverId:     msg.ReceiverId,
		Content:        msg.Content,
		MessageType:    msg.MessageType,
		IsAiMessage:    msg.IsAiMessage,
		AiCharacterId:  msg.AiCharacterId,
		CreatedAt:      msg.CreatedAt,
	}
}

// Conversation Mappers

func (m *CompanionMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}
	return &entity.Conversation{
		Id:              c.Id,
		UserId:          c.UserId,
		AiCharacterId:   c.AiCharacterId,
		LastMessageId:   c.LastMessageId,
		LastMessageTime: c.LastMessageTime,
		CreatedAt:       c.CreatedAt,
	}
}

func (m *CompanionMapper) ConversationToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}
	return &model.Conversation{
		Id:              c.Id,
		UserId:          c.UserId,
		AiCharacterId:   c.AiCharacterId,
		LastMessageId:   c.LastMessageId,
		LastMessageTime: c.LastMessageTime,
		CreatedAt:       c.CreatedAt,
	}
}

// AICharacter Mappers

func (m *CompanionMapper) AICharacterToEntity(c *model.AICharacter) *entity.AICharacter {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.AICharacter{
		Id:            c.Id,
		CharacterId:   c.CharacterId,
		Name:          c.Name,
		Nickname:      c.Nickname,
		Description:   c.Description,
		Personality:   c.Personality,
		SpeakingStyle: c.SpeakingStyle,
		Status:        c.Status,
		UsageCount:    c.UsageCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *CompanionMapper) AICharacterToModel(c *entity.AICharacter) *model.AICharacter {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.AICharacter{
		Id:            c.Id,
		CharacterId:   c.CharacterId,
		Name:          c.Name,
		Nickname:      c.Nickname,
		Description:   c.Description,
		Personality:   c.Personality,
		SpeakingStyle: c.SpeakingStyle,
		Status:        c.Status,
		UsageCount:    c.UsageCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

// UserPreference Mappers

func (m *CompanionMapper) UserPreferenceToEntity(p *model.UserPreference) *entity.UserPreference {
	if p == nil {
		return nil
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		updatedAt = &t
	}

	return &entity.UserPreference{
		Id:        p.Id,
		UserId:    p.UserId,
		PrefKey:   p.PrefKey,
		PrefValue: p.PrefValue,
		CreatedAt: p.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *CompanionMapper) UserPreferenceToModel(p *entity.UserPreference) *model.UserPreference {
	if p == nil {
		return nil
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	return &model.UserPreference{
		Id:        p.Id,
		UserId:    p.UserId,
		PrefKey:   p.PrefKey,
		PrefValue: p.PrefValue,
		CreatedAt: p.CreatedAt,
		UpdatedAt: updatedAt,
	}
}
