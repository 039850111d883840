package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId          int64
	AiCharacterId   string
	LastMessageId   *uuid.UUID
	LastMessageTime *time.Time
	CreatedAt       time.Time
}
