package model

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          int64      `gorm:"not null;index"`
	AiCharacterId   string     `gorm:"type:varchar(100)"`
	LastMessageId   *uuid.UUID `gorm:"type:uuid"`
	LastMessageTime *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (Conversation) TableName() string {
	return "conversations"
}
