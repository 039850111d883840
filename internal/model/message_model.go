package model

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderId       int64     `gorm:"not null;index"`
	ReceiverId     int64     `gorm:"not null"`
	Content        string    `gorm:"type:text;not null"`
	MessageType    string    `gorm:"type:varchar(50);not null;default:'text'"`
	IsAiMessage    bool      `gorm:"not null;default:false"`
	AiCharacterId  string    `gorm:"type:varchar(100)"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index"`
}

func (Message) TableName() string {
	return "messages"
}
