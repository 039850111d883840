package entity

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID `gorm:"type:uuid;index"`
	SenderId       int64
	ReceiverId     int64
	Content        string
	MessageType    string
	IsAiMessage    bool
	AiCharacterId  string
	CreatedAt      time.Time
}
