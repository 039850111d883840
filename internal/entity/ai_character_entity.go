package entity

import (
	"time"

	"github.com/google/uuid"
)

type AICharacter struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CharacterId   string    `gorm:"uniqueIndex"`
	Name          string
	Nickname      string
	Description   string
	Personality   string
	SpeakingStyle string
	Status        string
	UsageCount    int
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
