package model

import (
	"time"

	"github.com/google/uuid"
)

type AICharacter struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CharacterId   string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name          string    `gorm:"type:varchar(100);not null"`
	Nickname      string    `gorm:"type:varchar(100)"`
	Description   string    `gorm:"type:text"`
	Personality   string    `gorm:"type:text"`
	SpeakingStyle string    `gorm:"type:varchar(100)"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active'"`
	UsageCount    int       `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (AICharacter) TableName() string {
	return "ai_characters"
}
