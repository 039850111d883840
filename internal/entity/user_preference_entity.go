package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserPreference struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    int64     `gorm:"index"`
	PrefKey   string
	PrefValue string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
