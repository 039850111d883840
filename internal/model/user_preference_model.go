package model

import (
	"time"

	"github.com/google/uuid"
)

type UserPreference struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    int64     `gorm:"not null;index:idx_user_pref,unique"`
	PrefKey   string    `gorm:"type:varchar(100);not null;index:idx_user_pref,unique"`
	PrefValue string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}
