package contract

import (
	"context"

	"ai-companion-be/internal/entity"
)

type UserPreferenceRepository interface {
	Upsert(ctx context.Context, pref *entity.UserPreference) error
	FindByUserID(ctx context.Context, userID int64) ([]*entity.UserPreference, error)
}
