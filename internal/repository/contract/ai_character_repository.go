package contract

import (
	"context"

	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/repository/specification"
)

type AICharacterRepository interface {
	Create(ctx context.Context, character *entity.AICharacter) error
	IncrementUsage(ctx context.Context, characterID string) error
	FindByCharacterID(ctx context.Context, characterID string) (*entity.AICharacter, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AICharacter, error)
}
