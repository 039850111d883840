package implementation

import (
	"context"
	"errors"

	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/mapper"
	"ai-companion-be/internal/model"
	"ai-companion-be/internal/repository/contract"
	"ai-companion-be/internal/repository/specification"

	"gorm.io/gorm"
)

type AICharacterRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CompanionMapper
}

func NewAICharacterRepository(db *gorm.DB) contract.AICharacterRepository {
	return &AICharacterRepositoryImpl{
		db:     db,
		mapper: mapper.NewCompanionMapper(),
	}
}

func (r *AICharacterRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AICharacterRepositoryImpl) Create(ctx context.Context, character *entity.AICharacter) error {
	m := r.mapper.AICharacterToModel(character)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*character = *r.mapper.AICharacterToEntity(m)
	return nil
}

func (r *AICharacterRepositoryImpl) IncrementUsage(ctx context.Context, characterID string) error {
	return r.db.WithContext(ctx).Model(&model.AICharacter{}).
		Where("character_id = ?", characterID).
		Update("usage_count", gorm.Expr("usage_count + 1")).Error
}

func (r *AICharacterRepositoryImpl) FindByCharacterID(ctx context.Context, characterID string) (*entity.AICharacter, error) {
	var m model.AICharacter
	if err := r.db.WithContext(ctx).Where("character_id = ?", characterID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.AICharacterToEntity(&m), nil
}

func (r *AICharacterRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AICharacter, error) {
	var models []*model.AICharacter
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.AICharacter, len(models))
	for i, m := range models {
		entities[i] = r.mapper.AICharacterToEntity(m)
	}
	return entities, nil
}
