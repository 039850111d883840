package contract

import (
	"context"
	"time"

	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	// UpdateLastMessage touches only the last_message fields.
	UpdateLastMessage(ctx context.Context, id uuid.UUID, messageID uuid.UUID, at time.Time) error
	UpdateCharacter(ctx context.Context, id uuid.UUID, characterID string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
}
