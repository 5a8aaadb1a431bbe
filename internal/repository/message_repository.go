package repository

import (
	"context"

	"character-chat/backend/internal/models"

	"gorm.io/gorm"
)

// MessageRepository is the append-only Message Store
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByCharacter(ctx context.Context, characterID string) ([]models.Message, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// GetByCharacter returns the character's messages oldest first. The slice is never nil.
func (r *GormMessageRepository) GetByCharacter(ctx context.Context, characterID string) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.WithContext(ctx).
		Where("character_id = ?", characterID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
