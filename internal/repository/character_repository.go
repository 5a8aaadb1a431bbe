package repository

import (
	"context"
	"errors"

	"character-chat/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when Create meets an existing id
	ErrAlreadyExists = errors.New("record already exists")
)

// CharacterRepository is the Character Store
type CharacterRepository interface {
	GetByID(ctx context.Context, id string) (*models.Character, error)
	GetAll(ctx context.Context) ([]models.Character, error)
	Create(ctx context.Context, character *models.Character) error
	Upsert(ctx context.Context, character *models.Character) error
}

type GormCharacterRepository struct {
	db *gorm.DB
}

func NewGormCharacterRepository(db *gorm.DB) *GormCharacterRepository {
	return &GormCharacterRepository{db: db}
}

func (r *GormCharacterRepository) GetByID(ctx context.Context, id string) (*models.Character, error) {
	var character models.Character
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&character).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &character, nil
}

func (r *GormCharacterRepository) GetAll(ctx context.Context) ([]models.Character, error) {
	var characters []models.Character
	err := r.db.WithContext(ctx).Order("name ASC").Find(&characters).Error
	if characters == nil {
		characters = []models.Character{}
	}
	return characters, err
}

// Create inserts a new character; an existing id yields ErrAlreadyExists
func (r *GormCharacterRepository) Create(ctx context.Context, character *models.Character) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(character)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Upsert inserts the character or overwrites every column of the existing row with the same id
func (r *GormCharacterRepository) Upsert(ctx context.Context, character *models.Character) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "image", "base_prompt", "greeting_text", "updated_at",
		}),
	}).Create(character).Error
}
