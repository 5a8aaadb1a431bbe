package repository

import (
	"fmt"

	"character-chat/backend/internal/models"

	"gorm.io/gorm"
)

const messageHistoryIndex = "idx_messages_character_created"

// Migrate creates the characters and messages tables and the history index
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Character{}, &models.Message{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	err := db.Exec(fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON messages (character_id, created_at)", messageHistoryIndex,
	)).Error
	if err != nil {
		return fmt.Errorf("create index %s: %w", messageHistoryIndex, err)
	}
	return nil
}
