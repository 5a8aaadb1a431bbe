package models

import (
	"time"
)

// Character is a configured persona. It is created out of band and is
// read-only from the chat flow's point of view.
type Character struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	Name         string    `json:"name" gorm:"not null"`
	Description  string    `json:"description"`
	Image        string    `json:"image"`
	BasePrompt   string    `json:"basePrompt" gorm:"type:text;not null"`
	GreetingText string    `json:"greetingText" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName overrides the table name
func (Character) TableName() string {
	return "characters"
}

// CreateCharacterRequest is the body accepted by POST /characters
type CreateCharacterRequest struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name" binding:"required"`
	Description  string `json:"description" yaml:"description"`
	Image        string `json:"image" yaml:"image"`
	BasePrompt   string `json:"basePrompt" yaml:"basePrompt" binding:"required"`
	GreetingText string `json:"greetingText" yaml:"greetingText" binding:"required"`
}
