package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownRole is returned for a stored role outside the user/model vocabulary
var ErrUnknownRole = errors.New("unknown message role")

// MessageRole is the stored speaker of a turn
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// ParseMessageRole validates a stored role string
func ParseMessageRole(s string) (MessageRole, error) {
	switch r := MessageRole(s); r {
	case RoleUser, RoleModel:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is one of the two stored roles
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Message is one persisted chat turn. Messages are append-only.
type Message struct {
	ID          string      `json:"id" gorm:"primaryKey;size:36"`
	CharacterID string      `json:"characterId" gorm:"size:64;not null;index"`
	Content     string      `json:"content" gorm:"type:text;not null"`
	Role        MessageRole `json:"role" gorm:"size:16;not null"`
	CreatedAt   time.Time   `json:"createdAt" gorm:"not null"`

	Character *Character `json:"-" gorm:"foreignKey:CharacterID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name
func (Message) TableName() string {
	return "messages"
}
