// Package transcript turns a character and its stored history into the
// ordered turn list sent to the completion provider.
package transcript

import (
	"errors"
	"fmt"

	"character-chat/backend/internal/models"
)

// ErrNoCharacter is returned when Assemble is called without a character
var ErrNoCharacter = errors.New("transcript: character is required")

// TurnRole is the provider-side speaker vocabulary
type TurnRole string

const (
	TurnSystem    TurnRole = "system"
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
)

// Turn is one entry of a provider transcript
type Turn struct {
	Role    TurnRole
	Content string
}

// RoleFor maps a stored role to the provider role
func RoleFor(role models.MessageRole) (TurnRole, error) {
	switch role {
	case models.RoleUser:
		return TurnUser, nil
	case models.RoleModel:
		return TurnAssistant, nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnknownRole, string(role))
	}
}

// Assemble builds system prompt, greeting, stored history in order, then the new input.
// The result always has len(history)+3 turns.
func Assemble(character *models.Character, history []models.Message, input string) ([]Turn, error) {
	if character == nil {
		return nil, ErrNoCharacter
	}

	turns := make([]Turn, 0, len(history)+3)
	turns = append(turns,
		Turn{Role: TurnSystem, Content: character.BasePrompt},
		Turn{Role: TurnAssistant, Content: character.GreetingText},
	)

	for i, msg := range history {
		role, err := RoleFor(msg.Role)
		if err != nil {
			return nil, fmt.Errorf("message %d (%s): %w", i, msg.ID, err)
		}
		turns = append(turns, Turn{Role: role, Content: msg.Content})
	}

	return append(turns, Turn{Role: TurnUser, Content: input}), nil
}
