// Package chatui holds the terminal chat client: the conversation state a
// front end renders and the HTTP client that talks to the server.
package chatui

import (
	"errors"
	"strings"
	"sync"
	"time"

	"character-chat/backend/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrBlankInput is returned by Begin for empty or whitespace-only input
	ErrBlankInput = errors.New("message is empty")
	// ErrSendInProgress is returned by Begin while a previous send is outstanding
	ErrSendInProgress = errors.New("a message is already being sent")
)

const greetingID = "greeting"

// State is the client-side view of one conversation. Turns added by Begin and
// Complete are fabricated locally and are never rolled back.
type State struct {
	mu        sync.RWMutex
	character models.Character
	turns     []models.Message
	pending   bool
	now       func() time.Time
}

// NewState starts from the character's greeting followed by the stored history
func NewState(character models.Character, history []models.Message) *State {
	turns := make([]models.Message, 0, len(history)+1)
	turns = append(turns, models.Message{
		ID:          greetingID,
		CharacterID: character.ID,
		Content:     character.GreetingText,
		Role:        models.RoleModel,
		CreatedAt:   character.CreatedAt,
	})
	turns = append(turns, history...)

	return &State{character: character, turns: turns, now: time.Now}
}

// Character returns the character being chatted with
func (s *State) Character() models.Character {
	return s.character
}

// Turns returns a copy of the rendered turns, greeting first
func (s *State) Turns() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.turns...)
}

// Pending reports whether a send is outstanding
func (s *State) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// Begin appends the user's turn optimistically and marks a send as pending
func (s *State) Begin(input string) (models.Message, error) {
	if strings.TrimSpace(input) == "" {
		return models.Message{}, ErrBlankInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		return models.Message{}, ErrSendInProgress
	}
	s.pending = true

	msg := s.newTurn(models.RoleUser, input)
	s.turns = append(s.turns, msg)
	return msg, nil
}

// Complete appends the reply and clears the pending flag
func (s *State) Complete(reply string) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = false
	msg := s.newTurn(models.RoleModel, reply)
	s.turns = append(s.turns, msg)
	return msg
}

// Fail clears the pending flag. The optimistic user turn stays.
func (s *State) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
}

func (s *State) newTurn(role models.MessageRole, content string) models.Message {
	return models.Message{
		ID:          uuid.NewString(),
		CharacterID: s.character.ID,
		Content:     content,
		Role:        role,
		CreatedAt:   s.now(),
	}
}
