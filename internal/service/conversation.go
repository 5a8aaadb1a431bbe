package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"character-chat/backend/internal/ai"
	"character-chat/backend/internal/models"
	"character-chat/backend/internal/repository"
	"character-chat/backend/internal/transcript"
	"character-chat/backend/pkg/logger"

	"github.com/google/uuid"
)

// Publisher receives every persisted message
type Publisher interface {
	Publish(msg models.Message)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.Message) {}

// ConversationService lists a character's history and runs one chat exchange.
// Nothing is written unless the completion call succeeds.
type ConversationService struct {
	characters repository.CharacterRepository
	messages   repository.MessageRepository
	completer  ai.Completer
	publisher  Publisher
	log        *logger.Logger
	now        func() time.Time
}

func NewConversationService(
	characters repository.CharacterRepository,
	messages repository.MessageRepository,
	completer ai.Completer,
	publisher Publisher,
	log *logger.Logger,
) *ConversationService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &ConversationService{
		characters: characters,
		messages:   messages,
		completer:  completer,
		publisher:  publisher,
		log:        log,
		now:        time.Now,
	}
}

// ListMessages returns the stored turns for characterID, oldest first.
// An unknown character simply has no messages.
func (s *ConversationService) ListMessages(ctx context.Context, characterID string) ([]models.Message, error) {
	messages, err := s.messages.GetByCharacter(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// PostMessage sends content to the character and returns its reply verbatim
func (s *ConversationService) PostMessage(ctx context.Context, characterID, content string) (string, error) {
	log := s.log.WithCharacterID(characterID)

	character, err := s.characters.GetByID(ctx, characterID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrCharacterNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load character: %w", err)
	}

	history, err := s.messages.GetByCharacter(ctx, characterID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	turns, err := transcript.Assemble(character, history, content)
	if err != nil {
		return "", fmt.Errorf("assemble transcript: %w", err)
	}

	reply, err := s.completer.Complete(ctx, turns)
	if err != nil {
		return "", err
	}

	userMsg, modelMsg, err := s.newExchange(characterID, content, reply)
	if err != nil {
		return "", err
	}

	// The two inserts are not atomic. A failed second insert leaves the
	// user turn without a reply.
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return "", fmt.Errorf("persist user message: %w", err)
	}
	s.publisher.Publish(*userMsg)

	if err := s.messages.Create(ctx, modelMsg); err != nil {
		log.LogError(err, "Model reply lost after user message was stored",
			"user_message_id", userMsg.ID,
		)
		return "", fmt.Errorf("persist model message: %w", err)
	}
	s.publisher.Publish(*modelMsg)

	log.Info("Conversation turn stored",
		"user_message_id", userMsg.ID,
		"model_message_id", modelMsg.ID,
		"history_length", len(history),
	)
	return reply, nil
}

// newExchange stamps the model turn strictly after the user turn at the
// microsecond precision the database keeps.
func (s *ConversationService) newExchange(characterID, content, reply string) (*models.Message, *models.Message, error) {
	userID, err := uuid.NewV7()
	if err != nil {
		return nil, nil, fmt.Errorf("generate message id: %w", err)
	}
	modelID, err := uuid.NewV7()
	if err != nil {
		return nil, nil, fmt.Errorf("generate message id: %w", err)
	}

	userAt := s.now().UTC().Truncate(time.Microsecond)
	modelAt := s.now().UTC().Truncate(time.Microsecond)
	if !modelAt.After(userAt) {
		modelAt = userAt.Add(time.Microsecond)
	}

	return &models.Message{
			ID:          userID.String(),
			CharacterID: characterID,
			Content:     content,
			Role:        models.RoleUser,
			CreatedAt:   userAt,
		}, &models.Message{
			ID:          modelID.String(),
			CharacterID: characterID,
			Content:     reply,
			Role:        models.RoleModel,
			CreatedAt:   modelAt,
		}, nil
}
