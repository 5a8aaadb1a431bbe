package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"character-chat/backend/internal/models"
	"character-chat/backend/internal/repository"
	"character-chat/backend/pkg/logger"

	"github.com/google/uuid"
)

var (
	// ErrCharacterNotFound is returned when the requested character does not exist
	ErrCharacterNotFound = errors.New("character not found")
	// ErrInvalidCharacter is returned when a character definition is incomplete
	ErrInvalidCharacter = errors.New("invalid character")
	// ErrCharacterExists is returned when creating a character whose id is taken
	ErrCharacterExists = errors.New("character already exists")
)

// CharacterService is the character catalog
type CharacterService struct {
	characters repository.CharacterRepository
	log        *logger.Logger
}

func NewCharacterService(characters repository.CharacterRepository, log *logger.Logger) *CharacterService {
	return &CharacterService{
		characters: characters,
		log:        log,
	}
}

func (s *CharacterService) ListCharacters(ctx context.Context) ([]models.Character, error) {
	return s.characters.GetAll(ctx)
}

func (s *CharacterService) GetCharacter(ctx context.Context, id string) (*models.Character, error) {
	character, err := s.characters.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCharacterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get character %s: %w", id, err)
	}
	return character, nil
}

func (s *CharacterService) CreateCharacter(ctx context.Context, req *models.CreateCharacterRequest) (*models.Character, error) {
	character, err := newCharacter(req)
	if err != nil {
		return nil, err
	}

	err = s.characters.Create(ctx, character)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return nil, fmt.Errorf("%w: %s", ErrCharacterExists, character.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("create character: %w", err)
	}

	s.log.Info("Character created", "character_id", character.ID, "name", character.Name)
	return character, nil
}

func newCharacter(req *models.CreateCharacterRequest) (*models.Character, error) {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCharacter)
	case strings.TrimSpace(req.BasePrompt) == "":
		return nil, fmt.Errorf("%w: basePrompt is required", ErrInvalidCharacter)
	case strings.TrimSpace(req.GreetingText) == "":
		return nil, fmt.Errorf("%w: greetingText is required", ErrInvalidCharacter)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	return &models.Character{
		ID:           id,
		Name:         req.Name,
		Description:  req.Description,
		Image:        req.Image,
		BasePrompt:   req.BasePrompt,
		GreetingText: req.GreetingText,
	}, nil
}
