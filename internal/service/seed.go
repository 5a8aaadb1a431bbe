package service

import (
	"context"
	"fmt"
	"os"

	"character-chat/backend/internal/models"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Characters []models.CreateCharacterRequest `yaml:"characters"`
}

// SeedCharacters upserts every character defined in the YAML file at path.
// Seeded characters must carry an explicit id so reseeding is idempotent.
func (s *CharacterService) SeedCharacters(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	for i := range seed.Characters {
		req := &seed.Characters[i]
		if req.ID == "" {
			return 0, fmt.Errorf("%w: seed entry %d has no id", ErrInvalidCharacter, i)
		}

		character, err := newCharacter(req)
		if err != nil {
			return 0, fmt.Errorf("seed entry %q: %w", req.ID, err)
		}
		if err := s.characters.Upsert(ctx, character); err != nil {
			return 0, fmt.Errorf("seed character %q: %w", req.ID, err)
		}
	}

	s.log.Info("Characters seeded", "path", path, "count", len(seed.Characters))
	return len(seed.Characters), nil
}
