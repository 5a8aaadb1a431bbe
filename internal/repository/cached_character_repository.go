package repository

import (
	"context"
	"encoding/json"
	"time"

	"character-chat/backend/internal/models"
	"character-chat/backend/pkg/cache"
	"character-chat/backend/pkg/logger"
)

// CachedCharacterRepository serves GetByID from a cache and falls through to the
// wrapped repository on a miss. Lookups of missing characters are not cached.
type CachedCharacterRepository struct {
	CharacterRepository
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedCharacterRepository(inner CharacterRepository, c cache.Cache, ttl time.Duration, log *logger.Logger) *CachedCharacterRepository {
	return &CachedCharacterRepository{CharacterRepository: inner, cache: c, ttl: ttl, log: log}
}

func characterKey(id string) string {
	return "character:" + id
}

func (r *CachedCharacterRepository) GetByID(ctx context.Context, id string) (*models.Character, error) {
	raw, ok, err := r.cache.Get(ctx, characterKey(id))
	if err != nil {
		r.log.Warn("Character cache read failed", "character_id", id, "error", err)
	}
	if ok {
		var character models.Character
		if err := json.Unmarshal(raw, &character); err == nil {
			return &character, nil
		}
		r.log.Warn("Dropping undecodable cache entry", "character_id", id)
	}

	character, err := r.CharacterRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(character); err == nil {
		if err := r.cache.Set(ctx, characterKey(id), raw, r.ttl); err != nil {
			r.log.Warn("Character cache write failed", "character_id", id, "error", err)
		}
	}
	return character, nil
}

func (r *CachedCharacterRepository) Create(ctx context.Context, character *models.Character) error {
	if err := r.CharacterRepository.Create(ctx, character); err != nil {
		return err
	}
	r.invalidate(ctx, character.ID)
	return nil
}

func (r *CachedCharacterRepository) Upsert(ctx context.Context, character *models.Character) error {
	if err := r.CharacterRepository.Upsert(ctx, character); err != nil {
		return err
	}
	r.invalidate(ctx, character.ID)
	return nil
}

func (r *CachedCharacterRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, characterKey(id)); err != nil {
		r.log.Warn("Character cache invalidation failed", "character_id", id, "error", err)
	}
}
