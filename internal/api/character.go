package api

import (
	"context"
	"errors"
	"net/http"

	"character-chat/backend/internal/models"
	"character-chat/backend/internal/service"
	apperrors "character-chat/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// CharacterCatalog is what the character endpoints need from the service layer
type CharacterCatalog interface {
	ListCharacters(ctx context.Context) ([]models.Character, error)
	GetCharacter(ctx context.Context, id string) (*models.Character, error)
	CreateCharacter(ctx context.Context, req *models.CreateCharacterRequest) (*models.Character, error)
}

type CharacterHandler struct {
	catalog CharacterCatalog
}

func NewCharacterHandler(catalog CharacterCatalog) *CharacterHandler {
	return &CharacterHandler{catalog: catalog}
}

// RegisterRoutes registers the character catalog routes
func (h *CharacterHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/characters", h.ListCharacters)
	rg.POST("/characters", h.CreateCharacter)
	rg.GET("/characters/:id", h.GetCharacter)
}

func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	characters, err := h.catalog.ListCharacters(c.Request.Context())
	if err != nil {
		c.Error(apperrors.NewInternalServerError("CHARACTERS_UNAVAILABLE", err.Error()).WithCause(err))
		return
	}
	c.JSON(http.StatusOK, characters)
}

func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	character, err := h.catalog.GetCharacter(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(conversationError(err))
		return
	}
	c.JSON(http.StatusOK, character)
}

func (h *CharacterHandler) CreateCharacter(c *gin.Context) {
	var req models.CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_BODY", "name, basePrompt and greetingText are required"))
		return
	}

	character, err := h.catalog.CreateCharacter(c.Request.Context(), &req)
	if errors.Is(err, service.ErrInvalidCharacter) {
		c.Error(apperrors.NewBadRequestError("INVALID_CHARACTER", err.Error()))
		return
	}
	if errors.Is(err, service.ErrCharacterExists) {
		c.Error(apperrors.NewConflictError("CHARACTER_EXISTS", "Character already exists!"))
		return
	}
	if err != nil {
		c.Error(apperrors.NewInternalServerError("CHARACTER_NOT_CREATED", err.Error()).WithCause(err))
		return
	}

	c.JSON(http.StatusCreated, character)
}
