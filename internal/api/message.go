package api

import (
	"context"
	"errors"
	"net/http"

	"character-chat/backend/internal/ai"
	"character-chat/backend/internal/models"
	"character-chat/backend/internal/service"
	apperrors "character-chat/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ConversationService is what the message endpoints need from the service layer
type ConversationService interface {
	ListMessages(ctx context.Context, characterID string) ([]models.Message, error)
	PostMessage(ctx context.Context, characterID, content string) (string, error)
}

// Feed subscribes a websocket connection to a character's persisted turns
type Feed interface {
	Serve(c *gin.Context, characterID string)
}

// PostMessageRequest is the body of POST /characters/:id/messages.
// Content is required but may be empty.
type PostMessageRequest struct {
	Content *string `json:"content" binding:"required"`
}

// PostMessageResponse carries the character's reply
type PostMessageResponse struct {
	Message string `json:"message"`
}

// MessageController handles the conversation endpoints
type MessageController struct {
	conversations ConversationService
	characters    CharacterCatalog
	feed          Feed
}

// NewMessageController creates a new message controller
func NewMessageController(conversations ConversationService, characters CharacterCatalog, feed Feed) *MessageController {
	return &MessageController{
		conversations: conversations,
		characters:    characters,
		feed:          feed,
	}
}

// RegisterRoutes registers the routes for the message controller
func (mc *MessageController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/characters/:id/messages", mc.ListMessages)
	rg.POST("/characters/:id/messages", mc.PostMessage)
	if mc.feed != nil {
		rg.GET("/characters/:id/messages/ws", mc.Watch)
	}
}

// ListMessages returns every stored turn for the character, oldest first
func (mc *MessageController) ListMessages(c *gin.Context) {
	messages, err := mc.conversations.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewInternalServerError("MESSAGES_UNAVAILABLE", err.Error()).WithCause(err))
		return
	}

	c.JSON(http.StatusOK, messages)
}

// PostMessage runs one exchange and returns the reply
func (mc *MessageController) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_BODY", "content is required"))
		return
	}

	reply, err := mc.conversations.PostMessage(c.Request.Context(), c.Param("id"), *req.Content)
	if err != nil {
		c.Error(conversationError(err))
		return
	}

	c.JSON(http.StatusOK, PostMessageResponse{Message: reply})
}

// Watch upgrades to a websocket that receives the character's new turns
func (mc *MessageController) Watch(c *gin.Context) {
	id := c.Param("id")
	if _, err := mc.characters.GetCharacter(c.Request.Context(), id); err != nil {
		c.Error(conversationError(err))
		return
	}

	mc.feed.Serve(c, id)
}

func conversationError(err error) *apperrors.AppError {
	var upstream *ai.UpstreamError
	switch {
	case errors.Is(err, service.ErrCharacterNotFound):
		return characterNotFound()
	case errors.As(err, &upstream):
		return apperrors.NewInternalServerError("COMPLETION_FAILED", upstream.Error()).WithCause(err)
	default:
		return apperrors.NewInternalServerError("INTERNAL_ERROR", err.Error()).WithCause(err)
	}
}

func characterNotFound() *apperrors.AppError {
	return apperrors.NewNotFoundError("CHARACTER_NOT_FOUND", "Character not found!")
}
