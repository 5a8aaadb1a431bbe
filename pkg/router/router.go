package router

import (
	"os"

	"character-chat/backend/internal/api"
	"character-chat/backend/internal/web"
	"character-chat/backend/pkg/config"
	"character-chat/backend/pkg/di"
	"character-chat/backend/pkg/errors"
	"character-chat/backend/pkg/logger"
	"character-chat/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	cfg := container.Config

	// Configure Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Request ID first so every log line and error carries it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r := &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}

	// Validation has to be installed before the routes it guards
	if cfg.OpenAPISchemaPath != "" {
		r.AddOpenAPIValidation(cfg.OpenAPISchemaPath)
	}

	return r
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	c := r.Container

	characterHandler := api.NewCharacterHandler(c.CharacterService)
	messageController := api.NewMessageController(c.ConversationService, c.CharacterService, c.Hub)
	healthHandler := api.NewHealthHandler(c.Health, os.Getenv("APP_VERSION"))

	// The JSON API lives at the root, the same paths the browser UI calls
	root := r.Engine.Group("")
	characterHandler.RegisterRoutes(root)
	messageController.RegisterRoutes(root)

	// Register both health endpoint paths for compatibility
	healthHandler.RegisterRoutes(r.Engine)
	healthHandler.RegisterRoutes(r.Engine.Group("/api"))

	if h := c.Observability.MetricsHandler(); h != nil {
		r.Engine.GET("/metrics", gin.WrapH(h))
	}

	web.Register(r.Engine)
}
