package routes

import (
	"log/slog"

	_ "notify-client/docs"
	"notify-client/internal/api/handlers"
	"notify-client/internal/api/middleware"
	"notify-client/internal/config"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	engine            *gin.Engine
	connectionHandler *handlers.ConnectionHandler
	healthHandler     *handlers.HealthHandler
	rateLimitMW       *middleware.RateLimitMiddleware
}

// NewRouter builds the local control API. relay may be nil.
func NewRouter(
	manager handlers.Controller,
	relay handlers.RelayStats,
	cfg config.APIConfig,
	logger *slog.Logger,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.AllowedOrigins...))
	engine.Use(middleware.LogApi(logger))

	return &Router{
		engine:            engine,
		connectionHandler: handlers.NewConnectionHandler(manager),
		healthHandler:     handlers.NewHealthHandler(manager, relay),
		rateLimitMW:       middleware.NewRateLimitMiddleware(cfg.RatePerSecond, cfg.RateBurst),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", r.healthHandler.Health)
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")
	api.Use(r.rateLimitMW.RateLimitIP())
	{
		r.connectionHandler.RegisterRoutes(api)
		api.GET("/relay", r.healthHandler.RelayStatus)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
