package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sangkips/movecrm-api/internal/config"
	domainRepo "github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/internal/infrastructure/database"
	"github.com/sangkips/movecrm-api/internal/presentation/http/handler"
	"github.com/sangkips/movecrm-api/internal/presentation/http/middleware"
	"github.com/sangkips/movecrm-api/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth      *handler.AuthHandler
	Client    *handler.ClientHandler
	Lifecycle *handler.LifecycleHandler
	Pipeline  *handler.PipelineHandler
	User      *handler.UserHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	// RateLimiter is built from Cfg.RateLimit when nil
	RateLimiter *middleware.RateLimiter
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfigFrom(deps.Cfg.RateLimit), nil)
	}

	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, h, rateLimiter)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		protected.Use(rateLimiter.Middleware())

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerAuthRoutes(v1 *gin.RouterGroup, h *Handlers, rateLimiter *middleware.RateLimiter) {
	auth := v1.Group("/auth")
	auth.Use(rateLimiter.Middleware())
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
	}
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	idempotency := middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo})

	protected.GET("/profile", h.Auth.GetProfile)

	clients := protected.Group("/clients")
	{
		manage := middleware.RequirePermission(database.PermissionManageClients)

		clients.GET("", manage, h.Client.List)
		clients.POST("", manage, idempotency, h.Client.Create)
		clients.GET("/:id", manage, h.Client.Get)
		clients.PUT("/:id", manage, idempotency, h.Client.Update)
		clients.DELETE("/:id", manage, idempotency, h.Client.Delete)
		clients.GET("/:id/timeline", manage, h.Lifecycle.Timeline)
		clients.POST("/:id/transitions",
			middleware.RequirePermission(database.PermissionTransitionClients),
			idempotency,
			h.Lifecycle.Transition,
		)
	}

	pipeline := protected.Group("/pipeline")
	{
		pipeline.GET("/stages", h.Pipeline.Stages)
		pipeline.GET("/conversion", middleware.RequirePermission(database.PermissionViewReports), h.Pipeline.Conversion)
	}

	protected.GET("/stage-history", middleware.RequirePermission(database.PermissionViewReports), h.Pipeline.History)

	users := protected.Group("/users")
	users.Use(middleware.RequirePermission(database.PermissionManageUsers))
	{
		users.GET("", h.User.List)
		users.POST("", idempotency, h.User.Create)
		users.GET("/:id", h.User.Get)
		users.PUT("/:id/roles", h.User.UpdateRoles)
		users.PUT("/:id/status", h.User.SetStatus)
	}
	protected.GET("/roles", middleware.RequirePermission(database.PermissionManageUsers), h.User.ListRoles)
}
