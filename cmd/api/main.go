package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/movecrm-api/internal/application/service"
	"github.com/sangkips/movecrm-api/internal/config"
	"github.com/sangkips/movecrm-api/internal/infrastructure/cache"
	"github.com/sangkips/movecrm-api/internal/infrastructure/database"
	"github.com/sangkips/movecrm-api/internal/infrastructure/repository"
	"github.com/sangkips/movecrm-api/internal/presentation/http/dto/response"
	"github.com/sangkips/movecrm-api/internal/presentation/http/handler"
	"github.com/sangkips/movecrm-api/internal/presentation/http/middleware"
	"github.com/sangkips/movecrm-api/internal/presentation/http/routes"
	"github.com/sangkips/movecrm-api/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()
	production := cfg.App.IsProduction()

	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	response.SetProduction(production)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(&cfg.Database, production)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed default data
	if err := database.SeedDefaultData(db, cfg.Admin); err != nil {
		log.Printf("Warning: Failed to seed default data: %v", err)
	}

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.App.Name,
		cfg.JWT.ExpiryHours,
		cfg.JWT.RefreshExpiryHours,
	)

	// Report cache is optional
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Redis unavailable at %s, report caching disabled: %v", cfg.Redis.Addr, err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	reportCache := cache.NewReportCache(redisClient, cfg.Redis.ReportCacheTTL)
	var pipelineCache service.ReportCache
	if reportCache.Enabled() {
		pipelineCache = reportCache
		log.Printf("Report cache enabled (ttl %s)", cfg.Redis.ReportCacheTTL)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	historyRepo := repository.NewStageHistoryRepository(db)
	pipelineRepo := repository.NewPipelineRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	if purged, err := idempotencyRepo.DeleteExpired(ctx, time.Now()); err != nil {
		log.Printf("Warning: Failed to purge expired idempotency keys: %v", err)
	} else if purged > 0 {
		log.Printf("Purged %d expired idempotency keys", purged)
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager)
	userService := service.NewUserService(userRepo)
	clientService := service.NewClientService(clientRepo, reportCache)
	lifecycleService := service.NewLifecycleService(clientRepo, historyRepo, reportCache, cfg.Lifecycle.MaxRetries)
	pipelineService := service.NewPipelineService(pipelineRepo, historyRepo, pipelineCache, cfg.Lifecycle.LostReasonsTopN)

	handlers := &routes.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Client:    handler.NewClientHandler(clientService),
		Lifecycle: handler.NewLifecycleHandler(lifecycleService),
		Pipeline:  handler.NewPipelineHandler(pipelineService),
		User:      handler.NewUserHandler(userService),
	}

	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		RateLimiter:     middleware.NewRateLimiter(middleware.RateLimiterConfigFrom(cfg.RateLimit), ctx.Done()),
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting %s server on port %s...", cfg.App.Name, port)
		log.Printf("Environment: %s", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
