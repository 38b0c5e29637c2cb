package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tenxcards-backend/internal/config"
	"tenxcards-backend/internal/database"
	"tenxcards-backend/internal/handlers"
	"tenxcards-backend/internal/logger"
	"tenxcards-backend/internal/middleware"
	"tenxcards-backend/internal/repository"
	"tenxcards-backend/internal/router"
	"tenxcards-backend/internal/services"
	"tenxcards-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting 10xCards backend", zap.String("env", cfg.Env))

	if err := cfg.Generator.Validate(); err != nil {
		log.Fatal("invalid generator configuration", zap.Error(err))
	}

	ctx := context.Background()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("PostgreSQL connection failed", zap.Error(err))
	}
	defer pool.Close()
	log.Info("PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisClients.Close()
	log.Info("Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}
	log.Info("database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	flashcardRepo := repository.NewFlashcardRepo(pool)
	generationRepo := repository.NewGenerationRepo(pool)

	// ──── Step 5: Initialize Text Generation Backend ────
	backend, err := services.NewTextGenerator(ctx, cfg.Generator, log)
	if err != nil {
		log.Fatal("text generator initialization failed", zap.Error(err))
	}
	if c, ok := backend.(io.Closer); ok {
		defer c.Close()
	}
	log.Info("text generator ready",
		zap.String("provider", cfg.Generator.Provider),
		zap.String("model", backend.Model()))

	// ──── Initialize Services ────
	publisher := websocket.NewRedisPublisher(redisClients.Publish, log)
	generator, err := services.NewProposalGenerator(backend, cfg.Generator, log)
	if err != nil {
		log.Fatal("proposal generator initialization failed", zap.Error(err))
	}
	tracker := services.NewTracker(generationRepo, generator.Model(), log)
	generationService := services.NewGenerationService(tracker, generator, generationRepo, publisher, log)
	reconciler := services.NewReconciler(generationRepo, publisher, log)
	flashcardService := services.NewFlashcardService(flashcardRepo)

	// ──── Initialize Handlers ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	userSync := middleware.NewUserSync(userRepo, log)
	generationLimiter := middleware.NewRateLimiter(
		middleware.NewRedisCounter(redisClients.Publish),
		"generate",
		cfg.GenerationRateLimit,
		cfg.GenerationRateWindow,
		log,
	)
	generationHandler := handlers.NewGenerationHandler(generationService, reconciler)
	flashcardHandler := handlers.NewFlashcardHandler(flashcardService)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.Subscribe, jwtAuth, log)
	defer wsHub.Close()

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		log,
		jwtAuth,
		userSync,
		generationLimiter,
		generationHandler,
		flashcardHandler,
		wsHub.HandleWebSocket,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Generator.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	idleClosed := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
		close(idleClosed)
	}()

	log.Info("10xCards backend ready",
		zap.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
		zap.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
	<-idleClosed
}
