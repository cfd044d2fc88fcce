package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/placehub/placement-backend/internal/config"
	"github.com/placehub/placement-backend/internal/database"
	"github.com/placehub/placement-backend/internal/generator"
	"github.com/placehub/placement-backend/internal/handler"
	"github.com/placehub/placement-backend/internal/llm"
	"github.com/placehub/placement-backend/internal/logger"
	"github.com/placehub/placement-backend/internal/repository"
	"github.com/placehub/placement-backend/internal/router"
	"github.com/placehub/placement-backend/internal/service"
	"github.com/placehub/placement-backend/internal/validator"
	"github.com/placehub/placement-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Placement Assessment Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	templateRepo := repository.NewAssessmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	reportQueue := repository.NewRedisReportQueue(rdb)

	// ─── Initialize Question Generator ─────────────────────────────────
	// Without an API key the generator runs on the built-in bank only.
	var collab generator.Collaborator
	if cfg.GenAPIKey != "" {
		collab = llm.New(cfg.GenBaseURL, cfg.GenAPIKey, cfg.GenModel)
	} else {
		log.Warn().Msg("GEN_API_KEY not set, question generation uses the fallback bank")
	}
	gen := generator.New(collab, cfg.GenTimeout, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	assessmentService := service.NewAssessmentService(templateRepo, questionRepo, attemptRepo, gen, log)
	sessionService := service.NewSessionService(templateRepo, questionRepo, attemptRepo, reportQueue, log)

	payloadCache := service.NewPayloadCacheListener(questionRepo, rdb, log)
	assessmentService.Subscribe(payloadCache)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Assessment: handler.NewAssessmentHandler(assessmentService),
		Attempt:    handler.NewAttemptHandler(assessmentService, sessionService, payloadCache),
		WS:         handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	reportWorker := worker.NewReportWorker(pool, rdb, log)
	windowSweeper := worker.NewWindowSweeper(assessmentService, cfg.SweepPeriod, log)

	go reportWorker.Start(workerCtx)
	go windowSweeper.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all ACTIVE assessment payloads into Redis BEFORE accepting
	// traffic so the first students never hit a cold cache.
	if err := payloadCache.PrewarmAll(ctx, templateRepo); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Rehydrate In-Progress Attempts ───────────────────────────────
	// Attempts survive restarts; their countdowns resume from the wall
	// clock, and any that expired while down are auto-submitted.
	if err := sessionService.Rehydrate(ctx); err != nil {
		log.Error().Err(err).Msg("Attempt rehydration failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
