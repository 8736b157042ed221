package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/config"
	"github.com/stemsi/qiyas-mock/internal/database"
	"github.com/stemsi/qiyas-mock/internal/engine"
	"github.com/stemsi/qiyas-mock/internal/handler"
	"github.com/stemsi/qiyas-mock/internal/logger"
	"github.com/stemsi/qiyas-mock/internal/repository"
	"github.com/stemsi/qiyas-mock/internal/router"
	"github.com/stemsi/qiyas-mock/internal/service"
	"github.com/stemsi/qiyas-mock/internal/validator"
	"github.com/stemsi/qiyas-mock/internal/worker"
)

const sweepInterval = time.Minute

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Qiyas mock exam server")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Load Exam Catalog ─────────────────────────────────────────────
	templates, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("Failed to load exam catalog")
	}
	log.Info().Int("templates", len(templates)).Msg("Exam catalog loaded")

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
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	archiveRepo := repository.NewAttemptArchiveRepository(pool)
	historyStore := repository.NewAttemptHistoryStore(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, userRepo)
	userService := service.NewUserService(userRepo, rdb, log)
	catalogService := service.NewCatalogService(templates, userService)
	questionService := service.NewQuestionService(questionRepo)
	sessionService := service.NewExamSessionService(
		cfg,
		catalogService,
		userService,
		questionRepo,
		engine.NewRecorder(historyStore, log),
		worker.NewArchiveQueue(rdb),
		engine.NewRealTicker,
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, userService),
		Exam:     handler.NewExamHandler(catalogService),
		Session:  handler.NewSessionHandler(sessionService),
		History:  handler.NewHistoryHandler(sessionService),
		Question: handler.NewQuestionHandler(questionService),
		WS:       handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		System:   handler.NewSystemHandler(pool, rdb, sessionService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	archiveWorker := worker.NewAttemptArchiveWorker(archiveRepo, rdb, log)
	workers.Add(2)
	go func() {
		defer workers.Done()
		archiveWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		sessionService.StartSweeper(workerCtx, sweepInterval)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 2. Close live sessions; unfinished attempts are not recorded.
	log.Info().Int("sessions", sessionService.LiveSessions()).Msg("Closing live exam sessions")
	sessionService.Shutdown()

	// 3. Stop background workers and wait for the archive queue flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
