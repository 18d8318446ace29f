package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepsala/examhall-backend/internal/config"
	"github.com/prepsala/examhall-backend/internal/database"
	"github.com/prepsala/examhall-backend/internal/handler"
	"github.com/prepsala/examhall-backend/internal/logger"
	"github.com/prepsala/examhall-backend/internal/questionbank"
	"github.com/prepsala/examhall-backend/internal/repository"
	"github.com/prepsala/examhall-backend/internal/router"
	"github.com/prepsala/examhall-backend/internal/service"
	"github.com/prepsala/examhall-backend/internal/validator"
	"github.com/prepsala/examhall-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("workbook", cfg.WorkbookPath).
		Msg("Starting ExamHall Backend")

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

	// ─── Question Bank ─────────────────────────────────────────────────
	book := questionbank.NewWorkbook(cfg.WorkbookPath, log)
	if schema := book.LoadSchema(); len(schema.Sections) == 0 {
		log.Warn().Str("path", cfg.WorkbookPath).Msg("Question workbook is empty or unreadable")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	attemptRepo := repository.NewAttemptRepository(pool, log)

	// ─── Initialize Services ──────────────────────────────────────────
	bankService := service.NewBankService(book, rdb, cfg.AnswerKeyTTL, log)
	attemptService := service.NewAttemptService(attemptRepo, bankService, rdb, log)
	dashboardService := service.NewDashboardService(attemptRepo, bankService, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Registration: handler.NewRegistrationHandler(attemptService),
		Exam:         handler.NewExamHandler(bankService, attemptService),
		Dashboard:    handler.NewDashboardHandler(dashboardService, bankService),
		WS:           handler.NewWSHandler(rdb, dashboardService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	statsWorker := worker.NewStatsWorker(attemptRepo, bankService, rdb, log)
	go statsWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load the answer key into Redis BEFORE accepting traffic, so the first
	// submissions do not all pay the workbook read.
	bankService.RefreshAnswerKey(ctx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

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

	// 2. Stop the stats worker and let it flush.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow the worker to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
