package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hibiken/asynq"
	"github.com/linguapath/backend/internal/config"
	"github.com/linguapath/backend/internal/logger"
	"github.com/linguapath/backend/internal/monitoring"
	"github.com/linguapath/backend/internal/repositories"
	"github.com/linguapath/backend/internal/services"
	"github.com/linguapath/backend/internal/tasks"
	"github.com/linguapath/backend/internal/tts"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting LinguaPath Worker")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Create text-to-speech client
	ctx := context.Background()
	synthesizer, err := tts.NewGoogleSynthesizer(ctx, cfg.TTS.CredentialsFile, tts.Voice{
		LanguageCode: cfg.TTS.LanguageCode,
		Name:         cfg.TTS.VoiceName,
		SpeakingRate: cfg.TTS.SpeakingRate,
	}, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to create text-to-speech client", zap.Error(err))
	}
	defer synthesizer.Close()

	// Initialize services
	ttsRequestRepo := repositories.NewTTSRequestRepository(db)
	// render tasks are consumed here, the worker never enqueues them
	ttsRequestService := services.NewTTSRequestService(ttsRequestRepo, nil, logger.Logger)

	// Create Asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues:      tasks.Queues(),
		},
	)

	// Create worker instance
	worker := NewWorker(
		logger.Logger,
		ttsRequestService,
		synthesizer,
		tts.NewLocalStorage(cfg.TTS.AudioBasePath, cfg.TTS.AudioBaseURL),
		newSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From),
		cfg.AdminEmail,
		cfg.TTS.Timeout,
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRenderAudio, worker.HandleRenderAudio)
	mux.HandleFunc(tasks.TypeReviewRequested, worker.HandleReviewRequested)

	// Expose worker metrics
	monitoring.Init()
	metricsSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:      monitoring.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// Start worker
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Logger.Fatal("Failed to start worker", zap.Error(err))
		}
	}()

	logger.Logger.Info("Worker started", zap.Int("concurrency", cfg.Worker.Concurrency))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down worker...")
	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsSrv.Shutdown(shutdownCtx)

	logger.Logger.Info("Worker exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
