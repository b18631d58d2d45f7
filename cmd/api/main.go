package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	_ "github.com/linguapath/backend/docs"
	"github.com/linguapath/backend/internal/auth"
	"github.com/linguapath/backend/internal/config"
	"github.com/linguapath/backend/internal/content"
	"github.com/linguapath/backend/internal/courseflow"
	"github.com/linguapath/backend/internal/handlers"
	"github.com/linguapath/backend/internal/logger"
	"github.com/linguapath/backend/internal/middlewares"
	"github.com/linguapath/backend/internal/monitoring"
	"github.com/linguapath/backend/internal/personalize"
	"github.com/linguapath/backend/internal/progression"
	"github.com/linguapath/backend/internal/repositories"
	"github.com/linguapath/backend/internal/services"
	"github.com/linguapath/backend/internal/tasks"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title LinguaPath Course API
// @version 1.0
// @description API for personalized course progression, lesson content and audio review
// @termsOfService http://swagger.io/terms/

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
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

	logger.Logger.Info("Starting LinguaPath API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Create Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()
	queue := tasks.NewQueue(asynqClient)

	// Load course flow and forms
	engine := progression.NewEngine(loadCourse(cfg.Course, logger.Logger))
	if engine.Degraded() {
		logger.Logger.Warn("Course flow unavailable, progression falls back to lesson order")
	}
	catalog := content.NewFileCatalog(cfg.Course.ContentPath)

	// Initialize repositories
	progressRepo := repositories.NewUserProgressRepository(db)
	profileRepo := repositories.NewUserProfileRepository(db)
	ttsRequestRepo := repositories.NewTTSRequestRepository(db)

	// Initialize services
	progressService := services.NewProgressService(engine, progressRepo, profileRepo, ttsRequestRepo, catalog, cfg.Course.ID, logger.Logger)
	personalizationService := services.NewPersonalizationService(engine, progressService, profileRepo, ttsRequestRepo, catalog, queue, logger.Logger)
	ttsRequestService := services.NewTTSRequestService(ttsRequestRepo, queue, logger.Logger)

	// Initialize handlers
	progressHandler := handlers.NewProgressHandler(progressService, personalize.ParseMode(cfg.Course.PersonalizationMode), logger.Logger)
	personalizationHandler := handlers.NewPersonalizationHandler(personalizationService, logger.Logger)
	ttsRequestHandler := handlers.NewTTSRequestHandler(ttsRequestService, logger.Logger)

	// Initialize auth middleware
	tokenGenerator := auth.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	authMiddleware := auth.AuthMiddleware(tokenGenerator)
	optionalAuthMiddleware := auth.OptionalAuthMiddleware(tokenGenerator)
	adminMiddleware := auth.RoleMiddleware(tokenGenerator, auth.RoleAdmin)
	apiKeyMiddleware := auth.APIKeyMiddleware(cfg.APIKey)

	monitoring.Init()

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middlewares.RequestIDMiddleware)
	r.Use(middlewares.LoggerMiddleware(logger.Logger))
	r.Use(middlewares.RecoveryMiddleware(logger.Logger))
	r.Use(monitoring.MetricsMiddleware)
	r.Use(middlewares.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(cfg.Server.RateLimit, time.Minute))
	r.Use(middlewares.RequestSizeLimitMiddleware(cfg.Server.MaxBodyBytes))

	r.Handle("/metrics", monitoring.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	r.Route("/api/v1", func(r chi.Router) {
		progressHandler.RegisterRoutes(r, authMiddleware, optionalAuthMiddleware)
		personalizationHandler.RegisterRoutes(r, authMiddleware, optionalAuthMiddleware)
		ttsRequestHandler.RegisterAdminRoutes(r, adminMiddleware)
		ttsRequestHandler.RegisterCallbackRoutes(r, apiKeyMiddleware)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// loadCourse reads the course flow and forms from the configured files or the built-in
// definitions. A flow that cannot be loaded is reported and replaced by nil.
func loadCourse(cfg config.CourseConfig, log *zap.Logger) (*courseflow.Flow, courseflow.Forms) {
	forms, err := courseflow.DefaultForms()
	if cfg.FormsPath != "" {
		forms, err = courseflow.LoadForms(cfg.FormsPath)
	}
	if err != nil {
		logConfigError(log, "personalization forms", err)
		forms = nil
	}

	flow, err := courseflow.Default()
	if cfg.FlowPath != "" {
		flow, err = courseflow.Load(cfg.FlowPath)
	}
	if err != nil {
		logConfigError(log, "course flow", err)
		return nil, forms
	}

	if err := courseflow.Validate(flow, forms); err != nil {
		logConfigError(log, "course flow", err)
		return nil, forms
	}
	return flow, forms
}

func logConfigError(log *zap.Logger, what string, err error) {
	var loadErr *courseflow.ConfigLoadError
	if errors.As(err, &loadErr) {
		log.Error("Failed to load "+what, zap.String("path", loadErr.Path), zap.Error(loadErr.Err))
		return
	}
	log.Error("Invalid "+what, zap.Error(err))
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

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "linguapath_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// running from cmd/api
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
