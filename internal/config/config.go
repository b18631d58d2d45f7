// Package config provides configuration for the api, worker and scheduler binaries
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Server     ServerConfig
	Logging    LoggingConfig
	CORS       CORSConfig
	JWT        JWTConfig
	SMTP       SMTPConfig
	Course     CourseConfig
	TTS        TTSConfig
	Worker     WorkerConfig
	Scheduler  SchedulerConfig
	APIKey     string
	AdminEmail string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port of the Redis server
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port         int
	RateLimit    int
	MaxBodyBytes int64
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds access token settings. Tokens are issued by the account service.
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// SMTPConfig holds SMTP server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// CourseConfig locates the course flow, the personalization forms and the lesson content.
// Empty flow and forms paths use the definitions built into the binary.
type CourseConfig struct {
	ID                  string
	FlowPath            string
	FormsPath           string
	ContentPath         string
	PersonalizationMode string
}

// TTSConfig holds the text-to-speech engine and audio storage settings
type TTSConfig struct {
	CredentialsFile string
	LanguageCode    string
	VoiceName       string
	SpeakingRate    float64
	AudioBasePath   string
	AudioBaseURL    string
	Timeout         time.Duration
}

// WorkerConfig holds asynq worker settings
type WorkerConfig struct {
	Concurrency int
	MetricsPort int
}

// SchedulerConfig holds the approved job sweep settings
type SchedulerConfig struct {
	SweepCron  string
	SweepBatch int
	LockTTL    time.Duration
	// StaleAfter is how long a job may stay in processing before it is rendered again
	StaleAfter time.Duration
}

// Load reads configuration from environment variables, optionally from a .env file
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{}
	var err error

	// Database configuration
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	dbPort, err := requireEnv("DB_PORT")
	if err != nil {
		return nil, err
	}
	if cfg.Database.Port, err = strconv.Atoi(dbPort); err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	if cfg.Database.User, err = requireEnv("DB_USER"); err != nil {
		return nil, err
	}
	if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Database.DBName, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}

	// Server configuration
	if cfg.Server.Port, err = envInt("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Server.RateLimit, err = envInt("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}
	maxBody, err := envInt("MAX_REQUEST_BODY_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}
	cfg.Server.MaxBodyBytes = int64(maxBody)

	cfg.Logging.Level = envString("LOG_LEVEL", "info")
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// JWT configuration
	if cfg.JWT.Secret, err = requireEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.JWT.AccessTokenExpiry, err = envDuration("JWT_ACCESS_TOKEN_EXPIRY", time.Hour); err != nil {
		return nil, err
	}

	// API key for the TTS engine status callback
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AdminEmail = os.Getenv("ADMIN_EMAIL")

	// Redis configuration
	cfg.Redis.Host = envString("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = envInt("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// SMTP configuration
	cfg.SMTP.Host = envString("SMTP_HOST", "localhost")
	if cfg.SMTP.Port, err = envInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = envString("SMTP_FROM", "noreply@linguapath.app")

	// Course configuration
	cfg.Course.ID = envString("COURSE_ID", "en-es")
	cfg.Course.FlowPath = os.Getenv("COURSE_FLOW_PATH")
	cfg.Course.FormsPath = os.Getenv("COURSE_FORMS_PATH")
	cfg.Course.ContentPath = envString("COURSE_CONTENT_PATH", "content")
	cfg.Course.PersonalizationMode = envString("PERSONALIZATION_MODE", "auto")

	// TTS configuration
	cfg.TTS.CredentialsFile = os.Getenv("TTS_CREDENTIALS_FILE")
	cfg.TTS.LanguageCode = envString("TTS_LANGUAGE_CODE", "es-ES")
	cfg.TTS.VoiceName = os.Getenv("TTS_VOICE_NAME")
	if cfg.TTS.SpeakingRate, err = envFloat("TTS_SPEAKING_RATE", 0.9); err != nil {
		return nil, err
	}
	cfg.TTS.AudioBasePath = envString("AUDIO_BASE_PATH", "media")
	cfg.TTS.AudioBaseURL = envString("AUDIO_BASE_URL", "/media")
	if cfg.TTS.Timeout, err = envDuration("TTS_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}

	// Worker and scheduler configuration
	if cfg.Worker.Concurrency, err = envInt("WORKER_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.Worker.MetricsPort, err = envInt("WORKER_METRICS_PORT", 9091); err != nil {
		return nil, err
	}
	cfg.Scheduler.SweepCron = envString("SWEEP_CRON", "*/10 * * * *")
	if cfg.Scheduler.SweepBatch, err = envInt("SWEEP_BATCH", 200); err != nil {
		return nil, err
	}
	if cfg.Scheduler.LockTTL, err = envDuration("SWEEP_LOCK_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Scheduler.StaleAfter, err = envDuration("SWEEP_STALE_AFTER", 30*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return c.Database.DSN()
}

// DSN returns the MySQL connection string of the database
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
	)
}

func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseOrigins splits a comma separated origin list. An empty list allows every origin.
func parseOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
