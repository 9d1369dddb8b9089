package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	PublicURL string
	LogLevel  string
	Timezone  string
	Admin     AdminConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Upload    UploadConfig
	Import    ImportConfig
	Notify    NotifyConfig
	SLA       SLAConfig
	AI        AIConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// AdminConfig seeds the first account on an empty user table
type AdminConfig struct {
	Username string
	Password string
}

// StorageConfig selects the photo blob backend
type StorageConfig struct {
	Driver        string // "s3" or "disk"
	Region        string
	Bucket        string
	Endpoint      string // LocalStack / MinIO override
	PublicBaseURL string
	Dir           string
}

// UploadConfig bounds photo upload retries
type UploadConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

// ImportConfig configures spreadsheet imports
type ImportConfig struct {
	ChunkSize    int
	SynonymsPath string
	MaxFileBytes int64
}

// NotifyConfig holds notification sink settings
type NotifyConfig struct {
	AMQPURL  string
	Exchange string
}

// SLAConfig controls the overdue protocol checker
type SLAConfig struct {
	Interval  time.Duration
	Threshold time.Duration
}

// AIConfig holds Gemini settings for header hints
type AIConfig struct {
	GeminiKey string
	Model     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg, err := LoadTools()
	if err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadTools is Load for command line tools that issue no tokens.
func LoadTools() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3001"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		PublicURL: getEnv("PUBLIC_URL", "http://localhost:3001"),
		LogLevel:  os.Getenv("LOG_LEVEL"),
		Timezone:  getEnv("APP_TIMEZONE", "America/Sao_Paulo"),
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "protocolos"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "disk"),
			Region:        getEnv("AWS_REGION", "sa-east-1"),
			Bucket:        getEnv("STORAGE_BUCKET", "protocolos-fotos"),
			Endpoint:      os.Getenv("AWS_ENDPOINT_URL"),
			PublicBaseURL: os.Getenv("STORAGE_PUBLIC_URL"),
			Dir:           getEnv("STORAGE_DIR", "./data/fotos"),
		},
		Upload: UploadConfig{
			MaxAttempts:    getEnvAsInt("UPLOAD_MAX_ATTEMPTS", 3),
			BaseDelay:      getEnvAsDuration("UPLOAD_BASE_DELAY", time.Second),
			AttemptTimeout: getEnvAsDuration("UPLOAD_ATTEMPT_TIMEOUT", 30*time.Second),
		},
		Import: ImportConfig{
			ChunkSize:    getEnvAsInt("IMPORT_CHUNK_SIZE", 500),
			SynonymsPath: os.Getenv("IMPORT_SYNONYMS_FILE"),
			MaxFileBytes: int64(getEnvAsInt("IMPORT_MAX_FILE_MB", 20)) << 20,
		},
		Notify: NotifyConfig{
			AMQPURL:  os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "protocolos.events"),
		},
		SLA: SLAConfig{
			Interval:  getEnvAsDuration("SLA_CHECK_INTERVAL", 15*time.Minute),
			Threshold: getEnvAsDuration("SLA_THRESHOLD", 48*time.Hour),
		},
		AI: AIConfig{
			GeminiKey: os.Getenv("GEMINI_API_KEY"),
			Model:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
	}

	if cfg.Storage.Driver != "s3" && cfg.Storage.Driver != "disk" {
		return nil, fmt.Errorf("STORAGE_DRIVER must be s3 or disk, got %q", cfg.Storage.Driver)
	}
	return cfg, nil
}

// IsDevelopment reports whether NODE_ENV selects development mode
func (c *Config) IsDevelopment() bool {
	return c.NodeEnv == "development"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration only accepts positive durations; ticker intervals and
// timeouts of zero or less fall back to the default.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
