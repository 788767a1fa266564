package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// lockBudgetSegments is the batch size the derived idempotency lock covers.
const lockBudgetSegments = 200

type Config struct {
	Port     string
	GinMode  string
	AppEnv   string
	LogLevel string

	DBDriver   string // postgres, mysql, sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string // sqlite file

	RedisAddr      string // empty disables idempotency replay
	RedisDB        int
	IdempotencyTTL time.Duration
	// IdempotencyLockTTL bounds how long an unfinished request holds its key.
	IdempotencyLockTTL time.Duration

	BlobBackend string // local, gcs
	BlobDir     string
	GCSBucket   string

	TranslatorProvider   string // vertex, openai, none
	GCPProjectID         string
	VertexRegion         string
	VertexModel          string
	OpenAIAPIKey         string
	OpenAIModel          string
	TranslateTimeout     time.Duration
	TranslateConcurrency int
	GenerativePairs      string // "vi>en,en>vi"
	TemplatePairs        string

	DefaultSourceLang    string
	DefaultRequiredLangs string

	PublicBaseURL string
	JWTSecret     string
	CORSOrigins   []string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("config: ignoring invalid %s=%q", k, v)
	}
	return d
}

// Load reads configs/.env when present, then the process environment.
func Load() *Config {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	c := &Config{
		Port:     getenv("PORT", "8080"),
		GinMode:  getenv("GIN_MODE", "debug"),
		AppEnv:   getenv("APP_ENV", "development"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		DBDriver:   getenv("DB_DRIVER", "postgres"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", "postgres"),
		DBName:     getenv("DB_NAME", "postgres"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),
		DBPath:     getenv("DB_PATH", "data/legaldocs.db"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisDB:        getenvInt("REDIS_DB", 0),
		IdempotencyTTL: time.Duration(getenvInt("IDEMPOTENCY_TTL_SECONDS", 300)) * time.Second,

		BlobBackend: getenv("BLOB_BACKEND", "local"),
		BlobDir:     getenv("BLOB_DIR", "data/blobs"),
		GCSBucket:   os.Getenv("GCS_BUCKET"),

		TranslatorProvider:   getenv("TRANSLATOR_PROVIDER", "none"),
		GCPProjectID:         os.Getenv("GCP_PROJECT_ID"),
		VertexRegion:         getenv("VERTEX_AI_REGION", "us-central1"),
		VertexModel:          getenv("VERTEX_MODEL", "gemini-1.5-pro"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          getenv("OPENAI_MODEL", "gpt-4o-mini"),
		TranslateTimeout:     time.Duration(getenvInt("TRANSLATE_TIMEOUT_SECONDS", 30)) * time.Second,
		TranslateConcurrency: getenvInt("TRANSLATE_CONCURRENCY", 4),
		GenerativePairs:      getenv("GENERATIVE_PAIRS", "vi>en,en>vi"),
		TemplatePairs:        os.Getenv("TEMPLATE_PAIRS"),

		DefaultSourceLang:    getenv("DEFAULT_SOURCE_LANG", "vi"),
		DefaultRequiredLangs: getenv("DEFAULT_REQUIRED_LANGS", "en"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}
	c.IdempotencyLockTTL = time.Duration(getenvInt("IDEMPOTENCY_LOCK_TTL_SECONDS", 0)) * time.Second
	if c.IdempotencyLockTTL <= 0 {
		c.IdempotencyLockTTL = c.BatchDuration(lockBudgetSegments)
	}
	c.PublicBaseURL = strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:"+c.Port), "/")
	c.CORSOrigins = splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"))

	if c.JWTSecret == "" && c.GinMode != "release" {
		c.JWTSecret = "default_super_secret_key" // development fallback only
	}
	return c
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql":
		if c.DBHost == "" || c.DBPort == "" || c.DBName == "" || c.DBUser == "" {
			return errors.New("missing database config (DB_HOST/PORT/NAME/USER)")
		}
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("missing DB_PATH for sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.BlobBackend {
	case "local":
		if c.BlobDir == "" {
			return errors.New("missing BLOB_DIR")
		}
	case "gcs":
		if c.GCSBucket == "" {
			return errors.New("GCS_BUCKET must be set when BLOB_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND %q", c.BlobBackend)
	}

	switch c.TranslatorProvider {
	case "none":
	case "vertex":
		if c.GCPProjectID == "" || c.VertexRegion == "" {
			return errors.New("GCP_PROJECT_ID and VERTEX_AI_REGION must be set when TRANSLATOR_PROVIDER=vertex")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY must be set when TRANSLATOR_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unsupported TRANSLATOR_PROVIDER %q", c.TranslatorProvider)
	}

	if c.TranslateTimeout <= 0 {
		return errors.New("TRANSLATE_TIMEOUT_SECONDS must be positive")
	}
	if c.TranslateConcurrency < 1 {
		return errors.New("TRANSLATE_CONCURRENCY must be at least 1")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required in release mode")
	}
	return nil
}

// BatchDuration is the worst case for translating n segments: every round of
// TranslateConcurrency calls runs into TranslateTimeout.
func (c *Config) BatchDuration(n int) time.Duration {
	workers := c.TranslateConcurrency
	if workers < 1 {
		workers = 1
	}
	rounds := (n + workers - 1) / workers
	if rounds < 1 {
		rounds = 1
	}
	return time.Duration(rounds) * c.TranslateTimeout
}

// DSN builds the connection string for the configured driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	case "sqlite":
		return c.DBPath
	default:
		return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LogConfig writes the non-secret settings at startup.
func (c *Config) LogConfig(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("port", c.Port),
		zap.String("app_env", c.AppEnv),
		zap.String("db_driver", c.DBDriver),
		zap.String("db_host", c.DBHost),
		zap.String("db_name", c.DBName),
		zap.Bool("idempotency_enabled", c.RedisAddr != ""),
		zap.Duration("idempotency_lock_ttl", c.IdempotencyLockTTL),
		zap.String("blob_backend", c.BlobBackend),
		zap.String("translator", c.TranslatorProvider),
		zap.Duration("translate_timeout", c.TranslateTimeout),
		zap.Int("translate_concurrency", c.TranslateConcurrency),
		zap.String("generative_pairs", c.GenerativePairs),
		zap.String("public_base_url", c.PublicBaseURL),
	)
}
