package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const openAIKeyMinLength = 20

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	UploadDir        string
	MaxUploadBytes   int64
	JobWorkers       int
	JobRetention     time.Duration
	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. A missing OpenAI key is not an error here: the
// gateway reports it as a misconfiguration on the endpoints that need it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "5000"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		OpenAIAPIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		UploadDir:        getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		JobWorkers:       getEnvInt("JOB_WORKERS", 4),
		JobRetention:     time.Hour * time.Duration(getEnvInt("JOB_RETENTION_HOURS", 24)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if cfg.JobWorkers <= 0 {
		cfg.JobWorkers = 1
	}

	return cfg, nil
}

// ValidateOpenAIKey checks that the configured credential is present and
// plausibly shaped. It is called before any upload work so a broken
// deployment surfaces as a distinct misconfiguration error instead of a
// failed remote call.
func (c *Config) ValidateOpenAIKey() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not configured")
	}
	if !strings.HasPrefix(c.OpenAIAPIKey, "sk-") || len(c.OpenAIAPIKey) < openAIKeyMinLength {
		return fmt.Errorf("OPENAI_API_KEY appears invalid")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
