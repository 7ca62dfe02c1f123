package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis (optional, webhook delivery dedup is skipped when unset)
	RedisURL string

	// Supabase storage (durable home for mirrored provider assets)
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// n8n workflow tool
	N8NBaseURL       string // base URL of the n8n instance hosting the generation workflows
	N8NWebhookSecret string // shared secret for inbound callbacks and outbound dispatches

	// OpenAI (optional, prompt enrichment before dispatch)
	OpenAIKey string

	// Reconciler
	MaxConcurrentVideos int // per-project cap on scene videos in "generating"
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "ripreel-assets"),
		N8NBaseURL:            getEnv("N8N_BASE_URL", ""),
		N8NWebhookSecret:      getEnv("N8N_WEBHOOK_SECRET", ""),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		MaxConcurrentVideos:   getEnvInt("MAX_CONCURRENT_VIDEOS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.N8NBaseURL == "" {
		return nil, fmt.Errorf("N8N_BASE_URL is required")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	if cfg.MaxConcurrentVideos < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_VIDEOS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
