// Package config loads runtime settings from the environment and the
// crawler's AppConfig settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

const appName = "newscrawler"

type Config struct {
	// Text generation
	TextBackend  string // "gemini" or "openai"
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	ImageModel   string

	// Daily model request caps (0 = unlimited)
	MaxTextRequests  int
	MaxImageRequests int

	// Search
	SearchAPIKey   string
	SearchEngineID string
	SearchMaxPages int

	// Store
	StoreDriver  string // "postgres", "sqlite" or "file"
	DatabaseURL  string
	SQLitePath   string
	SnapshotPath string

	// Blob storage for generated images
	BlobBucket  string
	BlobDir     string
	BlobBaseURL string

	// Settings file (AppConfig)
	SettingsPath string

	// Scheduler and fetching
	TickInterval     time.Duration
	FetchConcurrency int
	FetchCacheTTL    time.Duration
	RequestTimeout   time.Duration

	// Telegram digest sink (optional)
	TelegramToken  string
	TelegramChatID string

	// Monitoring
	EnableMonitoring bool
	MonitoringPort   string

	Debug bool
}

// Load reads the environment and validates everything the crawler needs.
func Load() (*Config, error) {
	cfg := fromEnv()
	return cfg, cfg.Validate()
}

// LoadStore is Load for commands that only touch the store and settings; it
// does not require model credentials.
func LoadStore() (*Config, error) {
	cfg := fromEnv()
	return cfg, cfg.ValidateStore()
}

func fromEnv() *Config {
	cfg := &Config{
		// Default values
		TextBackend:      "gemini",
		GeminiModel:      "gemini-1.5-flash",
		OpenAIModel:      "gpt-4o-mini",
		ImageModel:       "dall-e-3",
		SearchMaxPages:   3,
		StoreDriver:      "sqlite",
		SQLitePath:       filepath.Join(xdg.DataHome, appName, "news.db"),
		SnapshotPath:     filepath.Join(xdg.DataHome, appName, "news.json"),
		BlobDir:          filepath.Join(xdg.DataHome, appName, "blobs"),
		BlobBaseURL:      "/blobs",
		SettingsPath:     filepath.Join(xdg.ConfigHome, appName, "settings.yaml"),
		TickInterval:     time.Minute,
		FetchConcurrency: 4,
		FetchCacheTTL:    6 * time.Hour,
		RequestTimeout:   20 * time.Second,
		MonitoringPort:   "8080",
	}

	cfg.TextBackend = getEnvOrDefault("TEXT_BACKEND", cfg.TextBackend)
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.ImageModel = getEnvOrDefault("IMAGE_MODEL", cfg.ImageModel)

	cfg.MaxTextRequests = getEnvIntOrDefault("MAX_TEXT_REQUESTS", 0)
	cfg.MaxImageRequests = getEnvIntOrDefault("MAX_IMAGE_REQUESTS", 0)

	cfg.SearchAPIKey = os.Getenv("SEARCH_API_KEY")
	cfg.SearchEngineID = os.Getenv("SEARCH_ENGINE_ID")
	if v := getEnvIntOrDefault("SEARCH_MAX_PAGES", cfg.SearchMaxPages); v > 0 {
		cfg.SearchMaxPages = v
	}

	cfg.StoreDriver = getEnvOrDefault("STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SQLitePath = getEnvOrDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.SnapshotPath = getEnvOrDefault("SNAPSHOT_PATH", cfg.SnapshotPath)

	cfg.BlobBucket = os.Getenv("BLOB_BUCKET")
	cfg.BlobDir = getEnvOrDefault("BLOB_DIR", cfg.BlobDir)
	cfg.BlobBaseURL = getEnvOrDefault("BLOB_BASE_URL", cfg.BlobBaseURL)

	cfg.SettingsPath = getEnvOrDefault("SETTINGS_PATH", cfg.SettingsPath)

	cfg.TickInterval = getEnvDurationOrDefault("TICK_INTERVAL", cfg.TickInterval)
	if v := getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency); v > 0 {
		cfg.FetchConcurrency = v
	}
	cfg.FetchCacheTTL = getEnvDurationOrDefault("FETCH_CACHE_TTL", cfg.FetchCacheTTL)
	cfg.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	cfg.EnableMonitoring = os.Getenv("ENABLE_HTTP_MONITORING") == "true"
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	switch c.TextBackend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when TEXT_BACKEND=gemini")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TEXT_BACKEND=openai")
		}
	default:
		return fmt.Errorf("TEXT_BACKEND must be 'gemini' or 'openai'")
	}

	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.TelegramToken != "" && c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return nil
}

// ValidateStore checks the store driver settings only.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "sqlite", "file":
	default:
		return fmt.Errorf("STORE_DRIVER must be 'postgres', 'sqlite' or 'file'")
	}
	return nil
}
