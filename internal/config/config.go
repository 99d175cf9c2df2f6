package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the console's named constants. The batch cooldown and the
// unlock window are configuration values, not literals buried in handlers.
const (
	DefaultBatchCooldown = 4 * time.Second
	DefaultUnlockWindow  = 6 * time.Hour
	DefaultAnnounceDelay = 30 * time.Second
)

// Config holds application configuration
type Config struct {
	ServerPort  string `yaml:"server_port"`
	FrontendURL string `yaml:"frontend_url"`

	// Access gate. A shared code checked server-side; this is a deterrent for
	// a single-operator console, not an authentication system.
	AccessCode   string        `yaml:"access_code"`
	GateSecret   string        `yaml:"gate_secret"`
	UnlockWindow time.Duration `yaml:"unlock_window"`

	// Batch pipeline
	BatchCooldown time.Duration `yaml:"batch_cooldown"`

	// Object store (Cloudinary unsigned upload)
	CloudinaryCloudName    string `yaml:"cloudinary_cloud_name"`
	CloudinaryUploadPreset string `yaml:"cloudinary_upload_preset"`

	// AI analysis
	AIAPIKey  string `yaml:"ai_api_key"`
	AIModel   string `yaml:"ai_model"`
	AIBaseURL string `yaml:"ai_base_url"`

	// Notion record target
	NotionAPIKey     string `yaml:"notion_api_key"`
	NotionDatabaseID string `yaml:"notion_database_id"`

	// Telegram announcement
	TelegramBotToken  string        `yaml:"telegram_bot_token"`
	TelegramChannelID string        `yaml:"telegram_channel_id"`
	SiteBaseURL       string        `yaml:"site_base_url"`
	AnnounceDelay     time.Duration `yaml:"announce_delay"`

	RedisURL         string `yaml:"redis_url"`
	RabbitMQURL      string `yaml:"rabbitmq_url"`
	RabbitMQPrefetch int    `yaml:"rabbitmq_prefetch"`

	EnableHSTS      bool   `yaml:"enable_hsts"`
	ServerDebugMode bool   `yaml:"server_debug_mode"`
	WorkerDebugMode bool   `yaml:"worker_debug_mode"`
	OTELEnabled     bool   `yaml:"otel_enabled"`
	OTELEndpoint    string `yaml:"otel_endpoint"`
}

// Load loads configuration from an optional YAML file (CONFIG_FILE), with
// environment variables taking precedence over file values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       "8080",
		FrontendURL:      "http://localhost:3000",
		UnlockWindow:     DefaultUnlockWindow,
		BatchCooldown:    DefaultBatchCooldown,
		AnnounceDelay:    DefaultAnnounceDelay,
		RedisURL:         "redis://localhost:6379/0",
		RabbitMQPrefetch: 1,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.AccessCode = getEnv("ACCESS_CODE", cfg.AccessCode)
	cfg.GateSecret = getEnv("GATE_SECRET", cfg.GateSecret)
	cfg.UnlockWindow = getEnvDuration("UNLOCK_WINDOW", cfg.UnlockWindow)
	cfg.BatchCooldown = getEnvDuration("BATCH_COOLDOWN", cfg.BatchCooldown)
	cfg.CloudinaryCloudName = getEnv("CLOUDINARY_CLOUD_NAME", cfg.CloudinaryCloudName)
	cfg.CloudinaryUploadPreset = getEnv("CLOUDINARY_UPLOAD_PRESET", cfg.CloudinaryUploadPreset)
	cfg.AIAPIKey = getEnv("AI_API_KEY", cfg.AIAPIKey)
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AIBaseURL = getEnv("AI_BASE_URL", cfg.AIBaseURL)
	cfg.NotionAPIKey = getEnv("NOTION_API_KEY", cfg.NotionAPIKey)
	cfg.NotionDatabaseID = getEnv("NOTION_DATABASE_ID", cfg.NotionDatabaseID)
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.TelegramChannelID = getEnv("TELEGRAM_CHANNEL_ID", cfg.TelegramChannelID)
	cfg.SiteBaseURL = getEnv("SITE_BASE_URL", cfg.SiteBaseURL)
	cfg.AnnounceDelay = getEnvDuration("ANNOUNCE_DELAY", cfg.AnnounceDelay)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", cfg.RabbitMQPrefetch)
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	if cfg.AccessCode == "" {
		return nil, fmt.Errorf("ACCESS_CODE is required")
	}

	if cfg.GateSecret == "" {
		return nil, fmt.Errorf("GATE_SECRET is required for unlock token signing")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for announcement queueing")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
