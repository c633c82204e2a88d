package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	CredentialBackendFile   = "file"
	CredentialBackendRedis  = "redis"
	CredentialBackendMemory = "memory"
)

// Config is built once at bootstrap and injected everywhere it is needed.
// Nothing below cmd/ reads the environment directly.
type Config struct {
	App       AppConfig
	API       APIConfig
	Storage   StorageConfig
	Events    EventsConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string `validate:"required,numeric"`
	Environment        string `validate:"required"`
	LogFilePath        string `validate:"required"`
	BridgeLogFilePath  string `validate:"required"`
	CorsAllowedOrigins string
}

type APIConfig struct {
	BaseURL        string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`
}

type StorageConfig struct {
	CredentialBackend string `validate:"oneof=file redis memory"`
	CredentialFile    string `validate:"required_if=CredentialBackend file"`
	RedisURL          string `validate:"required_if=CredentialBackend redis"`
	RedisKeyPrefix    string
}

type EventsConfig struct {
	// Empty disables cross-process session events.
	NatsURL string
}

type TelemetryConfig struct {
	OtelEnabled  bool
	OtelEndpoint string
	ServiceName  string `validate:"required"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("BRIDGE_PORT", "5174"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/ragchat.log"),
			BridgeLogFilePath:  getEnv("BRIDGE_LOG_FILE_PATH", "logs/bridge.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		API: APIConfig{
			BaseURL:        getEnv("RAG_API_BASE_URL", "http://localhost:8000"),
			RequestTimeout: getEnvAsDuration("RAG_API_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			CredentialBackend: getEnv("CREDENTIAL_BACKEND", CredentialBackendFile),
			CredentialFile:    getEnv("CREDENTIAL_FILE", defaultCredentialFile()),
			RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
			RedisKeyPrefix:    getEnv("REDIS_KEY_PREFIX", "ragchat:credentials:"),
		},
		Events: EventsConfig{
			NatsURL: getEnv("NATS_URL", ""),
		},
		Telemetry: TelemetryConfig{
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "ragchat-client"),
		},
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func defaultCredentialFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "credentials.json"
	}
	return filepath.Join(dir, "ragchat", "credentials.json")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
