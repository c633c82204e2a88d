package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RAG_API_BASE_URL", "http://localhost:8000")
	t.Setenv("CREDENTIAL_BACKEND", "memory")

	cfg := Load()

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, CredentialBackendMemory, cfg.Storage.CredentialBackend)
	assert.Empty(t, cfg.Events.NatsURL)
	assert.False(t, cfg.Telemetry.OtelEnabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RAG_API_BASE_URL", "https://rag.example.com")
	t.Setenv("RAG_API_TIMEOUT", "5s")
	t.Setenv("CREDENTIAL_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, "https://rag.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, "redis://cache:6379/2", cfg.Storage.RedisURL)
	assert.True(t, cfg.Telemetry.OtelEnabled)
	assert.True(t, cfg.IsProduction())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad base url", mutate: func(c *Config) { c.API.BaseURL = "not a url" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.CredentialBackend = "sqlite" }, wantErr: true},
		{name: "file backend without path", mutate: func(c *Config) {
			c.Storage.CredentialBackend = CredentialBackendFile
			c.Storage.CredentialFile = ""
		}, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.API.RequestTimeout = 0 }, wantErr: true},
		{name: "non numeric port", mutate: func(c *Config) { c.App.Port = "eighty" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Port:              "5174",
			Environment:       "development",
			LogFilePath:       "logs/ragchat.log",
			BridgeLogFilePath: "logs/bridge.log",
		},
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			RequestTimeout: time.Second,
		},
		Storage: StorageConfig{
			CredentialBackend: CredentialBackendMemory,
		},
		Telemetry: TelemetryConfig{ServiceName: "ragchat-client"},
	}
}
