// Package config loads application configuration from environment
// variables and an optional .env file, with sensible defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/codecritic/codecritic/internal/logger"
)

// Config holds configuration for all three binaries. Each binary validates
// only the sections it uses.
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Session  SessionConfig
	AI       AIConfig
	Database DBConfig
	Log      logger.Config
}

// ServerConfig configures the application (BFF) HTTP server.
type ServerConfig struct {
	Port           string
	BackendBaseURL string
}

// UpstreamConfig configures the reference review backend.
type UpstreamConfig struct {
	Port        string
	TokenSecret string
	TokenTTL    time.Duration
}

// SessionConfig configures the session tokens issued by the BFF.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// AIConfig configures LLM access for the local inference engine and the
// backend's review generation.
type AIConfig struct {
	OllamaHost     string
	GeneratorModel string
}

// DBConfig configures the backend's Postgres connection.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Load reads configuration from environment variables and an optional .env
// file. Missing secrets are not an error here; ValidateServer and
// ValidateUpstream enforce them per binary.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("BACKEND_BASE_URL", "http://localhost:8000/api/v1")
	v.SetDefault("BACKEND_PORT", "8000")
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("TOKEN_TTL", "720h")
	v.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	v.SetDefault("GENERATOR_MODEL_NAME", "gemma3:latest")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_NAME", "codecritic")
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")

	// A missing .env file is fine; the environment still applies.
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			BackendBaseURL: v.GetString("BACKEND_BASE_URL"),
		},
		Upstream: UpstreamConfig{
			Port:        v.GetString("BACKEND_PORT"),
			TokenSecret: v.GetString("TOKEN_SECRET"),
			TokenTTL:    v.GetDuration("TOKEN_TTL"),
		},
		Session: SessionConfig{
			Secret: v.GetString("SESSION_SECRET"),
			TTL:    v.GetDuration("SESSION_TTL"),
		},
		AI: AIConfig{
			OllamaHost:     v.GetString("OLLAMA_HOST"),
			GeneratorModel: v.GetString("GENERATOR_MODEL_NAME"),
		},
		Database: DBConfig{
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			Username:        v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Database:        v.GetString("DATABASE_NAME"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DATABASE_CONN_MAX_IDLE_TIME"),
		},
		Log: logger.Config{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
	}

	return cfg, nil
}

// ValidateServer checks the fields the BFF server requires.
func (c *Config) ValidateServer() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET must be set")
	}
	if c.Server.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be set")
	}
	return nil
}

// ValidateUpstream checks the fields the reference backend requires.
func (c *Config) ValidateUpstream() error {
	if c.Upstream.TokenSecret == "" {
		return fmt.Errorf("TOKEN_SECRET must be set")
	}
	return nil
}
