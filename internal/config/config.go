package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server Server
	Store  Store
	Redis  Redis
	Email  Email
	Auth   Auth
	Client Client
}

type Server struct {
	Host        string
	Port        int
	Environment string // "development", "production", "test"
	Debug       bool
}

// Store selects and configures the data store backend.
type Store struct {
	Provider string // "remote", "postgres", "memory"
	// Remote store settings
	BaseURL string
	APIKey  string
	// Postgres settings (self-hosted backend)
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type Redis struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type Email struct {
	Provider     string // "resend", "smtp", "console"
	FromAddress  string
	FromName     string
	ResendAPIKey string
	// SMTP settings (for Mailpit in local dev)
	SMTPHost string
	SMTPPort int
}

// Auth points at the identity service that exchanges refresh tokens for
// user identities.
type Auth struct {
	BaseURL string
}

// Client carries the client app base URL used to build invite deep links.
type Client struct {
	BaseURL string
}

func (s Store) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.DBName, s.SSLMode,
	)
}

func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: Server{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("DEBUG", false),
		},
		Store: Store{
			Provider: getEnv("STORE_PROVIDER", "memory"),
			BaseURL:  getEnv("STORE_BASE_URL", ""),
			APIKey:   getEnv("STORE_API_KEY", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "famshare"),
			Password: getEnv("DB_PASSWORD", "famshare"),
			DBName:   getEnv("DB_NAME", "famshare"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: Redis{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Email: Email{
			Provider:     getEnv("EMAIL_PROVIDER", "console"),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@famshare.app"),
			FromName:     getEnv("EMAIL_FROM_NAME", "FamShare"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		},
		Auth: Auth{
			BaseURL: getEnv("AUTH_BASE_URL", "http://localhost:8090"),
		},
		Client: Client{
			BaseURL: getEnv("CLIENT_BASE_URL", "https://app.famshare.app"),
		},
	}

	if cfg.Store.Provider == "remote" && cfg.Store.BaseURL == "" {
		return nil, fmt.Errorf("STORE_BASE_URL is required when STORE_PROVIDER=remote")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
