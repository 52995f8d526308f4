package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Site      SiteConfig      `yaml:"site"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	CookieName     string   `yaml:"cookie_name"`
	CookieSecure   bool     `yaml:"cookie_secure"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// StorageConfig contains blob storage settings
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// AuthConfig contains session token settings
type AuthConfig struct {
	JWTSecret         string `yaml:"jwt_secret"`
	TokenTTLMinutes   int    `yaml:"token_ttl_minutes"`
	MinPasswordLength int    `yaml:"min_password_length"`
}

// SiteConfig contains presentation settings
type SiteConfig struct {
	CoverPlaceholder  string `yaml:"cover_placeholder"`
	ViewerPlaceholder string `yaml:"viewer_placeholder"`
	Locale            string `yaml:"locale"`
	CurrencySymbol    string `yaml:"currency_symbol"`
	CitySuffix        string `yaml:"city_suffix"`
}

// CleanupConfig contains delete-log retention settings
type CleanupConfig struct {
	Enabled          bool   `yaml:"enabled"`
	DailyRunTime     string `yaml:"daily_run_time"`
	RetentionDays    int    `yaml:"retention_days"`
	MaxDeletionCount int    `yaml:"max_deletion_count"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
}

// EventsConfig contains message broker settings
type EventsConfig struct {
	NatsURL string `yaml:"nats_url"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Encoding    string `yaml:"encoding"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:8080"},
			CookieName:     "listing_session",
		},
		Database: DatabaseConfig{
			Type: "mysql",
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "listing",
				Database: "listing_portal",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "listing",
				Database: "listing_portal",
				SSLMode:  "disable",
			},
		},
		Storage: StorageConfig{
			Endpoint: "localhost:9000",
			Bucket:   "property-images",
		},
		Auth: AuthConfig{
			TokenTTLMinutes:   60 * 24,
			MinPasswordLength: 6,
		},
		Site: SiteConfig{
			CoverPlaceholder:  "https://via.placeholder.com/500x200?text=Sem+Foto",
			ViewerPlaceholder: "https://via.placeholder.com/800x400?text=Nenhuma+Foto+Dispon%C3%ADvel",
			Locale:            "pt-BR",
			CurrencySymbol:    "R$",
			CitySuffix:        "Piedade, SP",
		},
		Cleanup: CleanupConfig{
			Enabled:          false,
			DailyRunTime:     "03:00",
			RetentionDays:    90,
			MaxDeletionCount: 1000,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 10,
			RequestsPerHour:   100,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Encoding:    "json",
			LogRequests: true,
		},
		Timezone: "UTC",
	}
}

// LoadConfig loads configuration from a YAML file, then applies environment overrides
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	// If file doesn't exist, keep defaults
	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvOrConfig("PORT", c.Server.Port)
	c.Database.Type = getEnvOrConfig("DB_TYPE", c.Database.Type)

	c.Database.MySQL.Host = getEnvOrConfig("MYSQL_HOST", c.Database.MySQL.Host)
	c.Database.MySQL.Port = getEnvIntOrConfig("MYSQL_PORT", c.Database.MySQL.Port)
	c.Database.MySQL.User = getEnvOrConfig("MYSQL_USER", c.Database.MySQL.User)
	c.Database.MySQL.Password = getEnvOrConfig("MYSQL_PASSWORD", c.Database.MySQL.Password)
	c.Database.MySQL.Database = getEnvOrConfig("MYSQL_DATABASE", c.Database.MySQL.Database)

	c.Database.Postgres.Host = getEnvOrConfig("POSTGRES_HOST", c.Database.Postgres.Host)
	c.Database.Postgres.Port = getEnvIntOrConfig("POSTGRES_PORT", c.Database.Postgres.Port)
	c.Database.Postgres.User = getEnvOrConfig("POSTGRES_USER", c.Database.Postgres.User)
	c.Database.Postgres.Password = getEnvOrConfig("POSTGRES_PASSWORD", c.Database.Postgres.Password)
	c.Database.Postgres.Database = getEnvOrConfig("POSTGRES_DB", c.Database.Postgres.Database)

	c.Storage.Endpoint = getEnvOrConfig("STORAGE_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = getEnvOrConfig("STORAGE_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnvOrConfig("STORAGE_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnvOrConfig("STORAGE_BUCKET", c.Storage.Bucket)
	c.Storage.PublicBaseURL = getEnvOrConfig("STORAGE_PUBLIC_BASE_URL", c.Storage.PublicBaseURL)

	c.Auth.JWTSecret = getEnvOrConfig("JWT_SECRET", c.Auth.JWTSecret)
	c.Events.NatsURL = getEnvOrConfig("NATS_URL", c.Events.NatsURL)
	c.Logging.Level = getEnvOrConfig("LOG_LEVEL", c.Logging.Level)
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %q", c.Database.Type)
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket must be set")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret must be set (JWT_SECRET)")
	}
	if _, err := ParseDailyRunTime(c.Cleanup.DailyRunTime); c.Cleanup.Enabled && err != nil {
		return err
	}
	return nil
}

// GetTokenTTL returns the session token lifetime as a duration
func (c *AuthConfig) GetTokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// ParseDailyRunTime converts "HH:MM" to a cron spec "M H * * *"
func ParseDailyRunTime(timeStr string) (string, error) {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return "", fmt.Errorf("invalid daily_run_time %q (expected HH:MM): %w", timeStr, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

func getEnvOrConfig(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrConfig(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
