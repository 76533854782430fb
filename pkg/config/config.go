package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
	}

	// Database configuration
	Database struct {
		Driver   string // "sqlite" or "postgres"
		Path     string // sqlite database file
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}

	// Telegram configuration
	Telegram struct {
		Token       string
		WebhookHost string
		PathToken   string
		Proxy       string
		SendTimeout time.Duration
	}

	// Query defaults for the top-rated commands
	Query struct {
		TopLimit  int
		MinRating int64
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8080")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

		// Database config
		instance.Database.Driver = getEnvString("DB_DRIVER", "sqlite")
		instance.Database.Path = getEnvString("DB_PATH", "ratingbot.db")
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "ratingbot")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)

		// Telegram config. The webhook path token defaults to the bot
		// token itself, matching the conventional Telegram setup where
		// the token doubles as the shared-secret path segment.
		instance.Telegram.Token = getEnvString("TELEGRAM_BOT_TOKEN", "")
		instance.Telegram.WebhookHost = getEnvString("WEBHOOK_HOST", "")
		instance.Telegram.PathToken = getEnvString("WEBHOOK_PATH_TOKEN", instance.Telegram.Token)
		instance.Telegram.Proxy = getEnvString("TELEGRAM_PROXY", "")
		instance.Telegram.SendTimeout = getEnvDuration("TELEGRAM_SEND_TIMEOUT", 10*time.Second)

		// Query defaults; top 5 with rating > 0 when unset
		instance.Query.TopLimit = getEnvInt("TOP_LIMIT", 5)
		instance.Query.MinRating = int64(getEnvInt("MIN_RATING", 1))

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 30))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 60)

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")
	})

	return instance
}

// Get returns the singleton Config instance, creating it if necessary
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Validate fails fast on missing required fields. Called once at
// startup after secrets have had a chance to fill in the bot token.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.Telegram.WebhookHost == "" {
		missing = append(missing, "WEBHOOK_HOST")
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.Database.Driver)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// getEnvString gets a string from environment with a default value
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt gets an int from environment with a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration from environment with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
