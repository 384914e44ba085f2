package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string        `mapstructure:"PORT"`
	GinMode                          string        `mapstructure:"GIN_MODE"`
	StoreBackend                     string        `mapstructure:"STORE_BACKEND"`
	FirebaseProjectID                string        `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string        `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string        `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	StripeSecretKey                  string        `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret              string        `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	ClientURL                        string        `mapstructure:"CLIENT_URL"`
	RedisAddr                        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword                    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB                          int           `mapstructure:"REDIS_DB"`
	UserCacheTTL                     time.Duration `mapstructure:"USER_CACHE_TTL"`
	RabbitMQURL                      string        `mapstructure:"RABBITMQ_URL"`
	EventsQueue                      string        `mapstructure:"EVENTS_QUEUE"`
	ShutdownTimeout                  time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"PORT",
	"GIN_MODE",
	"STORE_BACKEND",
	"FIREBASE_PROJECT_ID",
	"GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"STRIPE_SECRET_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"CLIENT_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"USER_CACHE_TTL",
	"RABBITMQ_URL",
	"EVENTS_QUEUE",
	"SHUTDOWN_TIMEOUT",
}

// IsRelease reports whether gin runs in release mode.
func (c Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}

// LoadConfig loads configuration from environment variables using Viper.
// If PATH_CONFIG names a YAML file it is read first; environment variables take precedence.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("STORE_BACKEND", BackendFirestore)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("USER_CACHE_TTL", "5m")
	v.SetDefault("EVENTS_QUEUE", "saas-tracker.events")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path := v.GetString("PATH_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.New("failed to unmarshal config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the combinations of settings the server cannot start without.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
		if c.GoogleApplicationCredentials == "" && c.FirebaseServiceAccountJSONBase64 == "" {
			return errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.StripeSecretKey != "" && c.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	if c.UserCacheTTL < 0 {
		return errors.New("USER_CACHE_TTL must not be negative")
	}
	return nil
}
