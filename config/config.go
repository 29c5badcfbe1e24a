package config

import (
	"os"
	"strconv"
	"strings"

	"geoclock/utils"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Environment string
	Port        string

	// TelegramBotToken is required; the process refuses to start without it.
	TelegramBotToken string `validate:"required"`

	// DatabaseURLs maps project name to MongoDB URI.
	DatabaseURLs map[string]string `validate:"required,min=1"`

	RedisURL string

	DefaultTimezone string `validate:"required"`
	WebAppURL       string
	JWTSecret       string

	// Monitor settings
	CheckIntervalMinutes  int `validate:"min=1"`
	MaxLocationAgeMinutes int `validate:"min=1"`
	MonitorEnabled        bool
	NotificationsEnabled  bool
}

var validate = validator.New()

// Load reads the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:      getEnv("ENVIRONMENT", "development"),
		Port:             getEnv("PORT", "8080"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		DatabaseURLs:     parseDatabaseURLs(getEnv("DATABASE_URLS", "mongodb://localhost:27017/geoclock")),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379"),
		DefaultTimezone:  getEnv("DEFAULT_TZ", utils.DefaultTimezone),
		WebAppURL:        getEnv("WEB_APP_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", "dev-only-web-app-link-secret"),

		CheckIntervalMinutes:  getEnvAsInt("CHECK_INTERVAL_MINUTES", 5),
		MaxLocationAgeMinutes: getEnvAsInt("MAX_LOCATION_AGE_MINUTES", 10),
		MonitorEnabled:        getEnvAsBool("LOCATION_MONITOR_ENABLED", true),
		NotificationsEnabled:  getEnvAsBool("LOCATION_NOTIFICATIONS_ENABLED", true),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDatabaseURLs accepts comma-separated "project=uri" pairs, or a single
// bare URI which becomes project "default".
func parseDatabaseURLs(raw string) map[string]string {
	urls := make(map[string]string)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, uri, found := strings.Cut(part, "="); found {
			urls[strings.TrimSpace(name)] = strings.TrimSpace(uri)
		} else {
			urls["default"] = part
		}
	}

	return urls
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
