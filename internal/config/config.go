package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// Telegram
	BotToken string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Application
	AppEnv         string
	LogLevel       string
	SuperAdminTgID int64

	// Rate Limiting
	RateLimitPerUser   int
	RateLimitWindowSec int
	RateLimitMaxUsers  int

	// Matches
	JoinWindowSeconds    int
	SettleDelaySeconds   int
	HousekeepingSeconds  int
	RandomMatchMinHours  int
	RandomMatchMaxHours  int
	DisableLiveDelays    bool
	WorldEventIntervalMn int

	// Economy
	InitialCitizens int
	EconomyWorkers  int
	TuningFile      string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		BotToken: getEnv("BOT_TOKEN", ""),

		DBDriver:   getEnv("DB_DRIVER", DriverPostgres),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "battleforge"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "battleforge_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "battle_forge.db"),

		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SuperAdminTgID: getEnvInt64("SUPER_ADMIN_TG_ID", 0),

		RateLimitPerUser:   getEnvInt("RATE_LIMIT_PER_USER", 20),
		RateLimitWindowSec: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxUsers:  getEnvInt("RATE_LIMIT_MAX_USERS", 10000),

		JoinWindowSeconds:    getEnvInt("JOIN_WINDOW_SECONDS", 30),
		SettleDelaySeconds:   getEnvInt("SETTLE_DELAY_SECONDS", 30),
		HousekeepingSeconds:  getEnvInt("HOUSEKEEPING_SECONDS", 60),
		RandomMatchMinHours:  getEnvInt("RANDOM_MATCH_MIN_HOURS", 5),
		RandomMatchMaxHours:  getEnvInt("RANDOM_MATCH_MAX_HOURS", 6),
		DisableLiveDelays:    getEnvBool("DISABLE_LIVE_DELAYS", false),
		WorldEventIntervalMn: getEnvInt("WORLD_EVENT_INTERVAL_MINUTES", 360),

		InitialCitizens: getEnvInt("INITIAL_CITIZENS", 10000),
		EconomyWorkers:  getEnvInt("ECONOMY_WORKERS", 4),
		TuningFile:      getEnv("TUNING_FILE", ""),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if c.JoinWindowSeconds <= 0 {
		return fmt.Errorf("JOIN_WINDOW_SECONDS must be positive")
	}
	if c.SettleDelaySeconds < 0 {
		return fmt.Errorf("SETTLE_DELAY_SECONDS must not be negative")
	}
	if c.RandomMatchMinHours <= 0 || c.RandomMatchMaxHours < c.RandomMatchMinHours {
		return fmt.Errorf("RANDOM_MATCH_MIN_HOURS must be positive and not exceed RANDOM_MATCH_MAX_HOURS")
	}
	if c.InitialCitizens < 0 {
		return fmt.Errorf("INITIAL_CITIZENS must not be negative")
	}
	return nil
}

// ValidateBot checks the settings only the bot process needs.
func (c *Config) ValidateBot() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.DBDriver != DriverPostgres {
		return fmt.Errorf("DB_DRIVER must be postgres in production")
	}
	if c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}
	if c.DisableLiveDelays {
		return fmt.Errorf("DISABLE_LIVE_DELAYS must be off in production")
	}
	if c.SuperAdminTgID == 0 {
		return fmt.Errorf("SUPER_ADMIN_TG_ID must be set in production")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) GetJoinWindow() time.Duration {
	return time.Duration(c.JoinWindowSeconds) * time.Second
}

func (c *Config) GetSettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySeconds) * time.Second
}

func (c *Config) GetHousekeepingInterval() time.Duration {
	if c.HousekeepingSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.HousekeepingSeconds) * time.Second
}

func (c *Config) GetWorldEventInterval() time.Duration {
	return time.Duration(c.WorldEventIntervalMn) * time.Minute
}

func (c *Config) GetRandomMatchMin() time.Duration {
	return time.Duration(c.RandomMatchMinHours) * time.Hour
}

func (c *Config) GetRandomMatchMax() time.Duration {
	return time.Duration(c.RandomMatchMaxHours) * time.Hour
}

func (c *Config) GetRateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
