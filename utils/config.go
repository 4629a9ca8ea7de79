package utils

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

var (
	EnvPath string = "."
)

const REVISION = "v1.0.0"

type Config struct {
	Env               string `mapstructure:"ENV"`
	ServerPort        int    `mapstructure:"SERVER_PORT"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	DBUsername        string `mapstructure:"DB_USERNAME"`
	DBPassword        string `mapstructure:"DB_PASSWORD"`
	DBHost            string `mapstructure:"DB_HOST"`
	DBPort            string `mapstructure:"DB_PORT"`
	DBDriver          string `mapstructure:"DB_DRIVER"`
	DBName            string `mapstructure:"DB_NAME"`
	SSLMode           string `mapstructure:"SSLMODE"`
	MigrationsPath    string `mapstructure:"MIGRATIONS_PATH"`
	Papertrail        string `mapstructure:"PAPERTRAIL"`
	PapertrailAppName string `mapstructure:"PAPERTRAIL_APP_NAME"`
	RedisHost         string `mapstructure:"REDIS_HOST"`
	RedisPort         string `mapstructure:"REDIS_PORT"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int    `mapstructure:"REDIS_DB"`

	CardRepository      string `mapstructure:"CARD_REPOSITORY"`
	CardCacheTTLSeconds int    `mapstructure:"CARD_CACHE_TTL"`
	CardNumberGenerator string `mapstructure:"CARD_NUMBER_GENERATOR"`
	CardNumberLength    int    `mapstructure:"CARD_NUMBER_LENGTH"`
	CardNumberSalt      string `mapstructure:"CARD_NUMBER_SALT"`
	TxTimeoutMillis     int    `mapstructure:"TX_TIMEOUT_MS"`
	RetryAttempts       int    `mapstructure:"RETRY_ATTEMPTS"`
	TimerUnit           string `mapstructure:"TIMER_UNIT"`
	EventPublisher      string `mapstructure:"EVENT_PUBLISHER"`
	EventChannel        string `mapstructure:"EVENT_CHANNEL"`
}

const (
	RepositoryMemory   = "memory"
	RepositoryPostgres = "postgres"
	RepositoryRedis    = "redis"

	PublisherLog   = "log"
	PublisherRedis = "redis"
)

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "."
	}

	// Create a new Viper instance to avoid global state
	v := viper.New()

	v.SetEnvPrefix("")
	v.AutomaticEnv()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		// Log the error, but don't fail entirely
		log.Printf("Warning: Unable to read config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// AutomaticEnv only resolves keys viper already knows about, so every key
// gets a default here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_USERNAME", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_NAME", "cards")
	v.SetDefault("SSLMODE", "disable")
	v.SetDefault("MIGRATIONS_PATH", "file://db/migrations")
	v.SetDefault("PAPERTRAIL", "")
	v.SetDefault("PAPERTRAIL_APP_NAME", "swiftfiat-cards")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CARD_REPOSITORY", RepositoryMemory)
	v.SetDefault("CARD_CACHE_TTL", 0)
	v.SetDefault("CARD_NUMBER_GENERATOR", "seq")
	v.SetDefault("CARD_NUMBER_LENGTH", 16)
	v.SetDefault("CARD_NUMBER_SALT", "")
	v.SetDefault("TX_TIMEOUT_MS", 5000)
	v.SetDefault("RETRY_ATTEMPTS", 3)
	v.SetDefault("TIMER_UNIT", "ns")
	v.SetDefault("EVENT_PUBLISHER", PublisherLog)
	v.SetDefault("EVENT_CHANNEL", "cards.transactions")
}

func validateConfig(config *Config) error {
	if config.ServerPort == 0 {
		return fmt.Errorf("server port must be specified")
	}

	switch config.CardRepository {
	case RepositoryMemory, RepositoryRedis:
	case RepositoryPostgres:
		if config.DBUsername == "" || config.DBPassword == "" {
			return fmt.Errorf("database credentials must be provided")
		}
	default:
		return fmt.Errorf("unknown card repository %q", config.CardRepository)
	}

	switch config.EventPublisher {
	case PublisherLog, PublisherRedis:
	default:
		return fmt.Errorf("unknown event publisher %q", config.EventPublisher)
	}

	if config.CardNumberLength < 1 {
		return fmt.Errorf("card number length must be at least 1")
	}
	if config.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	if config.TxTimeoutMillis <= 0 {
		return fmt.Errorf("transaction timeout must be positive")
	}

	return nil
}

func (c *Config) TxTimeout() time.Duration {
	return time.Duration(c.TxTimeoutMillis) * time.Millisecond
}

func (c *Config) CardCacheTTL() time.Duration {
	return time.Duration(c.CardCacheTTLSeconds) * time.Second
}

// Masking sensitive information for logging
func (c *Config) Redact() Config {
	redacted := *c
	redacted.DBPassword = "****"
	redacted.RedisPassword = "****"
	redacted.CardNumberSalt = "****"
	return redacted
}
