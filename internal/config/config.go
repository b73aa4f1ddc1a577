// Package config loads runtime configuration with Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Search backends.
const (
	SearchMemory        = "memory"
	SearchElasticsearch = "elasticsearch"
)

// Config holds all runtime settings.
type Config struct {
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string

	SearchBackend        string
	SearchPageSize       int
	ElasticsearchURL     string
	ElasticsearchIndex   string
	ElasticsearchTimeout time.Duration

	RabbitMQURL          string
	RabbitMQExchange     string
	RabbitMQReindexQueue string

	LogLevel string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "file:products.db")
	v.SetDefault("SEARCH_BACKEND", SearchMemory)
	v.SetDefault("SEARCH_PAGE_SIZE", 10)
	v.SetDefault("ELASTICSEARCH_URL", "http://localhost:9200")
	v.SetDefault("ELASTICSEARCH_INDEX", "products")
	v.SetDefault("ELASTICSEARCH_TIMEOUT", "5s")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "products")
	v.SetDefault("RABBITMQ_REINDEX_QUEUE", "product_reindex_queue")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads configuration from the environment and an optional config file
// (config.yaml in the working directory).
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		AppPort:              v.GetString("APP_PORT"),
		DatabaseDriver:       strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:          v.GetString("DATABASE_DSN"),
		SearchBackend:        strings.ToLower(v.GetString("SEARCH_BACKEND")),
		SearchPageSize:       v.GetInt("SEARCH_PAGE_SIZE"),
		ElasticsearchURL:     v.GetString("ELASTICSEARCH_URL"),
		ElasticsearchIndex:   v.GetString("ELASTICSEARCH_INDEX"),
		ElasticsearchTimeout: v.GetDuration("ELASTICSEARCH_TIMEOUT"),
		RabbitMQURL:          v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:     v.GetString("RABBITMQ_EXCHANGE"),
		RabbitMQReindexQueue: v.GetString("RABBITMQ_REINDEX_QUEUE"),
		LogLevel:             v.GetString("LOG_LEVEL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.SearchBackend {
	case SearchMemory, SearchElasticsearch:
	default:
		return fmt.Errorf("unsupported SEARCH_BACKEND %q", c.SearchBackend)
	}
	if c.SearchPageSize <= 0 {
		return fmt.Errorf("SEARCH_PAGE_SIZE must be positive, got %d", c.SearchPageSize)
	}
	return nil
}
