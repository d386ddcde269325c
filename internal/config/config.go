package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration, read from environment variables
// (MARKETPLACE_ prefix) with an optional config file on top.
type Config struct {
	HTTPAddr string
	LogLevel string

	Storage StorageConfig
	Sweep   SweepConfig
	Kafka   KafkaConfig
}

// StorageConfig selects the order-store driver.
type StorageConfig struct {
	// Driver is one of "badger", "sqlite", "postgres", "memory".
	Driver string
	// Path is the badger data directory.
	Path string
	// DSN is the sqlite file or postgres connection string.
	DSN string
}

// SweepConfig controls the background scheduler.
type SweepConfig struct {
	Interval time.Duration
}

// KafkaConfig controls match-event publication. Publication is disabled when
// no brokers are configured.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from the environment and, when present, a
// marketplace.yaml in the working directory or /etc/marketplace.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MARKETPLACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", "badger")
	v.SetDefault("storage.path", "./data/orders")
	v.SetDefault("storage.dsn", "orders.db")
	v.SetDefault("sweep.interval", 15*time.Minute)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "marketplace.matches")

	v.SetConfigName("marketplace")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/marketplace")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr: v.GetString("http.addr"),
		LogLevel: v.GetString("log.level"),
		Storage: StorageConfig{
			Driver: v.GetString("storage.driver"),
			Path:   v.GetString("storage.path"),
			DSN:    v.GetString("storage.dsn"),
		},
		Sweep: SweepConfig{
			Interval: v.GetDuration("sweep.interval"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "badger", "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.Sweep.Interval)
	}
	return nil
}
