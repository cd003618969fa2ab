package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Order    OrderConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Resync   ResyncConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Partial cancellation policies, applied when an order that has not reached
// served as a whole already has served items.
const (
	PartialCancelRestoreAll = "restore_all"
	PartialCancelReject     = "reject"
)

type OrderConfig struct {
	TxTimeout           time.Duration
	MaxRetryAttempts    int
	PartialCancelPolicy string
	TaxRate             string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Key      string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type ResyncConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Load reads an optional YAML file at path, then lets environment variables
// (and a local .env file) override it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "comanda")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_NAME", "comanda")
	v.SetDefault("DB_PATH", "comanda.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ORDER_TX_TIMEOUT", "5s")
	v.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)
	v.SetDefault("ORDER_PARTIAL_CANCEL_POLICY", PartialCancelRestoreAll)
	v.SetDefault("ORDER_TAX_RATE", "0")
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_RESYNC_KEY", "comanda:availability:pending")
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA_TOPIC", "comanda.events")
	v.SetDefault("RESYNC_INTERVAL", "30s")
	v.SetDefault("RESYNC_BATCH_SIZE", 100)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	connMaxLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, fmt.Errorf("parsing DB_CONN_MAX_LIFETIME: %w", err)
	}

	txTimeout, err := time.ParseDuration(v.GetString("ORDER_TX_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("parsing ORDER_TX_TIMEOUT: %w", err)
	}

	resyncInterval, err := time.ParseDuration(v.GetString("RESYNC_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("parsing RESYNC_INTERVAL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("DB_DRIVER"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			Path:            v.GetString("DB_PATH"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Order: OrderConfig{
			TxTimeout:           txTimeout,
			MaxRetryAttempts:    v.GetInt("ORDER_MAX_RETRY_ATTEMPTS"),
			PartialCancelPolicy: v.GetString("ORDER_PARTIAL_CANCEL_POLICY"),
			TaxRate:             v.GetString("ORDER_TAX_RATE"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Key:      v.GetString("REDIS_RESYNC_KEY"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("KAFKA_ENABLED"),
			Brokers: v.GetStringSlice("KAFKA_BROKERS"),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Resync: ResyncConfig{
			Interval:  resyncInterval,
			BatchSize: v.GetInt("RESYNC_BATCH_SIZE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Order.PartialCancelPolicy {
	case PartialCancelRestoreAll, PartialCancelReject:
	default:
		return fmt.Errorf("unsupported ORDER_PARTIAL_CANCEL_POLICY %q", c.Order.PartialCancelPolicy)
	}

	if c.Order.MaxRetryAttempts < 1 {
		return fmt.Errorf("ORDER_MAX_RETRY_ATTEMPTS must be at least 1")
	}

	if c.Order.TxTimeout <= 0 {
		return fmt.Errorf("ORDER_TX_TIMEOUT must be positive, got %s", c.Order.TxTimeout)
	}
	if c.Resync.Interval <= 0 {
		return fmt.Errorf("RESYNC_INTERVAL must be positive, got %s", c.Resync.Interval)
	}
	if c.Resync.BatchSize < 1 {
		return fmt.Errorf("RESYNC_BATCH_SIZE must be at least 1, got %d", c.Resync.BatchSize)
	}

	return nil
}
