package config

import (
	"fmt"
	"github.com/caarlos0/env/v11"
	"time"
)

const (
	StorageMongoDB = "mongodb"
	StorageMemory  = "memory"
)

type Config struct {
	Port        uint16 `env:"PORT" envDefault:"10006"`
	MetricsPort uint16 `env:"METRICS_PORT" envDefault:"8081"`

	Development bool   `env:"DEVELOPMENT" envDefault:"false"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage selects the repository backend, either "mongodb" or "memory".
	Storage string `env:"STORAGE" envDefault:"mongodb"`

	// TTL is the freshness window shared by every liveness check.
	TTL time.Duration `env:"TTL" envDefault:"10s"`

	MongoDB  *MongoDBConfig  `envPrefix:"MONGODB_"`
	RabbitMQ *RabbitMQConfig `envPrefix:"RABBITMQ_"`
}

type MongoDBConfig struct {
	URI string `env:"URI" envDefault:"mongodb://localhost:27017"`
}

type RabbitMQConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     uint16 `env:"PORT" envDefault:"5672"`
	Username string `env:"USERNAME" envDefault:"guest"`
	Password string `env:"PASSWORD" envDefault:"guest"`
}

// LoadGlobalConfig reads the configuration from the environment.
func LoadGlobalConfig() (*Config, error) {
	cfg := &Config{
		MongoDB:  &MongoDBConfig{},
		RabbitMQ: &RabbitMQConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("TTL must be positive, got %s", c.TTL)
	}

	switch c.Storage {
	case StorageMongoDB, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	return nil
}

// URL returns the AMQP connection url.
func (c *RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d", c.Username, c.Password, c.Host, c.Port)
}
