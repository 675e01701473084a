// Package config loads the txtracker configuration from TXTRACKER_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/types"
	"github.com/gabapcia/txtracker/internal/pkg/validator"
)

const envPrefix = "TXTRACKER"

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageBolt   = "bolt"
)

type RPC struct {
	Endpoint string        `envconfig:"ENDPOINT" validate:"required,url"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"10s" validate:"gt=0"`
	Retries  int           `envconfig:"RETRIES" default:"2" validate:"gte=0"`
}

type Receipts struct {
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"12s" validate:"gt=0"`
	PollMaxDelay time.Duration `envconfig:"POLL_MAX_DELAY" default:"1m" validate:"gt=0"`
}

type Storage struct {
	Driver        string `envconfig:"DRIVER" default:"memory" validate:"oneof=memory redis bolt"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379" validate:"required_if=Driver redis"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	BoltPath      string `envconfig:"BOLT_PATH" default:"txtracker.db" validate:"required_if=Driver bolt"`
}

type Config struct {
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	ServiceName      string `envconfig:"SERVICE_NAME" default:"txtracker" validate:"required"`
	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`

	RPC      RPC      `envconfig:"RPC"`
	Receipts Receipts `envconfig:"RECEIPTS"`
	Storage  Storage  `envconfig:"STORAGE"`

	// Account is the node-managed address transactions are sent from.
	Account string `envconfig:"ACCOUNT" validate:"required,eth_addr"`

	Network   string            `envconfig:"NETWORK" validate:"required"`
	ChainID   types.Hex         `envconfig:"CHAIN_ID" validate:"omitempty,hexadecimal"`
	Contracts map[string]string `envconfig:"CONTRACTS" validate:"dive,keys,required,endkeys,eth_addr"`

	ExplorerURL string        `envconfig:"EXPLORER_URL" validate:"omitempty,url"`
	HideDelay   time.Duration `envconfig:"HIDE_DELAY" default:"5s" validate:"gt=0"`
}

// Load reads and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read configuration: %w", err)
	}

	if err := validator.Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ExecutorConfig returns the serializable execution configuration captured
// with every submitted transaction.
func (c Config) ExecutorConfig() action.ExecutorConfig {
	cfg := action.ExecutorConfig{
		Network:   c.Network,
		ChainID:   c.ChainID,
		Contracts: c.Contracts,
	}
	return cfg.Clone()
}
