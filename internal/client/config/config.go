// Package config loads runtime configuration for the authkeeper CLI.
//
// Sources, each overriding the previous one:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. AUTHKEEPER_CLI_* environment variables.
//  4. Command-line flags.
//
// Supported flags
//
//	-a string     address:port of the gRPC endpoint
//	-db string    path of the local SQLite session cache
//	-i int        online status check interval (seconds)
//	-t duration   per-request timeout
//
// The JSON file uses timex.Duration for intervals, so values may be strings
// like "3s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "authkeeper.db",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s"
//	}
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Config holds runtime settings for the authkeeper CLI.
type Config struct {
	ServerEndpointAddr  string        `env:"SERVER_ADDR"`
	DatabasePath        string        `env:"DATABASE_PATH"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "authkeeper.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
}

func (c *Config) Validate() error {
	var errs []error
	if c.ServerEndpointAddr == "" {
		errs = append(errs, errors.New("server address must not be empty"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database path must not be empty"))
	}
	if c.OnlineCheckInterval <= 0 {
		errs = append(errs, errors.New("online check interval must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrorValidation, errors.Join(errs...))
	}
	return nil
}

// LoadConfig builds a Config from defaults, the JSON file, the environment
// and args, in that order.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
