// Package config handles configuration for the server component: defaults,
// an optional JSON file, AUTHKEEPER_* environment variables and finally
// command-line flags, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings for the authkeeper server.
//
// An empty DatabaseDSN selects the in-memory credential store.
// LoginRateLimit is in requests per minute per client IP; zero disables the
// limiter.
type Config struct {
	EndpointAddrHTTP            string        `env:"HTTP_ADDR"`
	EndpointAddrGRPC            string        `env:"GRPC_ADDR"`
	DatabaseDSN                 string        `env:"DATABASE_DSN"`
	SecretKey                   string        `env:"SECRET_KEY"`
	Issuer                      string        `env:"ISSUER"`
	AccessTokenValidityDuration time.Duration `env:"ACCESS_TOKEN_TTL"`
	HashCost                    int           `env:"HASH_COST"`
	HashConcurrency             int           `env:"HASH_CONCURRENCY"`
	StoreTimeout                time.Duration `env:"STORE_TIMEOUT"`
	LoginRateLimit              int           `env:"LOGIN_RATE_LIMIT"`
	LoginRateBurst              int           `env:"LOGIN_RATE_BURST"`
}

// LoadDefaults populates Config with development defaults. The secret key
// has no default and must come from the JSON file, AUTHKEEPER_SECRET_KEY or -s.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.Issuer = "authkeeper"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.HashCost = bcrypt.DefaultCost
	c.HashConcurrency = 4
	c.StoreTimeout = 3 * time.Second
	c.LoginRateLimit = 30
	c.LoginRateBurst = 10
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key must not be empty"))
	}
	if c.HashCost < bcrypt.MinCost || c.HashCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("hash cost must be in [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.HashConcurrency <= 0 {
		errs = append(errs, errors.New("hash concurrency must be positive"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token validity must be positive"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}
	if c.LoginRateLimit < 0 || c.LoginRateBurst < 0 {
		errs = append(errs, errors.New("login rate settings must not be negative"))
	}
	// an empty address disables that server, but one must stay enabled
	if c.EndpointAddrHTTP == "" && c.EndpointAddrGRPC == "" {
		errs = append(errs, errors.New("at least one endpoint address is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrorValidation, errors.Join(errs...))
	}
	return nil
}

// LoadConfig builds a Config from defaults, the JSON file named by -c/-config,
// the environment and the flags in args (os.Args[1:] in production).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
