package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept "1m"
// style strings or integer nanoseconds. Absent or zero fields keep the
// current value.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	Issuer                      string         `json:"issuer"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	HashCost                    int            `json:"hash_cost"`
	HashConcurrency             int            `json:"hash_concurrency"`
	StoreTimeout                timex.Duration `json:"store_timeout"`
	LoginRateLimit              int            `json:"login_rate_limit"`
	LoginRateBurst              int            `json:"login_rate_burst"`
}

// parseJson loads the file named by -c or -config, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&cfg.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.SecretKey, c.SecretKey)
	setString(&cfg.Issuer, c.Issuer)
	setInt(&cfg.HashCost, c.HashCost)
	setInt(&cfg.HashConcurrency, c.HashConcurrency)
	setInt(&cfg.LoginRateLimit, c.LoginRateLimit)
	setInt(&cfg.LoginRateBurst, c.LoginRateBurst)
	if c.AccessTokenValidityDuration.Duration != 0 {
		cfg.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.StoreTimeout.Duration != 0 {
		cfg.StoreTimeout = c.StoreTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
