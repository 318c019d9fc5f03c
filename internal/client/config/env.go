package config

import "github.com/caarlos0/env/v11"

const envPrefix = "AUTHKEEPER_CLI_"

func parseEnv(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix})
}
