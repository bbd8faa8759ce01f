package config

import "github.com/caarlos0/env/v11"

// EnvPrefix prefixes every environment variable read by the server.
const EnvPrefix = "CIVIC_"

func parseEnv(cfg *Config) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
