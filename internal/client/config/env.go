package config

import "github.com/caarlos0/env/v11"

// EnvPrefix prefixes every environment variable read by the client.
const EnvPrefix = "CIVIC_"

// parseEnv overlays cfg with CIVIC_* variables. Unset variables leave the
// current value alone. It panics on malformed values.
func parseEnv(cfg *Config) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
