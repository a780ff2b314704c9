package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every environment variable read by the server,
// e.g. GOPHAUTH_JWT_SECRET_KEY.
const EnvPrefix = "GOPHAUTH_"

// parseEnv overrides fields whose variables are set; unset variables keep
// the values loaded so far.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
