package config

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validate checks cfg against the struct tags on Config.
func Validate(cfg *Config) error {
	v := validator.New()

	// durations must be strictly positive
	_ = v.RegisterValidation("duration_gt0", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(time.Duration)
		return ok && d > 0
	})

	return v.Struct(cfg)
}

// CheckSecrets rejects the built-in signing secret and basic-auth password
// unless the server runs at debug log level.
func (c *Config) CheckSecrets() error {
	if c.LogLevel == "debug" {
		return nil
	}
	var errs []error
	if c.SecretKey == DefaultSecretKey {
		errs = append(errs, errors.New("jwt secret key is the built-in default; set GOPHAUTH_JWT_SECRET_KEY"))
	}
	if c.BasicAuthPassword == DefaultBasicAuthPassword {
		errs = append(errs, errors.New("basic auth password is the built-in default; set GOPHAUTH_AUTH_BASIC_PASSWORD"))
	}
	return errors.Join(errs...)
}
