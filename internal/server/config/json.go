package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// jsonConfig is the on-disk shape of the configuration file. Durations accept
// both "15m" strings and integer nanoseconds. Absent keys leave the current
// value untouched.
type jsonConfig struct {
	HTTPAddr    *string `json:"http_addr"`
	GRPCAddr    *string `json:"grpc_addr"`
	StoreDriver *string `json:"store_driver"`
	DatabaseDSN *string `json:"database_dsn"`

	SecretKey                          *string         `json:"secret_key"`
	AccessTokenValidityDuration        *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration       *timex.Duration `json:"refresh_token_validity_duration"`
	VerifyAccountTokenValidityDuration *timex.Duration `json:"verify_account_token_validity_duration"`
	ResetPasswordTokenValidityDuration *timex.Duration `json:"reset_password_token_validity_duration"`

	BasicAuthUsername *string `json:"auth_basic_username"`
	BasicAuthPassword *string `json:"auth_basic_password"`

	RedisAddr     *string         `json:"redis_addr"`
	RedisPassword *string         `json:"redis_password"`
	RedisDB       *int            `json:"redis_db"`
	UserCacheTTL  *timex.Duration `json:"user_cache_ttl"`

	LogLevel      *string `json:"log_level"`
	FrontendURL   *string `json:"frontend_url"`
	SecureCookies *bool   `json:"secure_cookies"`
}

func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var c jsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}

	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setString(&cfg.GRPCAddr, c.GRPCAddr)
	setString(&cfg.StoreDriver, c.StoreDriver)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.SecretKey, c.SecretKey)
	setDuration(&cfg.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&cfg.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&cfg.VerifyAccountTokenValidityDuration, c.VerifyAccountTokenValidityDuration)
	setDuration(&cfg.ResetPasswordTokenValidityDuration, c.ResetPasswordTokenValidityDuration)
	setString(&cfg.BasicAuthUsername, c.BasicAuthUsername)
	setString(&cfg.BasicAuthPassword, c.BasicAuthPassword)
	setString(&cfg.RedisAddr, c.RedisAddr)
	setString(&cfg.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		cfg.RedisDB = *c.RedisDB
	}
	setDuration(&cfg.UserCacheTTL, c.UserCacheTTL)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.FrontendURL, c.FrontendURL)
	if c.SecureCookies != nil {
		cfg.SecureCookies = *c.SecureCookies
	}

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
