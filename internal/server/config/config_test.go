package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, DriverPostgres, c.StoreDriver)
	assert.Equal(t, time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, 24*time.Hour, c.VerifyAccountTokenValidityDuration)
	assert.Equal(t, time.Hour, c.ResetPasswordTokenValidityDuration)
	assert.Equal(t, "info", c.LogLevel)
	assert.NoError(t, Validate(&c))
}

func TestLoadConfig_DefaultsOnly(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, 10*time.Minute, cfg.UserCacheTTL)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeJSON(t, `{
		"http_addr": ":9000",
		"grpc_addr": ":9001",
		"store_driver": "sqlite",
		"database_dsn": "file:auth.db",
		"access_token_validity_duration": "30m",
		"refresh_token_validity_duration": 3600000000000,
		"redis_addr": "localhost:6379",
		"secure_cookies": true
	}`)

	t.Setenv("GOPHAUTH_GRPC_ADDR", ":7001")
	t.Setenv("GOPHAUTH_JWT_SECRET_KEY", "env-secret-key")

	cfg, err := LoadConfig([]string{"-c", path, "-a", ":6000", "-t", "5m"})
	require.NoError(t, err)

	// flag beats json
	assert.Equal(t, ":6000", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
	// env beats json
	assert.Equal(t, ":7001", cfg.GRPCAddr)
	assert.Equal(t, "env-secret-key", cfg.SecretKey)
	// json beats defaults
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "file:auth.db", cfg.DatabaseDSN)
	assert.Equal(t, time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.SecureCookies)
	// untouched
	assert.Equal(t, 24*time.Hour, cfg.VerifyAccountTokenValidityDuration)
}

func TestLoadConfig_EnvDuration(t *testing.T) {
	t.Setenv("GOPHAUTH_RESET_PASSWORD_TOKEN_TTL", "90m")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, cfg.ResetPasswordTokenValidityDuration)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing json file", func(t *testing.T) {
		_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "nope.json")})
		assert.ErrorContains(t, err, "json config")
	})

	t.Run("broken json", func(t *testing.T) {
		path := writeJSON(t, `{"http_addr":`)
		_, err := LoadConfig([]string{"-config", path})
		assert.ErrorContains(t, err, "json config")
	})

	t.Run("bad env duration", func(t *testing.T) {
		t.Setenv("GOPHAUTH_ACCESS_TOKEN_TTL", "soon")
		_, err := LoadConfig(nil)
		assert.ErrorContains(t, err, "parse env")
	})

	t.Run("bad flag value", func(t *testing.T) {
		_, err := LoadConfig([]string{"-t", "forever"})
		assert.ErrorContains(t, err, "flags")
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := LoadConfig([]string{"-store", "mysql"})
		assert.ErrorContains(t, err, "validation")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTokenValidityDuration = 0 }, wantErr: true},
		{name: "negative refresh ttl", mutate: func(c *Config) { c.RefreshTokenValidityDuration = -time.Second }, wantErr: true},
		{name: "short secret", mutate: func(c *Config) { c.SecretKey = "abc" }, wantErr: true},
		{name: "empty basic user", mutate: func(c *Config) { c.BasicAuthUsername = "" }, wantErr: true},
		{name: "bad redis addr", mutate: func(c *Config) { c.RedisAddr = "localhost" }, wantErr: true},
		{name: "redis addr", mutate: func(c *Config) { c.RedisAddr = "127.0.0.1:6379" }},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "bad frontend url", mutate: func(c *Config) { c.FrontendURL = "not a url" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := Validate(&c)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckSecrets(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{
			name:    "defaults",
			mutate:  func(*Config) {},
			wantErr: []string{"jwt secret key", "basic auth password"},
		},
		{
			name:    "default secret only",
			mutate:  func(c *Config) { c.BasicAuthPassword = "not-admin" },
			wantErr: []string{"jwt secret key"},
		},
		{
			name:    "default basic password only",
			mutate:  func(c *Config) { c.SecretKey = "a-real-secret-key" },
			wantErr: []string{"basic auth password"},
		},
		{
			name: "overridden",
			mutate: func(c *Config) {
				c.SecretKey = "a-real-secret-key"
				c.BasicAuthPassword = "not-admin"
			},
		},
		{
			name:   "debug allows defaults",
			mutate: func(c *Config) { c.LogLevel = "debug" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := c.CheckSecrets()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.wantErr {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}
