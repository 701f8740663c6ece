package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32ch"

func TestEnvHelpers(t *testing.T) {
	t.Run("getEnv", func(t *testing.T) {
		t.Setenv("WIDGETBOARD_TEST_STR", "custom")
		t.Setenv("WIDGETBOARD_TEST_STR_EMPTY", "")
		assert.Equal(t, "custom", getEnv("WIDGETBOARD_TEST_STR", "x"))
		assert.Equal(t, "x", getEnv("WIDGETBOARD_TEST_STR_EMPTY", "x"))
		assert.Equal(t, "x", getEnv("WIDGETBOARD_TEST_STR_UNSET", "x"))
	})

	t.Run("getEnvInt", func(t *testing.T) {
		t.Setenv("WIDGETBOARD_TEST_INT", "8080")
		t.Setenv("WIDGETBOARD_TEST_INT_BAD", "3.14")
		n, err := getEnvInt("WIDGETBOARD_TEST_INT", 0)
		require.NoError(t, err)
		assert.Equal(t, 8080, n)
		_, err = getEnvInt("WIDGETBOARD_TEST_INT_BAD", 0)
		assert.ErrorContains(t, err, "WIDGETBOARD_TEST_INT_BAD")
	})

	t.Run("getEnvFloat", func(t *testing.T) {
		t.Setenv("WIDGETBOARD_TEST_FLOAT", "0.5")
		t.Setenv("WIDGETBOARD_TEST_FLOAT_BAD", "half")
		f, err := getEnvFloat("WIDGETBOARD_TEST_FLOAT", 1)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, f, 1e-9)
		f, err = getEnvFloat("WIDGETBOARD_TEST_FLOAT_UNSET", 2)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, f, 1e-9)
		_, err = getEnvFloat("WIDGETBOARD_TEST_FLOAT_BAD", 0)
		assert.ErrorContains(t, err, "WIDGETBOARD_TEST_FLOAT_BAD")
	})

	t.Run("getEnvBool", func(t *testing.T) {
		t.Setenv("WIDGETBOARD_TEST_BOOL", "TRUE")
		t.Setenv("WIDGETBOARD_TEST_BOOL_BAD", "yes")
		b, err := getEnvBool("WIDGETBOARD_TEST_BOOL", false)
		require.NoError(t, err)
		assert.True(t, b)
		_, err = getEnvBool("WIDGETBOARD_TEST_BOOL_BAD", false)
		assert.ErrorContains(t, err, "WIDGETBOARD_TEST_BOOL_BAD")
	})

	t.Run("getEnvDuration", func(t *testing.T) {
		t.Setenv("WIDGETBOARD_TEST_DUR", "1h30m")
		t.Setenv("WIDGETBOARD_TEST_DUR_BARE", "30")
		d, err := getEnvDuration("WIDGETBOARD_TEST_DUR", 0)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Minute, d)
		_, err = getEnvDuration("WIDGETBOARD_TEST_DUR_BARE", 0)
		assert.ErrorContains(t, err, "WIDGETBOARD_TEST_DUR_BARE")
	})

	t.Run("getEnvList", func(t *testing.T) {
		t.Setenv("WIDGETBOARD_TEST_LIST", " https://a.example , ,https://b.example")
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvList("WIDGETBOARD_TEST_LIST", nil))
		assert.Equal(t, []string{"d"}, getEnvList("WIDGETBOARD_TEST_LIST_UNSET", []string{"d"}))
	})
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "WIDGETBOARD_JWT_SECRET")
}

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		key string
		val string
	}{
		{"WIDGETBOARD_DB_PORT", "abc"},
		{"WIDGETBOARD_DB_PORT", "0"},
		{"WIDGETBOARD_DB_PORT", "65536"},
		{"WIDGETBOARD_DB_MAX_CONNS", "0"},
		{"WIDGETBOARD_REDIS_DB", "abc"},
		{"WIDGETBOARD_JWT_ACCESS_TTL", "0s"},
		{"WIDGETBOARD_JWT_REFRESH_TTL", "-1h"},
		{"WIDGETBOARD_SERVER_READ_TIMEOUT", "soon"},
		{"WIDGETBOARD_SERVER_WRITE_TIMEOUT", "0s"},
		{"WIDGETBOARD_PUBLIC_URL", "board.example.com"},
		{"WIDGETBOARD_RATE_LIMIT", "0"},
		{"WIDGETBOARD_RATE_BURST", "0"},
		{"WIDGETBOARD_CABLE_PING_INTERVAL", "0s"},
		{"WIDGETBOARD_CABLE_CONTENT_TTL", "-1s"},
		{"WIDGETBOARD_CABLE_REDRAW_RATE", "fast"},
		{"WIDGETBOARD_CABLE_REDRAW_BURST", "0"},
		{"WIDGETBOARD_SELF_HOSTED", "yes"},
	}

	for _, tc := range tests {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			t.Setenv("WIDGETBOARD_JWT_SECRET", testSecret)
			t.Setenv(tc.key, tc.val)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WIDGETBOARD_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "widgetboard", cfg.Database.User)
	assert.Equal(t, "widgetboard_dev", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxConns)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicURL)
	assert.InDelta(t, 100.0, cfg.Server.RateLimit, 1e-9)
	assert.Equal(t, 200, cfg.Server.Burst)

	assert.Empty(t, cfg.Slack.BotToken)

	assert.Equal(t, 3*time.Second, cfg.Cable.PingInterval)
	assert.Equal(t, 5*time.Minute, cfg.Cable.ContentTTL)
	assert.InDelta(t, 2.0, cfg.Cable.RedrawRate, 1e-9)
	assert.Equal(t, 10, cfg.Cable.RedrawBurst)

	assert.False(t, cfg.SelfHosted)
}

func TestLoad_CustomValues(t *testing.T) {
	envs := map[string]string{
		"WIDGETBOARD_JWT_SECRET":          testSecret,
		"WIDGETBOARD_DB_HOST":             "db.prod.internal",
		"WIDGETBOARD_DB_SSLMODE":          "require",
		"WIDGETBOARD_REDIS_ADDR":          "redis.prod:6380",
		"WIDGETBOARD_REDIS_DB":            "3",
		"WIDGETBOARD_SERVER_ADDR":         ":9090",
		"WIDGETBOARD_CORS_ORIGINS":        "https://board.example.com",
		"WIDGETBOARD_PUBLIC_URL":          "https://board.example.com",
		"WIDGETBOARD_SLACK_BOT_TOKEN":     "xoxb-test",
		"WIDGETBOARD_CABLE_PING_INTERVAL": "10s",
		"WIDGETBOARD_CABLE_CONTENT_TTL":   "0s",
		"WIDGETBOARD_CABLE_REDRAW_RATE":   "0.5",
		"WIDGETBOARD_SELF_HOSTED":         "true",
	}
	for k, v := range envs {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.prod.internal", cfg.Database.Host)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, "redis.prod:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://board.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://board.example.com", cfg.Server.PublicURL)
	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)
	assert.Equal(t, 10*time.Second, cfg.Cable.PingInterval)
	assert.Zero(t, cfg.Cable.ContentTTL)
	assert.InDelta(t, 0.5, cfg.Cable.RedrawRate, 1e-9)
	assert.True(t, cfg.SelfHosted)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "wb", Password: "p=a&b", DBName: "widgetboard", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=wb password=p=a&b dbname=widgetboard sslmode=require", cfg.DSN())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Port: 5432, MaxConns: 25},
			JWT:      JWTConfig{Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour},
			Server: ServerConfig{
				ReadTimeout:  time.Second,
				WriteTimeout: time.Second,
				PublicURL:    "http://localhost:8080",
				RateLimit:    1,
				Burst:        1,
			},
			Cable: CableConfig{PingInterval: time.Second, RedrawRate: 1, RedrawBurst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"secret exactly 32 chars", func(c *Config) { c.JWT.Secret = "exactly-32-characters-long-sec!!" }, ""},
		{"secret too short", func(c *Config) { c.JWT.Secret = "short" }, "WIDGETBOARD_JWT_SECRET"},
		{"max conns zero", func(c *Config) { c.Database.MaxConns = 0 }, "WIDGETBOARD_DB_MAX_CONNS"},
		{"public url without scheme", func(c *Config) { c.Server.PublicURL = "localhost" }, "WIDGETBOARD_PUBLIC_URL"},
		{"ping interval zero", func(c *Config) { c.Cable.PingInterval = 0 }, "WIDGETBOARD_CABLE_PING_INTERVAL"},
		{"content ttl zero disables cache", func(c *Config) { c.Cable.ContentTTL = 0 }, ""},
		{"redraw burst zero", func(c *Config) { c.Cable.RedrawBurst = 0 }, "WIDGETBOARD_CABLE_REDRAW"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := valid()
			tc.mutate(c)
			err := c.validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
