package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	Slack      SlackConfig
	Cable      CableConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	// PublicURL is the externally visible base URL, used in set-password
	// links sent to new users.
	PublicURL string
	// RateLimit is the per-company request rate; Burst its bucket size.
	RateLimit float64
	Burst     int
}

// SlackConfig holds Slack notification settings. Notifications fall back to
// the log when BotToken is empty.
type SlackConfig struct {
	BotToken string
}

// CableConfig holds live channel settings.
type CableConfig struct {
	PingInterval time.Duration
	// ContentTTL is how long rendered widget content stays cached.
	ContentTTL time.Duration
	// RedrawRate bounds redraw requests per connection per second.
	RedrawRate  float64
	RedrawBurst int
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("WIDGETBOARD_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("WIDGETBOARD_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("WIDGETBOARD_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("WIDGETBOARD_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("WIDGETBOARD_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("WIDGETBOARD_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("WIDGETBOARD_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateLimit, err := getEnvFloat("WIDGETBOARD_RATE_LIMIT", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("WIDGETBOARD_RATE_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	pingInterval, err := getEnvDuration("WIDGETBOARD_CABLE_PING_INTERVAL", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	contentTTL, err := getEnvDuration("WIDGETBOARD_CABLE_CONTENT_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redrawRate, err := getEnvFloat("WIDGETBOARD_CABLE_REDRAW_RATE", 2)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redrawBurst, err := getEnvInt("WIDGETBOARD_CABLE_REDRAW_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("WIDGETBOARD_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("WIDGETBOARD_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("WIDGETBOARD_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("WIDGETBOARD_DB_USER", "widgetboard"),
			Password: getEnv("WIDGETBOARD_DB_PASSWORD", ""),
			DBName:   getEnv("WIDGETBOARD_DB_NAME", "widgetboard_dev"),
			SSLMode:  getEnv("WIDGETBOARD_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("WIDGETBOARD_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("WIDGETBOARD_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("WIDGETBOARD_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("WIDGETBOARD_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
			PublicURL:    getEnv("WIDGETBOARD_PUBLIC_URL", "http://localhost:8080"),
			RateLimit:    rateLimit,
			Burst:        rateBurst,
		},
		Slack: SlackConfig{
			BotToken: getEnv("WIDGETBOARD_SLACK_BOT_TOKEN", ""),
		},
		Cable: CableConfig{
			PingInterval: pingInterval,
			ContentTTL:   contentTTL,
			RedrawRate:   redrawRate,
			RedrawBurst:  redrawBurst,
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("WIDGETBOARD_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("WIDGETBOARD_JWT_SECRET must be at least 32 characters")
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("WIDGETBOARD_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("WIDGETBOARD_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("WIDGETBOARD_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("WIDGETBOARD_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("WIDGETBOARD_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("WIDGETBOARD_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("WIDGETBOARD_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if _, err := url.Parse(c.Server.PublicURL); err != nil || !strings.HasPrefix(c.Server.PublicURL, "http") {
		return fmt.Errorf("WIDGETBOARD_PUBLIC_URL must be an http(s) URL, got %q", c.Server.PublicURL)
	}
	if c.Server.RateLimit <= 0 || c.Server.Burst < 1 {
		return fmt.Errorf("WIDGETBOARD_RATE_LIMIT must be positive and WIDGETBOARD_RATE_BURST >= 1, got %g/%d", c.Server.RateLimit, c.Server.Burst)
	}
	if c.Cable.PingInterval <= 0 {
		return fmt.Errorf("WIDGETBOARD_CABLE_PING_INTERVAL must be positive, got %s", c.Cable.PingInterval)
	}
	if c.Cable.ContentTTL < 0 {
		return fmt.Errorf("WIDGETBOARD_CABLE_CONTENT_TTL must not be negative, got %s", c.Cable.ContentTTL)
	}
	if c.Cable.RedrawRate <= 0 || c.Cable.RedrawBurst < 1 {
		return fmt.Errorf("WIDGETBOARD_CABLE_REDRAW_RATE must be positive and WIDGETBOARD_CABLE_REDRAW_BURST >= 1, got %g/%d", c.Cable.RedrawRate, c.Cable.RedrawBurst)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
