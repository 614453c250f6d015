package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Auth     AuthConfig
	Feeds    FeedConfig
	CORS     CORSConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig toggles Redis backed caching of sessions and public responses.
type CacheConfig struct {
	Enabled    bool
	SessionTTL time.Duration
	PublicTTL  time.Duration
}

// AuthConfig governs admin session issuance.
type AuthConfig struct {
	TokenSecret   string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CookieName    string
	CookieSecure  bool
	SweepInterval time.Duration
}

// FeedConfig tunes RSS ingestion and its scheduler.
type FeedConfig struct {
	SchedulerEnabled bool
	RefreshInterval  time.Duration
	FetchTimeout     time.Duration
	Workers          int
	MaxItemAge       time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		SessionTTL: parseDuration(v.GetString("SESSION_CACHE_TTL"), time.Minute),
		PublicTTL:  parseDuration(v.GetString("PUBLIC_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Auth = AuthConfig{
		TokenSecret:   v.GetString("AUTH_TOKEN_SECRET"),
		Issuer:        v.GetString("AUTH_ISSUER"),
		AccessTTL:     parseDuration(v.GetString("ACCESS_TOKEN_TTL"), 15*time.Minute),
		RefreshTTL:    parseDuration(v.GetString("REFRESH_TOKEN_TTL"), 7*24*time.Hour),
		CookieName:    v.GetString("AUTH_COOKIE_NAME"),
		CookieSecure:  v.GetBool("AUTH_COOKIE_SECURE"),
		SweepInterval: parseDuration(v.GetString("SESSION_SWEEP_INTERVAL"), 10*time.Minute),
	}

	cfg.Feeds = FeedConfig{
		SchedulerEnabled: v.GetBool("ENABLE_FEED_SCHEDULER"),
		RefreshInterval:  parseDuration(v.GetString("FEED_REFRESH_INTERVAL"), 30*time.Minute),
		FetchTimeout:     parseDuration(v.GetString("FEED_FETCH_TIMEOUT"), 20*time.Second),
		Workers:          v.GetInt("FEED_WORKERS"),
		MaxItemAge:       parseDuration(v.GetString("FEED_MAX_ITEM_AGE"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.AccessTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL (%s) must be longer than ACCESS_TOKEN_TTL (%s)", c.Auth.RefreshTTL, c.Auth.AccessTTL)
	}
	if c.Env == EnvProduction && c.Auth.TokenSecret == defaultTokenSecret {
		return fmt.Errorf("AUTH_TOKEN_SECRET must be set in production")
	}
	return nil
}

const defaultTokenSecret = "dev_secret"

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "newsroom")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("SESSION_CACHE_TTL", "1m")
	v.SetDefault("PUBLIC_CACHE_TTL", "2m")

	v.SetDefault("AUTH_TOKEN_SECRET", defaultTokenSecret)
	v.SetDefault("AUTH_ISSUER", "newsroom-api")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("AUTH_COOKIE_NAME", "admin_token")
	v.SetDefault("AUTH_COOKIE_SECURE", false)
	v.SetDefault("SESSION_SWEEP_INTERVAL", "10m")

	v.SetDefault("ENABLE_FEED_SCHEDULER", false)
	v.SetDefault("FEED_REFRESH_INTERVAL", "30m")
	v.SetDefault("FEED_FETCH_TIMEOUT", "20s")
	v.SetDefault("FEED_WORKERS", 2)
	v.SetDefault("FEED_MAX_ITEM_AGE", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
