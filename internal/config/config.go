package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	sharedcfg "povertyline/pkg/config"
)

// Config for the povertyline HTTP API.
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database sharedcfg.DatabaseConfig `yaml:"database"`
	Redis    sharedcfg.RedisConfig    `yaml:"redis"`
	Log      struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	JWT      JWTConfig      `yaml:"jwt"`
	StatsAPI StatsAPIConfig `yaml:"stats_api"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// StatsAPIConfig points at the external regional-statistics provider used by
// the admin region sync endpoint.
type StatsAPIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Load builds config from environment variables with development defaults.
// When CONFIG_FILE points at a YAML file it is applied first and the
// environment overrides it.
func Load() *Config {
	cfg := &Config{}

	cfg.HTTP.Addr = ":8080"
	cfg.Database = sharedcfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "povertyline_dev",
		SSLMode:  "disable",
	}
	cfg.Redis.Addr = "localhost:6379"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.JWT.Secret = "jwt_dev_key_change_in_production"
	cfg.JWT.AccessTTL = time.Hour
	cfg.JWT.RefreshTTL = 30 * 24 * time.Hour

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Database.LoadFromEnv("DB")
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.JWT.Secret = getEnv("JWT_SECRET_KEY", cfg.JWT.Secret)
	cfg.JWT.AccessTTL = parseDuration(os.Getenv("JWT_ACCESS_TTL"), cfg.JWT.AccessTTL)
	cfg.JWT.RefreshTTL = parseDuration(os.Getenv("JWT_REFRESH_TTL"), cfg.JWT.RefreshTTL)

	cfg.StatsAPI.BaseURL = getEnv("STATS_API_BASE_URL", cfg.StatsAPI.BaseURL)
	cfg.StatsAPI.APIKey = getEnv("STATS_API_KEY", cfg.StatsAPI.APIKey)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
