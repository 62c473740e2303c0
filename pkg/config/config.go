package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Server  ServerConfig
	Redis   RedisConfig
	Data    DataConfig
	Pricing PricingConfig
	OTEL    OTELConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env      string
	LogLevel string
	Timezone string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Password        string
	DB              int
	CacheTTLSeconds int
	RefreshChannel  string
}

// DataConfig describes where the menu, canteen, rate and combination documents live
type DataConfig struct {
	Source         string // "file" or "s3"
	Dir            string
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3Endpoint     string
	ReloadInterval time.Duration
}

// PricingConfig holds the rate table business rules
type PricingConfig struct {
	ScholarshipCutover string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

var defaults = map[string]any{
	"APP_ENV":               "development",
	"LOG_LEVEL":             "info",
	"TIMEZONE":              "Europe/Rome",
	"SERVER_HOST":           "0.0.0.0",
	"SERVER_PORT":           8080,
	"REDIS_ENABLED":         false,
	"REDIS_HOST":            "localhost",
	"REDIS_PORT":            6379,
	"REDIS_PASSWORD":        "",
	"REDIS_DB":              0,
	"CACHE_TTL_SECONDS":     300,
	"REDIS_REFRESH_CHANNEL": "canteen:data:refreshed",
	"DATA_SOURCE":           "file",
	"DATA_DIR":              "data",
	"S3_BUCKET":             "",
	"S3_PREFIX":             "",
	"S3_REGION":             "auto",
	"S3_ENDPOINT":           "",
	"RELOAD_INTERVAL":       "0s",
	"SCHOLARSHIP_CUTOVER":   "2026-09-01",
	"OTEL_SERVICE_NAME":     "mensabot",
	"OTEL_SERVICE_VERSION":  "1.0.0",
	"OTEL_ENDPOINT":         "",
	"OTEL_ENABLED":          false,
}

// Load loads configuration from environment variables and, when path is
// not empty, from a YAML file whose keys use the same names.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
			Timezone: v.GetString("TIMEZONE"),
		},
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Redis: RedisConfig{
			Enabled:         v.GetBool("REDIS_ENABLED"),
			Host:            v.GetString("REDIS_HOST"),
			Port:            v.GetInt("REDIS_PORT"),
			Password:        v.GetString("REDIS_PASSWORD"),
			DB:              v.GetInt("REDIS_DB"),
			CacheTTLSeconds: v.GetInt("CACHE_TTL_SECONDS"),
			RefreshChannel:  v.GetString("REDIS_REFRESH_CHANNEL"),
		},
		Data: DataConfig{
			Source:         strings.ToLower(v.GetString("DATA_SOURCE")),
			Dir:            v.GetString("DATA_DIR"),
			S3Bucket:       v.GetString("S3_BUCKET"),
			S3Prefix:       v.GetString("S3_PREFIX"),
			S3Region:       v.GetString("S3_REGION"),
			S3Endpoint:     v.GetString("S3_ENDPOINT"),
			ReloadInterval: v.GetDuration("RELOAD_INTERVAL"),
		},
		Pricing: PricingConfig{
			ScholarshipCutover: v.GetString("SCHOLARSHIP_CUTOVER"),
		},
		OTEL: OTELConfig{
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			ServiceVersion: v.GetString("OTEL_SERVICE_VERSION"),
			Endpoint:       v.GetString("OTEL_ENDPOINT"),
			Enabled:        v.GetBool("OTEL_ENABLED"),
		},
	}

	if cfg.Data.Source != "file" && cfg.Data.Source != "s3" {
		return nil, fmt.Errorf("unsupported DATA_SOURCE %q", cfg.Data.Source)
	}
	if cfg.Data.Source == "s3" && cfg.Data.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when DATA_SOURCE=s3")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if _, err := cfg.Pricing.Cutover(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location returns the deployment's local calendar time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

// Cutover parses the scholarship cutover date (YYYY-MM-DD)
func (p *PricingConfig) Cutover() (time.Time, error) {
	t, err := time.Parse(time.DateOnly, p.ScholarshipCutover)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid SCHOLARSHIP_CUTOVER %q: %w", p.ScholarshipCutover, err)
	}
	return t, nil
}

// ServerAddr returns the HTTP listen address
func (c *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
