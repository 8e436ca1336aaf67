// Package config loads and validates runtime configuration at startup.
// Sources in order of precedence: YAML overlay, process environment, .env file, defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"billister-api/pkg/appenv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const minJWTSecretLength = 32

// Config holds all runtime configuration for the API.
type Config struct {
	Env            appenv.Env
	Port           string
	DatabaseURL    string
	TrustedProxies []string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration

	LogFormat string // "json" or "text"
	LogLevel  string

	AllowedOrigins   []string
	AllowCredentials bool

	RateLimitEnabled   bool
	RateLimitRPS       float64
	RateLimitBurst     int
	RateLimitWhitelist []string

	RedisURL       string
	CatalogTTL     time.Duration
	AMQPURL        string
	AMQPExchange   string
	OpenAIKey      string
	OpenAIModel    string
	PlateLookupURL string

	SchedulerEnabled bool
	SchedulerSpec    string
	ViewRetention    time.Duration
	EventRetention   time.Duration
}

// fileConfig is the optional YAML overlay. Only non-zero fields override.
type fileConfig struct {
	Port           string   `yaml:"port"`
	TrustedProxies []string `yaml:"trusted_proxies"`
	JWT            struct {
		Issuer   string `yaml:"issuer"`
		Audience string `yaml:"audience"`
		TTLHours int    `yaml:"ttl_hours"`
	} `yaml:"jwt"`
	Log struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
	} `yaml:"log"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Catalog struct {
		TTLMinutes int `yaml:"ttl_minutes"`
	} `yaml:"catalog"`
	AMQP struct {
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
	OpenAI struct {
		Model string `yaml:"model"`
	} `yaml:"openai"`
	Scheduler struct {
		Enabled            *bool  `yaml:"enabled"`
		Spec               string `yaml:"spec"`
		ViewRetentionDays  int    `yaml:"view_retention_days"`
		EventRetentionDays int    `yaml:"event_retention_days"`
	} `yaml:"scheduler"`
}

// Load reads .env (if present), the environment and the YAML overlay, and
// returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = "config/billister.yaml"
	}
	if err := cfg.overlayFile(path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Env:                appenv.Current(),
		Port:               envOr("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          envOr("JWT_ISSUER", "Billister"),
		JWTAudience:        envOr("JWT_AUDIENCE", "Billister.Mobile"),
		LogFormat:          strings.ToLower(os.Getenv("LOG_FORMAT")),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		RateLimitWhitelist: splitList(os.Getenv("RATE_LIMIT_WHITELIST")),
		RedisURL:           os.Getenv("REDIS_URL"),
		AMQPURL:            os.Getenv("AMQP_URL"),
		AMQPExchange:       envOr("AMQP_EXCHANGE", "billister.events"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        envOr("OPENAI_MODEL", "gpt-4o-mini"),
		PlateLookupURL:     os.Getenv("PLATE_LOOKUP_URL"),
		SchedulerSpec:      envOr("SCHEDULER_SPEC", "@every 6h"),
	}

	ttlHours, err := envInt("JWT_TTL_HOURS", 14*24)
	if err != nil {
		return nil, err
	}
	cfg.JWTTTL = time.Duration(ttlHours) * time.Hour

	catalogMinutes, err := envInt("CATALOG_CACHE_TTL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	cfg.CatalogTTL = time.Duration(catalogMinutes) * time.Minute

	viewDays, err := envInt("SCHEDULER_VIEW_RETENTION_DAYS", 90)
	if err != nil {
		return nil, err
	}
	cfg.ViewRetention = days(viewDays)

	eventDays, err := envInt("SCHEDULER_EVENT_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	cfg.EventRetention = days(eventDays)

	if cfg.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}
	cfg.RateLimitRPS = 5
	if s := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("RATE_LIMIT_RPS must be a positive number, got %q", s)
		}
		cfg.RateLimitRPS = v
	}

	if cfg.SchedulerEnabled, err = envBool("SCHEDULER_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.AllowCredentials, err = envBool("ALLOW_CREDENTIALS", false); err != nil {
		return nil, err
	}
	if cfg.RateLimitEnabled, err = envBool("RATE_LIMIT_ENABLED", cfg.Env != appenv.Test); err != nil {
		return nil, err
	}

	if cfg.LogFormat == "" {
		if cfg.Env == appenv.Production {
			cfg.LogFormat = "json"
		} else {
			cfg.LogFormat = "text"
		}
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	c.apply(fc)
	return nil
}

func (c *Config) apply(fc fileConfig) {
	if fc.Port != "" {
		c.Port = fc.Port
	}
	if len(fc.TrustedProxies) > 0 {
		c.TrustedProxies = fc.TrustedProxies
	}
	if fc.JWT.Issuer != "" {
		c.JWTIssuer = fc.JWT.Issuer
	}
	if fc.JWT.Audience != "" {
		c.JWTAudience = fc.JWT.Audience
	}
	if fc.JWT.TTLHours > 0 {
		c.JWTTTL = time.Duration(fc.JWT.TTLHours) * time.Hour
	}
	if fc.Log.Format != "" {
		c.LogFormat = strings.ToLower(fc.Log.Format)
	}
	if fc.Log.Level != "" {
		c.LogLevel = fc.Log.Level
	}
	if len(fc.CORS.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.CORS.AllowedOrigins
	}
	if fc.RateLimit.RPS > 0 {
		c.RateLimitRPS = fc.RateLimit.RPS
	}
	if fc.RateLimit.Burst > 0 {
		c.RateLimitBurst = fc.RateLimit.Burst
	}
	if fc.Catalog.TTLMinutes > 0 {
		c.CatalogTTL = time.Duration(fc.Catalog.TTLMinutes) * time.Minute
	}
	if fc.AMQP.Exchange != "" {
		c.AMQPExchange = fc.AMQP.Exchange
	}
	if fc.OpenAI.Model != "" {
		c.OpenAIModel = fc.OpenAI.Model
	}
	if fc.Scheduler.Enabled != nil {
		c.SchedulerEnabled = *fc.Scheduler.Enabled
	}
	if fc.Scheduler.Spec != "" {
		c.SchedulerSpec = fc.Scheduler.Spec
	}
	if fc.Scheduler.ViewRetentionDays > 0 {
		c.ViewRetention = days(fc.Scheduler.ViewRetentionDays)
	}
	if fc.Scheduler.EventRetentionDays > 0 {
		c.EventRetention = days(fc.Scheduler.EventRetentionDays)
	}
}

// Validate fails fast on settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be set and at least %d characters", minJWTSecretLength)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, s)
	}
	return v, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
