package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration of the tenantauth binary.
type Config struct {
	ListenAddr string            `yaml:"listen_addr"`
	LogLevel   string            `yaml:"log_level"`
	LogFormat  string            `yaml:"log_format"`
	Database   DatabaseConfig    `yaml:"database"`
	Redis      RedisConfig       `yaml:"redis"`
	HTTP       HTTPConfig        `yaml:"http"`
	Auth       tenantAuth.Config `yaml:"auth"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type HTTPConfig struct {
	AllowedOrigins     []string      `yaml:"allowed_origins"`
	LoginRatePerSecond float64       `yaml:"login_rate_per_second"`
	LoginBurst         int           `yaml:"login_burst"`
	ReadHeaderTimeout  time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		LogFormat:  "json",
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "tenantauth.sqlite",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		HTTP: HTTPConfig{
			AllowedOrigins:     []string{"http://localhost:3000"},
			LoginRatePerSecond: 1,
			LoginBurst:         10,
			ReadHeaderTimeout:  5 * time.Second,
			ShutdownTimeout:    10 * time.Second,
		},
		Auth: tenantAuth.DefaultConfig(),
	}
}

// LoadConfig reads path (optional) over the defaults, then applies
// TENANTAUTH_* environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TENANTAUTH_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TENANTAUTH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TENANTAUTH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TENANTAUTH_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TENANTAUTH_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v, ok := os.LookupEnv("TENANTAUTH_REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TENANTAUTH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TENANTAUTH_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TENANTAUTH_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	if v := os.Getenv("TENANTAUTH_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TENANTAUTH_SESSION_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TENANTAUTH_SESSION_LIFETIME: %w", err)
		}
		cfg.Auth.Session.Lifetime = d
	}
	if v := os.Getenv("TENANTAUTH_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TENANTAUTH_COOKIE_SECURE: %w", err)
		}
		cfg.Auth.Session.CookieSecure = b
	}
	if v := os.Getenv("TENANTAUTH_PASSWORD_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TENANTAUTH_PASSWORD_COST: %w", err)
		}
		cfg.Auth.Password.Cost = n
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database dsn must not be empty")
	}
	if c.HTTP.LoginRatePerSecond < 0 {
		return errors.New("http login_rate_per_second must be >= 0")
	}
	if c.HTTP.LoginRatePerSecond > 0 && c.HTTP.LoginBurst <= 0 {
		return errors.New("http login_burst must be > 0 when the login rate limit is enabled")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}
	return c.Auth.Validate()
}

// SlogLevel maps LogLevel to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
