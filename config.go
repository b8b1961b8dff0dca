package tenantAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/tenantAuth/password"
	"golang.org/x/crypto/bcrypt"
)

// Config is the complete Engine configuration. Obtain a baseline with
// DefaultConfig and override individual fields.
type Config struct {
	Session      SessionConfig      `yaml:"session"`
	Password     PasswordConfig     `yaml:"password"`
	Security     SecurityConfig     `yaml:"security"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Audit        AuditConfig        `yaml:"audit"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls live session storage and the cookie transport.
type SessionConfig struct {
	RedisPrefix string `yaml:"redis_prefix"`
	// Lifetime is both the Redis TTL and the absolute expiry of a session.
	Lifetime     time.Duration `yaml:"lifetime"`
	CookieName   string        `yaml:"cookie_name"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls bcrypt hashing.
type PasswordConfig struct {
	Cost int `yaml:"cost"`
	// UpgradeOnLogin rehashes a verified password whose stored cost differs
	// from Cost.
	UpgradeOnLogin bool `yaml:"upgrade_on_login"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login throttling.
type SecurityConfig struct {
	EnableLoginThrottle   bool          `yaml:"enable_login_throttle"`
	MaxLoginAttempts      int           `yaml:"max_login_attempts"`
	LoginCooldownDuration time.Duration `yaml:"login_cooldown_duration"`
	EnableIPThrottle      bool          `yaml:"enable_ip_throttle"`
}

/*
====================================
PROVISIONING CONFIG
====================================
*/

// ProvisioningConfig controls account provisioning.
type ProvisioningConfig struct {
	// MaxUsernameAttempts bounds retries when a concurrent writer claims the
	// generated username first.
	MaxUsernameAttempts int `yaml:"max_username_attempts"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production baseline.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:  "tas",
			Lifetime:     30 * time.Minute,
			CookieName:   "JSESSIONID",
			CookieSecure: true,
		},
		Password: PasswordConfig{
			Cost:           password.DefaultCost,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableIPThrottle:      false,
		},
		Provisioning: ProvisioningConfig{
			MaxUsernameAttempts: 5,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "tenantauth",
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks every section and returns the first violation.
func (c *Config) Validate() error {
	// Session
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.CookieName == "" {
		return errors.New("Session CookieName must not be empty")
	}

	// Password
	if c.Password.Cost < bcrypt.MinCost || c.Password.Cost > bcrypt.MaxCost {
		return errors.New("Password Cost must be between 4 and 31")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}

	// Provisioning
	if c.Provisioning.MaxUsernameAttempts <= 0 {
		return errors.New("Provisioning MaxUsernameAttempts must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.New("Metrics Namespace must not be empty when metrics are enabled")
	}

	return nil
}
