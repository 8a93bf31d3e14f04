package infra

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"empire_bot/internal/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	DefaultOrigin          = "csgoempire.com"
	DefaultSelfLockHours   = 24
	DefaultStaggerSec      = 5
	DefaultNotifyQueueSize = 256
	DefaultStoragePath     = "data/empire.db"
	DefaultLogDir          = "logs"
)

// Config holds every setting of the bot.
// Secrets can be overridden from the environment after the file is parsed.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Accounts []domain.Account `yaml:"accounts"`

	Startup struct {
		StaggerSec int `yaml:"stagger_sec"`
	} `yaml:"startup"`

	Notify NotifyConfig `yaml:"notify"`

	Storage struct {
		Driver string `yaml:"driver"` // sqlite (default) or postgres
		Path   string `yaml:"path"`   // sqlite file
		DSN    string `yaml:"dsn"`    // postgres connection string
	} `yaml:"storage"`

	Status struct {
		Addr string `yaml:"addr"` // empty disables the status server
	} `yaml:"status"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// NotifyConfig selects which notification categories are delivered and where.
type NotifyConfig struct {
	WebhookURL   string          `yaml:"webhook_url"`
	Username     string          `yaml:"username"`
	RedisURL     string          `yaml:"redis_url"`
	RedisChannel string          `yaml:"redis_channel"`
	Categories   map[string]bool `yaml:"categories"` // missing categories are enabled
	QueueSize    int             `yaml:"queue_size"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and environment overrides, then validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Startup.StaggerSec <= 0 {
		c.Startup.StaggerSec = DefaultStaggerSec
	}
	if c.Notify.QueueSize <= 0 {
		c.Notify.QueueSize = DefaultNotifyQueueSize
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = DefaultLogDir
	}

	for i := range c.Accounts {
		acc := &c.Accounts[i]
		if acc.Origin == "" {
			acc.Origin = DefaultOrigin
		}
		if acc.UserAgent == "" {
			acc.UserAgent = DefaultUserAgent
		}
		if acc.SelfLock.PeriodHours == 0 {
			acc.SelfLock.PeriodHours = DefaultSelfLockHours
		}
		if acc.DeviceUUID == "" {
			acc.DeviceUUID = uuid.NewString()
		}
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return &domain.ConfigError{Field: "accounts", Err: errors.New("at least one account is required")}
	}

	seen := make(map[domain.UserID]bool, len(c.Accounts))
	for i := range c.Accounts {
		acc := &c.Accounts[i]
		field := func(name string) string { return fmt.Sprintf("accounts[%d].%s", i, name) }

		if acc.UserID <= 0 {
			return &domain.ConfigError{Field: field("user_id"), Err: errors.New("must be positive")}
		}
		if seen[acc.UserID] {
			return &domain.ConfigError{Field: field("user_id"), Err: fmt.Errorf("duplicate account %s", acc.UserID)}
		}
		seen[acc.UserID] = true

		if acc.PHPSessID == "" {
			return &domain.ConfigError{Field: field("phpsessid"), Err: errors.New("missing value")}
		}
		if acc.Remember == "" {
			return &domain.ConfigError{Field: field("remember_token"), Err: errors.New("missing value")}
		}
		if strings.Contains(acc.Origin, "/") {
			return &domain.ConfigError{Field: field("origin"), Err: fmt.Errorf("expected a host name, got %q", acc.Origin)}
		}
		if acc.DelistThreshold.IsNegative() {
			return &domain.ConfigError{Field: field("delist_threshold"), Err: errors.New("must not be negative")}
		}
		if acc.SelfLock.Enabled && acc.SelfLock.PeriodHours < 0 {
			return &domain.ConfigError{Field: field("self_lock.period_hours"), Err: errors.New("must be positive")}
		}
		if acc.HasNativeSteam() && (acc.Steam.SessionID == "" || acc.Steam.LoginSecure == "") {
			return &domain.ConfigError{Field: field("steam"), Err: errors.New("session_id and login_secure are required with account_name")}
		}
	}

	if c.Notify.WebhookURL != "" {
		u, err := url.Parse(c.Notify.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return &domain.ConfigError{Field: "notify.webhook_url", Err: fmt.Errorf("invalid URL: %s", c.Notify.WebhookURL)}
		}
	}
	if c.Notify.RedisURL != "" {
		u, err := url.Parse(c.Notify.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return &domain.ConfigError{Field: "notify.redis_url", Err: fmt.Errorf("invalid URL: %s", c.Notify.RedisURL)}
		}
	}

	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return &domain.ConfigError{Field: "storage.dsn", Err: errors.New("required for the postgres driver")}
		}
	default:
		return &domain.ConfigError{Field: "storage.driver", Err: fmt.Errorf("unsupported driver %q", c.Storage.Driver)}
	}

	return nil
}

// overrideWithEnv replaces secrets with environment values when present.
// Per-account variables are keyed by user id, e.g. EMPIRE_1234_PHPSESSID.
func overrideWithEnv(cfg *Config) {
	for i := range cfg.Accounts {
		acc := &cfg.Accounts[i]
		prefix := "EMPIRE_" + acc.UserID.String() + "_"

		if v := os.Getenv(prefix + "PHPSESSID"); v != "" {
			acc.PHPSessID = v
		}
		if v := os.Getenv(prefix + "REMEMBER"); v != "" {
			acc.Remember = v
		}
		if v := os.Getenv(prefix + "SECURITY_CODE"); v != "" {
			acc.SecurityCode = v
		}
		if v := os.Getenv(prefix + "STEAM_LOGIN_SECURE"); v != "" {
			acc.Steam.LoginSecure = v
		}
	}
	if v := os.Getenv("EMPIRE_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("EMPIRE_REDIS_URL"); v != "" {
		cfg.Notify.RedisURL = v
	}
	if v := os.Getenv("EMPIRE_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}
