// ABOUTME: Configuration loading and parsing for the coven-chat client
// ABOUTME: TOML or YAML files with ${VAR} expansion, env overrides, and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-chat configuration
type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	User    UserConfig    `toml:"user" yaml:"user"`
	Stream  StreamConfig  `toml:"stream" yaml:"stream"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// ServerConfig locates the chat server
type ServerConfig struct {
	URL        string `toml:"url" yaml:"url" env:"COVEN_CHAT_URL"`
	EventsPath string `toml:"events_path" yaml:"events_path" env:"COVEN_CHAT_EVENTS_PATH"`
}

// UserConfig identifies the local user
type UserConfig struct {
	ID       string `toml:"id" yaml:"id" env:"COVEN_CHAT_USER_ID"`
	Username string `toml:"username" yaml:"username" env:"COVEN_CHAT_USERNAME"`
}

// StreamConfig tunes the event stream and notification handling
type StreamConfig struct {
	FetchTimeout time.Duration `toml:"-" yaml:"-"`
	DedupeTTL    time.Duration `toml:"-" yaml:"-"`

	NotificationQueue int    `toml:"notification_queue" yaml:"notification_queue"`
	ResultField       string `toml:"result_field" yaml:"result_field"`
	DedupeSize        int    `toml:"dedupe_size" yaml:"dedupe_size"`

	// Raw string values for file decoding
	FetchTimeoutRaw string `toml:"fetch_timeout" yaml:"fetch_timeout" env:"COVEN_CHAT_FETCH_TIMEOUT"`
	DedupeTTLRaw    string `toml:"dedupe_ttl" yaml:"dedupe_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" env:"COVEN_CHAT_LOG_LEVEL"`
	Format string `toml:"format" yaml:"format" env:"COVEN_CHAT_LOG_FORMAT"`
}

const (
	DefaultEventsPath        = "/api/events"
	DefaultNotificationQueue = 64
	DefaultResultField       = "users"
	DefaultDedupeTTL         = 5 * time.Minute
	DefaultDedupeSize        = 1024
)

// DefaultPath returns the config file location: $COVEN_CHAT_CONFIG if set,
// else chat.toml under the XDG config directory.
func DefaultPath() string {
	if p := os.Getenv("COVEN_CHAT_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "coven", "chat.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "coven", "chat.toml")
	}
	return filepath.Join(home, ".config", "coven", "chat.toml")
}

// Load reads the configuration file at path, applies environment overrides,
// and validates the result. An empty path skips the file so the config can
// come from the environment alone. Files ending in .yaml or .yml are YAML;
// anything else is TOML.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data))

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal([]byte(expanded), &cfg)
		default:
			_, err = toml.Decode(expanded, &cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with the environment value, or "" when unset.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(re.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Server.EventsPath == "" {
		c.Server.EventsPath = DefaultEventsPath
	}
	if c.User.Username == "" {
		c.User.Username = c.User.ID
	}
	if c.Stream.NotificationQueue == 0 {
		c.Stream.NotificationQueue = DefaultNotificationQueue
	}
	if c.Stream.ResultField == "" {
		c.Stream.ResultField = DefaultResultField
	}
	if c.Stream.DedupeTTLRaw == "" {
		c.Stream.DedupeTTL = DefaultDedupeTTL
	}
	if c.Stream.DedupeSize == 0 {
		c.Stream.DedupeSize = DefaultDedupeSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server.url must include a host")
	}
	if !strings.HasPrefix(c.Server.EventsPath, "/") {
		return fmt.Errorf("server.events_path must start with /")
	}

	if c.User.ID == "" {
		return fmt.Errorf("user.id is required")
	}
	if strings.Contains(c.User.ID, "_") {
		return fmt.Errorf("user.id must not contain '_'")
	}

	if c.Stream.NotificationQueue < 0 {
		return fmt.Errorf("stream.notification_queue must not be negative")
	}
	if c.Stream.DedupeSize < 0 {
		return fmt.Errorf("stream.dedupe_size must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Stream.FetchTimeoutRaw != "" {
		cfg.Stream.FetchTimeout, err = time.ParseDuration(cfg.Stream.FetchTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing fetch_timeout %q: %w", cfg.Stream.FetchTimeoutRaw, err)
		}
	}

	if cfg.Stream.DedupeTTLRaw != "" {
		cfg.Stream.DedupeTTL, err = time.ParseDuration(cfg.Stream.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe_ttl %q: %w", cfg.Stream.DedupeTTLRaw, err)
		}
	}

	return nil
}
