// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers TOML and YAML loading, env expansion and overrides, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "chat.toml", `
[server]
url = "http://localhost:8888"
events_path = "/stream"

[user]
id = "alice"
username = "Alice"

[stream]
fetch_timeout = "10s"
notification_queue = 8
result_field = "people"
dedupe_ttl = "1m"
dedupe_size = 32

[logging]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.URL != "http://localhost:8888" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Server.EventsPath != "/stream" {
		t.Errorf("Server.EventsPath = %q", cfg.Server.EventsPath)
	}
	if cfg.User.ID != "alice" || cfg.User.Username != "Alice" {
		t.Errorf("User = %+v", cfg.User)
	}
	if cfg.Stream.FetchTimeout != 10*time.Second {
		t.Errorf("Stream.FetchTimeout = %v, want 10s", cfg.Stream.FetchTimeout)
	}
	if cfg.Stream.NotificationQueue != 8 {
		t.Errorf("Stream.NotificationQueue = %d, want 8", cfg.Stream.NotificationQueue)
	}
	if cfg.Stream.ResultField != "people" {
		t.Errorf("Stream.ResultField = %q", cfg.Stream.ResultField)
	}
	if cfg.Stream.DedupeTTL != time.Minute || cfg.Stream.DedupeSize != 32 {
		t.Errorf("dedupe = %v/%d", cfg.Stream.DedupeTTL, cfg.Stream.DedupeSize)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "chat.yaml", `
server:
  url: "https://chat.example.com"
user:
  id: "bob"
stream:
  fetch_timeout: "500ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.URL != "https://chat.example.com" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.User.ID != "bob" {
		t.Errorf("User.ID = %q", cfg.User.ID)
	}
	if cfg.Stream.FetchTimeout != 500*time.Millisecond {
		t.Errorf("Stream.FetchTimeout = %v", cfg.Stream.FetchTimeout)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "chat.toml", `
[server]
url = "http://localhost:8888"
[user]
id = "alice"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.EventsPath != DefaultEventsPath {
		t.Errorf("EventsPath = %q, want %q", cfg.Server.EventsPath, DefaultEventsPath)
	}
	if cfg.User.Username != "alice" {
		t.Errorf("Username = %q, want the user id", cfg.User.Username)
	}
	if cfg.Stream.FetchTimeout != 0 {
		t.Errorf("FetchTimeout = %v, want unbounded", cfg.Stream.FetchTimeout)
	}
	if cfg.Stream.NotificationQueue != DefaultNotificationQueue {
		t.Errorf("NotificationQueue = %d", cfg.Stream.NotificationQueue)
	}
	if cfg.Stream.ResultField != DefaultResultField {
		t.Errorf("ResultField = %q", cfg.Stream.ResultField)
	}
	if cfg.Stream.DedupeTTL != DefaultDedupeTTL || cfg.Stream.DedupeSize != DefaultDedupeSize {
		t.Errorf("dedupe = %v/%d", cfg.Stream.DedupeTTL, cfg.Stream.DedupeSize)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_CHAT_HOST", "chat.internal:9000")
	path := writeConfig(t, "chat.toml", `
[server]
url = "http://${TEST_CHAT_HOST}"
[user]
id = "alice"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.URL != "http://chat.internal:9000" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("COVEN_CHAT_USER_ID", "carol")
	t.Setenv("COVEN_CHAT_FETCH_TIMEOUT", "2s")
	t.Setenv("COVEN_CHAT_LOG_LEVEL", "warn")
	path := writeConfig(t, "chat.toml", `
[server]
url = "http://localhost:8888"
[user]
id = "alice"
[stream]
fetch_timeout = "10s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.User.ID != "carol" {
		t.Errorf("User.ID = %q, want carol", cfg.User.ID)
	}
	if cfg.Stream.FetchTimeout != 2*time.Second {
		t.Errorf("FetchTimeout = %v, want 2s", cfg.Stream.FetchTimeout)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("COVEN_CHAT_URL", "http://localhost:8888")
	t.Setenv("COVEN_CHAT_USER_ID", "dave")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.User.ID != "dave" {
		t.Errorf("User.ID = %q", cfg.User.ID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "reading config file") {
		t.Fatalf("Load() error = %v, want read failure", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "chat.toml", `
[server]
url = "http://localhost:8888"
[user]
id = "alice"
[stream]
fetch_timeout = "soon"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "fetch_timeout") {
		t.Fatalf("Load() error = %v, want fetch_timeout failure", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{
			Server: ServerConfig{URL: "http://localhost:8888"},
			User:   UserConfig{ID: "alice"},
		}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.Server.URL = "" }, wantErr: "server.url is required"},
		{name: "bad scheme", mutate: func(c *Config) { c.Server.URL = "ws://localhost" }, wantErr: "http or https"},
		{name: "no host", mutate: func(c *Config) { c.Server.URL = "http://" }, wantErr: "host"},
		{name: "relative events path", mutate: func(c *Config) { c.Server.EventsPath = "events" }, wantErr: "events_path"},
		{name: "missing user", mutate: func(c *Config) { c.User.ID = "" }, wantErr: "user.id is required"},
		{name: "separator in user", mutate: func(c *Config) { c.User.ID = "a_b" }, wantErr: "must not contain"},
		{name: "negative queue", mutate: func(c *Config) { c.Stream.NotificationQueue = -1 }, wantErr: "notification_queue"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "logging.level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("COVEN_CHAT_CONFIG", "/etc/chat.toml")
	if got := DefaultPath(); got != "/etc/chat.toml" {
		t.Errorf("DefaultPath() = %q", got)
	}

	t.Setenv("COVEN_CHAT_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultPath(); got != filepath.Join("/xdg", "coven", "chat.toml") {
		t.Errorf("DefaultPath() = %q", got)
	}
}
