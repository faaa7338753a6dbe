// Package config loads the coven-chat client configuration.
//
// # Configuration File
//
// Location (first match wins):
//
//  1. Path from the COVEN_CHAT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/chat.toml
//  3. ~/.config/coven/chat.toml
//
// Files ending in .yaml or .yml are parsed as YAML, everything else as TOML.
// Values may reference environment variables with ${VAR_NAME}.
//
//	[server]
//	url = "http://localhost:8888"
//	events_path = "/api/events"
//
//	[user]
//	id = "alice"
//	username = "Alice"
//
//	[stream]
//	fetch_timeout = "10s"
//	notification_queue = 64
//	result_field = "users"
//	dedupe_ttl = "5m"
//	dedupe_size = 1024
//
//	[logging]
//	level = "info"    # debug, info, warn, error
//	format = "text"   # text, json
//
// # Environment Overrides
//
// Applied after the file: COVEN_CHAT_URL, COVEN_CHAT_EVENTS_PATH,
// COVEN_CHAT_USER_ID, COVEN_CHAT_USERNAME, COVEN_CHAT_FETCH_TIMEOUT,
// COVEN_CHAT_LOG_LEVEL, COVEN_CHAT_LOG_FORMAT.
//
// # Durations
//
// Durations use time.ParseDuration syntax. An unset fetch_timeout leaves
// indirection fetches unbounded.
package config
