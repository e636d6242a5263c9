// Package turboconfig is the Configuration Surface (spec.md §4.6):
// environment-driven knobs read on first use, with the project allow-list
// re-read on every scope-gate call so tests can flip it at runtime.
//
// MaskKey's shape is lifted near-verbatim from
// batalabs-muxd/internal/config/preferences.go's MaskKey (masking secrets
// for logs); ParseAllowedIDs is adapted from that same file's comma-
// separated-list parser, generalized from int64 Telegram user ids to
// opaque project id strings. Logger's file-under-a-data-dir layout is
// adapted from batalabs-muxd/internal/config/logger.go and DataDir, rebuilt
// on top of zerolog instead of a hand-rolled Printf so every component logs
// through the same structured sink.
package turboconfig

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	EnvAPIURL        = "TURBO_API_URL"
	EnvAPIKey        = "TURBO_API_KEY"
	EnvAllowedIDs    = "TURBO_ALLOWED_PROJECT_IDS"
	EnvRateLimit     = "TURBO_AGENT_RATE_LIMIT"
	EnvAuditLog      = "TURBO_AGENT_AUDIT_LOG"

	DefaultAPIURL    = "http://localhost:8001/api/v1"
	DefaultRateLimit = 30
)

// APIURL returns TURBO_API_URL or its default.
func APIURL() string {
	if v := os.Getenv(EnvAPIURL); v != "" {
		return v
	}
	return DefaultAPIURL
}

// APIKey returns TURBO_API_KEY, or "" if unset (no bearer token sent).
func APIKey() string {
	return os.Getenv(EnvAPIKey)
}

// AllowedProjectIDs re-reads TURBO_ALLOWED_PROJECT_IDS on every call (spec.md
// §4.6: "re-read by the scope enforcer on every call"). An empty or unset
// value disables scope enforcement (returns nil).
func AllowedProjectIDs() []string {
	return ParseAllowedIDs(os.Getenv(EnvAllowedIDs))
}

// ParseAllowedIDs parses a comma-separated allow-list, trimming whitespace
// and dropping empty entries. An empty string yields nil.
func ParseAllowedIDs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ids = append(ids, p)
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// RateLimit returns TURBO_AGENT_RATE_LIMIT as an integer, or the default
// (30) if unset or unparseable.
func RateLimit() int {
	v := os.Getenv(EnvRateLimit)
	if v == "" {
		return DefaultRateLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return DefaultRateLimit
	}
	return n
}

// AuditLogPath returns TURBO_AGENT_AUDIT_LOG or its default,
// ~/.turbo/agent-audit.jsonl.
func AuditLogPath() string {
	if v := os.Getenv(EnvAuditLog); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".turbo", "agent-audit.jsonl")
}

// DataDir returns ~/.local/share/turbo-agent, creating it if needed.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "share", "turbo-agent")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// Logger builds a zerolog.Logger that appends structured JSON lines to
// ~/.local/share/turbo-agent/agent.log. Falls back to stderr if the data
// directory can't be created or opened, so logging failures never block
// the agent loop.
func Logger() zerolog.Logger {
	dir, err := DataDir()
	if err != nil {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	f, err := os.OpenFile(filepath.Join(dir, "agent.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(f).With().Timestamp().Logger()
}

// MaskKey renders key for logs: all but its last 4 characters replaced with
// asterisks, or "****" outright if key is 4 characters or fewer.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
