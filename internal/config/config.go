// Package config loads gatekeeper configuration from a YAML file with
// environment overrides. The loaded config is immutable after startup;
// the SHA-256 hash of the raw file is recorded in audit entries so a log
// can be tied to the policy that produced it.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all server and admission policy parameters.
type Config struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	// SecretKey signs admission tokens. Must be identical across all
	// instances serving one client population. Prefer the
	// GATEKEEPER_SECRET env var over the file.
	SecretKey string `yaml:"secret_key"`

	CookieName       string `yaml:"cookie_name"`
	TokenTTLSeconds  int    `yaml:"token_ttl_seconds"`
	RequireIPBinding bool   `yaml:"require_ip_binding"`

	// TrustProxyHeaders enables X-Forwarded-For / X-Forwarded-Host /
	// X-Forwarded-Proto when the deployment sits behind a reverse proxy.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	APIPrefix          string   `yaml:"api_prefix"`
	ExemptPaths        []string `yaml:"exempt_paths"`
	ExemptPrefixes     []string `yaml:"exempt_prefixes"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// FingerprintChecks selects the enabled challenge checks:
	// automation_flag, framework_flag, software_render.
	FingerprintChecks []string `yaml:"fingerprint_checks"`

	// SignaturesPath points at the bot-signature YAML; empty uses the
	// built-in defaults. The file is hot-reloaded while serving.
	SignaturesPath string `yaml:"signatures_path"`

	// Challenge endpoint rate limiting, per client address.
	ChallengeRatePerMinute int `yaml:"challenge_rate_per_minute"`
	ChallengeBurst         int `yaml:"challenge_burst"`

	// RedisAddr, when set, enables the Redis admission-stats sink for
	// multi-instance deployments.
	RedisAddr string `yaml:"redis_addr"`

	AuditLogPath string `yaml:"audit_log_path"`

	// Catalog source: a sqlite database, or a products JSON file loaded
	// into memory when no database is configured.
	CatalogDB   string `yaml:"catalog_db"`
	CatalogJSON string `yaml:"catalog_json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:                 ":8080",
		LogLevel:               "info",
		CookieName:             "AUTH_TOKEN",
		TokenTTLSeconds:        300,
		RequireIPBinding:       true,
		APIPrefix:              "/api/",
		ExemptPaths:            []string{"/verify-challenge", "/favicon.ico", "/healthz", "/metrics"},
		ExemptPrefixes:         []string{"/static/"},
		FingerprintChecks:      []string{"automation_flag", "framework_flag", "software_render"},
		ChallengeRatePerMinute: 10,
		ChallengeBurst:         5,
	}
}

// Load reads the config file (defaults when path is empty or missing),
// applies env overrides, and returns the config plus the hash of the raw
// file contents. The hash of a default config is over the empty input.
func Load(path string) (*Config, string, error) {
	cfg := Default()
	var raw []byte

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, "", fmt.Errorf("config: parse %s: %w", path, err)
			}
			raw = data
		case os.IsNotExist(err):
			// fall through to defaults
		default:
			return nil, "", fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, "", err
	}

	sum := sha256.Sum256(raw)
	return cfg, "sha256:" + hex.EncodeToString(sum[:]), nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("GATEKEEPER_SECRET")); v != "" {
		cfg.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GATEKEEPER_LISTEN")); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("GATEKEEPER_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("GATEKEEPER_REDIS_ADDR")); v != "" {
		cfg.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("GATEKEEPER_TOKEN_TTL_SECONDS")); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil && ttl > 0 {
			cfg.TokenTTLSeconds = ttl
		}
	}
}

func (c *Config) validate() error {
	if c.TokenTTLSeconds <= 0 {
		return fmt.Errorf("config: token_ttl_seconds must be positive, got %d", c.TokenTTLSeconds)
	}
	if c.CookieName == "" {
		return fmt.Errorf("config: cookie_name must not be empty")
	}
	if !strings.HasSuffix(c.APIPrefix, "/") {
		return fmt.Errorf("config: api_prefix must end with '/', got %q", c.APIPrefix)
	}
	return nil
}

// CheckEnabled reports whether a fingerprint check is selected.
func (c *Config) CheckEnabled(name string) bool {
	for _, chk := range c.FingerprintChecks {
		if chk == name {
			return true
		}
	}
	return false
}

// Redacted returns a view safe for logging. The secret key never appears.
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"listen":            c.Listen,
		"logLevel":          c.LogLevel,
		"secretProvided":    c.SecretKey != "",
		"cookieName":        c.CookieName,
		"tokenTTLSeconds":   c.TokenTTLSeconds,
		"requireIPBinding":  c.RequireIPBinding,
		"trustProxyHeaders": c.TrustProxyHeaders,
		"apiPrefix":         c.APIPrefix,
		"fingerprintChecks": c.FingerprintChecks,
		"corsOrigins":       c.CORSAllowedOrigins,
		"redisEnabled":      c.RedisAddr != "",
		"auditLogPath":      c.AuditLogPath,
		"catalogDB":         c.CatalogDB,
		"catalogJSON":       c.CatalogJSON,
	}
}
