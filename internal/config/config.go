// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name
const EnvPrefix = "STATEMENTLENS_"

// minPassphraseLen matches the spool storage requirement
const minPassphraseLen = 8

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `json:"listen_addr"`
	Debug      bool   `json:"debug"`
	LogLevel   string `json:"log_level"`
	// TrustProxy takes client addresses from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that sets them.
	TrustProxy bool   `json:"trust_proxy"`

	// Directories. Empty template/static directories use the embedded assets.
	DataDirectory      string `json:"data_directory"`
	TemplatesDirectory string `json:"templates_directory"`
	StaticDirectory    string `json:"static_directory"`

	// AnalysisURL is where the upload controller posts statements. Empty
	// means this server's own /upload route.
	AnalysisURL string `json:"analysis_url"`

	// Upload spool
	EncryptSpool    bool          `json:"encrypt_spool"`
	SpoolPassphrase string        `json:"-"`
	SpoolMaxAge     time.Duration `json:"spool_max_age"`

	// Per-client rate limit on upload routes; 0 disables it
	RateLimit float64 `json:"rate_limit"`
	RateBurst int     `json:"rate_burst"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:    ":8080",
		LogLevel:      "info",
		DataDirectory: filepath.Join(wd, "data"),
		SpoolMaxAge:   time.Hour,
		RateLimit:     2,
		RateBurst:     5,
	}
}

// Load reads an optional .env file, then applies environment overrides
func Load() *Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.Debug = getEnvBool("DEBUG", cfg.Debug)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", cfg.TrustProxy)
	cfg.DataDirectory = getEnv("DATA_DIR", cfg.DataDirectory)
	cfg.TemplatesDirectory = getEnv("TEMPLATES_DIR", cfg.TemplatesDirectory)
	cfg.StaticDirectory = getEnv("STATIC_DIR", cfg.StaticDirectory)
	cfg.AnalysisURL = getEnv("ANALYSIS_URL", cfg.AnalysisURL)
	cfg.EncryptSpool = getEnvBool("ENCRYPT_SPOOL", cfg.EncryptSpool)
	cfg.SpoolPassphrase = getEnv("SPOOL_PASSPHRASE", cfg.SpoolPassphrase)
	cfg.SpoolMaxAge = getEnvDuration("SPOOL_MAX_AGE", cfg.SpoolMaxAge)
	cfg.RateLimit = getEnvFloat("RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = getEnvInt("RATE_BURST", cfg.RateBurst)

	if cfg.Debug && os.Getenv(EnvPrefix+"LOG_LEVEL") == "" {
		cfg.LogLevel = "debug"
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		errors = append(errors, fmt.Sprintf("invalid listen address '%s': %v", c.ListenAddr, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.DataDirectory == "" {
		errors = append(errors, "data directory cannot be empty")
	}

	for name, dir := range map[string]string{"templates": c.TemplatesDirectory, "static": c.StaticDirectory} {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("%s directory does not exist: %s", name, dir))
		}
	}

	if c.AnalysisURL != "" {
		if u, err := url.Parse(c.AnalysisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid analysis URL '%s': %v", c.AnalysisURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid analysis URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		} else if u.Host == "" {
			errors = append(errors, fmt.Sprintf("analysis URL '%s' has no host", c.AnalysisURL))
		}
	}

	if c.EncryptSpool && c.SpoolPassphrase != "" && len(c.SpoolPassphrase) < minPassphraseLen {
		errors = append(errors, fmt.Sprintf("spool passphrase must be at least %d characters", minPassphraseLen))
	}

	if c.SpoolMaxAge < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid spool max age %v: must be at least 1 minute", c.SpoolMaxAge))
	}

	if c.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must not be negative", c.RateLimit))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate burst %d: must be at least 1 when rate limiting is on", c.RateBurst))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AnalysisEndpoint returns AnalysisURL, or the /upload route of the server
// bound to addr when none is configured
func (c *Config) AnalysisEndpoint(addr string) string {
	if c.AnalysisURL != "" {
		return c.AnalysisURL
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/upload"
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/upload"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(EnvPrefix + key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
