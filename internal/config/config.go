// Package config provides gateway configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the gateway configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	API      APIConfig
	Identity IdentityConfig
	Upload   UploadConfig
	Payment  PaymentConfig
	Session  SessionConfig
	Query    QueryConfig
	Search   SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	Name        string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // json or pretty; empty picks by environment
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins for the JSON API
	PublicURL      string        // Browser-facing origin for share links (default: request origin)
}

// APIConfig holds the remote forum API configuration.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
	// Outbound requests per second per host, and burst.
	RateLimit float64
	Burst     int
}

// IdentityConfig holds the identity provider configuration.
type IdentityConfig struct {
	BaseURL  string // accounts endpoints
	TokenURL string // secure token refresh endpoint
	APIKey   string
	// Sign-in attempts per minute per client IP.
	SignInRate int
}

// UploadConfig holds the image upload service configuration.
type UploadConfig struct {
	URL      string
	Key      string
	MaxBytes int64
}

// PaymentConfig holds the payment provider configuration.
type PaymentConfig struct {
	BaseURL   string
	SecretKey string
}

// SessionConfig holds session storage and cookie configuration.
type SessionConfig struct {
	// DataPath holds the session database and the cookie key.
	DataPath     string
	CookieName   string
	Duration     time.Duration
	RefreshSkew  time.Duration
	SecureCookie bool
	// KeyHex is an optional hex cookie key (SESSION_KEY). When empty the key is
	// loaded from or generated into DataPath.
	KeyHex string
}

// QueryConfig holds query cache configuration.
type QueryConfig struct {
	StaleTime  time.Duration
	MaxEntries int
}

// SearchConfig holds live search configuration.
type SearchConfig struct {
	Debounce time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("talkboard", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	// Remote services
	apiBaseURL := fs.String("api-base-url", "", "Remote forum API base URL")
	identityKey := fs.String("identity-api-key", "", "Identity provider API key")
	uploadURL := fs.String("image-upload-url", "", "Image upload service URL")

	// Session flags
	dataPath := fs.String("data-path", "", "Directory for the session database and key")
	sessionDuration := fs.String("session-duration", "", "Session lifetime (default: 168h)")
	refreshSkew := fs.String("refresh-skew", "", "Refresh identity tokens this long before expiry (default: 2m)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			Name:        getConfigValue("", "APP_NAME", "Talkboard"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue("", "CORS_ALLOWED_ORIGINS", "")),
			PublicURL:      strings.TrimSuffix(getConfigValue("", "PUBLIC_URL", ""), "/"),
		},
		API: APIConfig{
			BaseURL:   strings.TrimSuffix(getConfigValue(*apiBaseURL, "API_BASE_URL", ""), "/"),
			RateLimit: float64(getIntConfigValue("", "API_RATE_LIMIT", 20)),
			Burst:     getIntConfigValue("", "API_RATE_BURST", 40),
		},
		Identity: IdentityConfig{
			BaseURL:    getConfigValue("", "IDENTITY_BASE_URL", "https://identitytoolkit.googleapis.com/v1"),
			TokenURL:   getConfigValue("", "IDENTITY_TOKEN_URL", "https://securetoken.googleapis.com/v1/token"),
			APIKey:     getConfigValue(*identityKey, "IDENTITY_API_KEY", ""),
			SignInRate: getIntConfigValue("", "SIGNIN_RATE_PER_MINUTE", 10),
		},
		Upload: UploadConfig{
			URL:      getConfigValue(*uploadURL, "IMAGE_UPLOAD_URL", "https://api.imgbb.com/1/upload"),
			Key:      getConfigValue("", "IMAGE_UPLOAD_KEY", ""),
			MaxBytes: int64(getIntConfigValue("", "IMAGE_UPLOAD_MAX_BYTES", 5<<20)),
		},
		Payment: PaymentConfig{
			BaseURL:   strings.TrimSuffix(getConfigValue("", "PAYMENT_BASE_URL", "https://api.stripe.com"), "/"),
			SecretKey: getConfigValue("", "PAYMENT_SECRET_KEY", ""),
		},
		Session: SessionConfig{
			DataPath:     getConfigValue(*dataPath, "DATA_PATH", ""),
			CookieName:   getConfigValue("", "SESSION_COOKIE_NAME", "talkboard_session"),
			SecureCookie: getBoolConfigValue("", "SESSION_SECURE_COOKIE", false),
			KeyHex:       getConfigValue("", "SESSION_KEY", ""),
		},
		Query: QueryConfig{
			MaxEntries: getIntConfigValue("", "QUERY_MAX_ENTRIES", 1024),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{"", "API_TIMEOUT", "10s", &cfg.API.Timeout},
		{*sessionDuration, "SESSION_DURATION", "168h", &cfg.Session.Duration},
		{*refreshSkew, "REFRESH_SKEW", "2m", &cfg.Session.RefreshSkew},
		{"", "QUERY_STALE_TIME", "30s", &cfg.Query.StaleTime},
		{"", "SEARCH_DEBOUNCE", "300ms", &cfg.Search.Debounce},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "" && c.Logger.Format != "json" && c.Logger.Format != "pretty" {
		return fmt.Errorf("invalid log format: %s (must be json or pretty)", c.Logger.Format)
	}

	if c.API.BaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL: %s", c.API.BaseURL)
	}

	if c.Server.PublicURL != "" {
		if u, err := url.Parse(c.Server.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid PUBLIC_URL: %s", c.Server.PublicURL)
		}
	}

	if c.Identity.APIKey == "" {
		return errors.New("IDENTITY_API_KEY is required")
	}

	if c.Session.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Session.RefreshSkew < 0 || c.Session.RefreshSkew >= c.Session.Duration {
		return fmt.Errorf("invalid refresh skew %s for session duration %s", c.Session.RefreshSkew, c.Session.Duration)
	}

	if c.Search.Debounce <= 0 {
		return errors.New("search debounce must be positive")
	}

	// Payment and upload keys may be empty in development; the features report
	// unavailable until configured.

	return nil
}

// IsProduction reports whether the gateway runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data path to ~/.talkboard.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Session.DataPath, filepath.Join(homeDir, ".talkboard"))
	if err != nil {
		return err
	}
	c.Session.DataPath = expanded
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
