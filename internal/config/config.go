// Package config loads the server configuration from the environment.
//
// Configuration is read once at startup into an immutable Config value that is
// passed explicitly to every component. A .env file in the working directory
// is honored when present; real environment variables take precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxImageSize is the byte ceiling applied to every acquired image (10 MiB).
	DefaultMaxImageSize = 10 * 1024 * 1024

	// DefaultMaxDimension is the hard per-axis pixel bound of normalized images.
	DefaultMaxDimension = 512
)

// Config stores all configuration for the server.
type Config struct {
	// MaxImageSize is the largest accepted image buffer in bytes.
	MaxImageSize int64 `mapstructure:"MAX_IMAGE_SIZE"`

	// AllowedDomainsRaw is the comma-separated ALLOWED_DOMAINS value.
	// Use AllowedDomains for the parsed list.
	AllowedDomainsRaw string `mapstructure:"ALLOWED_DOMAINS"`

	// Port enables the metrics/health HTTP listener when non-empty.
	// The MCP transport itself always uses stdio.
	Port string `mapstructure:"PORT"`

	LogLevel              string        `mapstructure:"IMAGE_MCP_LOG_LEVEL"`
	MaxDimension          int           `mapstructure:"MAX_DIMENSION"`
	ScreenshotsDir        string        `mapstructure:"SCREENSHOTS_DIR"`
	FetchTimeout          time.Duration `mapstructure:"FETCH_TIMEOUT"`
	ChromePath            string        `mapstructure:"CHROME_PATH"`
	MaxConcurrentBrowsers int64         `mapstructure:"MAX_CONCURRENT_BROWSERS"`
	JPEGBackground        string        `mapstructure:"JPEG_BACKGROUND"`

	// TessdataDir holds *.traineddata files for OCR. Empty searches next to
	// the binary, then falls back to Tesseract's default.
	TessdataDir string `mapstructure:"TESSDATA_DIR"`

	domains []string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env is fine; the environment alone is a complete configuration.
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	cfg := &Config{
		MaxImageSize:   DefaultMaxImageSize,
		LogLevel:       "info",
		MaxDimension:   DefaultMaxDimension,
		ScreenshotsDir: "screenshots",
		FetchTimeout:   30 * time.Second,
		JPEGBackground: "#ffffff",
	}
	_ = cfg.finalize()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MAX_IMAGE_SIZE", DefaultMaxImageSize)
	v.SetDefault("ALLOWED_DOMAINS", "")
	v.SetDefault("PORT", "")
	v.SetDefault("IMAGE_MCP_LOG_LEVEL", "info")
	v.SetDefault("MAX_DIMENSION", DefaultMaxDimension)
	v.SetDefault("SCREENSHOTS_DIR", "screenshots")
	v.SetDefault("FETCH_TIMEOUT", "30s")
	v.SetDefault("CHROME_PATH", "")
	v.SetDefault("MAX_CONCURRENT_BROWSERS", 0)
	v.SetDefault("JPEG_BACKGROUND", "#ffffff")
	v.SetDefault("TESSDATA_DIR", "")
}

func (c *Config) finalize() error {
	if c.MaxImageSize <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be positive, got %d", c.MaxImageSize)
	}
	if c.MaxDimension <= 0 {
		return fmt.Errorf("MAX_DIMENSION must be positive, got %d", c.MaxDimension)
	}
	if c.MaxConcurrentBrowsers < 0 {
		return fmt.Errorf("MAX_CONCURRENT_BROWSERS must not be negative, got %d", c.MaxConcurrentBrowsers)
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.ScreenshotsDir == "" {
		c.ScreenshotsDir = "screenshots"
	}
	c.domains = ParseDomains(c.AllowedDomainsRaw)
	return nil
}

// AllowedDomains returns the parsed allow-list. An empty list permits every domain.
func (c *Config) AllowedDomains() []string {
	out := make([]string, len(c.domains))
	copy(out, c.domains)
	return out
}

// WithAllowedDomains returns a copy of c using the given allow-list.
func (c *Config) WithAllowedDomains(domains ...string) *Config {
	cp := *c
	cp.AllowedDomainsRaw = strings.Join(domains, ",")
	cp.domains = ParseDomains(cp.AllowedDomainsRaw)
	return &cp
}

// ParseDomains splits a comma-separated host list, trimming blanks and
// lower-casing entries.
func ParseDomains(raw string) []string {
	var domains []string
	for _, d := range strings.Split(raw, ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimSuffix(strings.TrimPrefix(d, "."), ".")
		if d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}
