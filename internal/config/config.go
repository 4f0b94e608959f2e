package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/docslice/internal/assemble"
	"github.com/MeKo-Tech/docslice/internal/document"
	"github.com/MeKo-Tech/docslice/internal/geometry"
	"github.com/MeKo-Tech/docslice/internal/render"
)

// Config represents the complete configuration for the docslice application.
// It covers both commands (serve, process) and supports loading from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose"   yaml:"verbose"   json:"verbose"`

	// Document processing defaults
	Process ProcessConfig `mapstructure:"process" yaml:"process" json:"process"`

	// Screenshot rendering defaults
	Render RenderConfig `mapstructure:"render" yaml:"render" json:"render"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ProcessConfig contains slice-extraction defaults applied when a request
// leaves them unset.
type ProcessConfig struct {
	Mode           string `mapstructure:"mode"            yaml:"mode"            json:"mode"`
	Origin         string `mapstructure:"origin"          yaml:"origin"          json:"origin"`
	BBoxPrecision  int    `mapstructure:"bbox_precision"  yaml:"bbox_precision"  json:"bbox_precision"`
	MarkdownTables bool   `mapstructure:"markdown_tables" yaml:"markdown_tables" json:"markdown_tables"`
	MaxPages       int    `mapstructure:"max_pages"       yaml:"max_pages"       json:"max_pages"`
}

// RenderConfig contains screenshot encoding defaults.
type RenderConfig struct {
	Format  string  `mapstructure:"format"  yaml:"format"  json:"format"`
	Quality int     `mapstructure:"quality" yaml:"quality" json:"quality"`
	Scale   float64 `mapstructure:"scale"   yaml:"scale"   json:"scale"`
}

// ServerConfig contains HTTP server settings. The rate limit settings
// default to zero, which disables limiting.
type ServerConfig struct {
	Host               string `mapstructure:"host"                  yaml:"host"                  json:"host"`
	Port               int    `mapstructure:"port"                  yaml:"port"                  json:"port"`
	CORSOrigin         string `mapstructure:"cors_origin"           yaml:"cors_origin"           json:"cors_origin"`
	MaxUploadMB        int    `mapstructure:"max_upload_mb"         yaml:"max_upload_mb"         json:"max_upload_mb"`
	TimeoutSec         int    `mapstructure:"timeout_sec"           yaml:"timeout_sec"           json:"timeout_sec"`
	ShutdownTimeout    int    `mapstructure:"shutdown_timeout"      yaml:"shutdown_timeout"      json:"shutdown_timeout"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	RateLimitPerHour   int    `mapstructure:"rate_limit_per_hour"   yaml:"rate_limit_per_hour"   json:"rate_limit_per_hour"`
	MaxRequestsPerDay  int    `mapstructure:"max_requests_per_day"  yaml:"max_requests_per_day"  json:"max_requests_per_day"`
	MaxDataPerDayMB    int64  `mapstructure:"max_data_per_day_mb"   yaml:"max_data_per_day_mb"   json:"max_data_per_day_mb"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Process: ProcessConfig{
			Mode:           string(document.ModeHybrid),
			Origin:         string(geometry.TopLeft),
			BBoxPrecision:  2,
			MarkdownTables: true,
			MaxPages:       0,
		},
		Render: RenderConfig{
			Format:  string(document.FormatJPEG),
			Quality: 80,
			Scale:   1.0,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      120,
			ShutdownTimeout: 10,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if !document.Mode(c.Process.Mode).Valid() {
		return fmt.Errorf("invalid processing mode: %s (must be one of: speed, accuracy, hybrid)", c.Process.Mode)
	}
	if !geometry.CoordOrigin(c.Process.Origin).Valid() {
		return fmt.Errorf("invalid coordinate origin: %s (must be TOPLEFT or BOTTOMLEFT)", c.Process.Origin)
	}
	if c.Process.BBoxPrecision < 0 || c.Process.BBoxPrecision > 6 {
		return fmt.Errorf("invalid bbox precision: %d (must be between 0 and 6)", c.Process.BBoxPrecision)
	}
	if c.Process.MaxPages < 0 {
		return fmt.Errorf("invalid max pages: %d (must not be negative)", c.Process.MaxPages)
	}

	if !document.ImageFormat(c.Render.Format).Valid() {
		return fmt.Errorf("invalid render format: %s (must be png or jpeg)", c.Render.Format)
	}
	if c.Render.Quality < 0 || c.Render.Quality > 100 {
		return fmt.Errorf("invalid render quality: %d (must be between 0 and 100)", c.Render.Quality)
	}
	if c.Render.Scale <= 0 {
		return fmt.Errorf("invalid render scale: %g (must be positive)", c.Render.Scale)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must be positive)", c.Server.ShutdownTimeout)
	}
	if c.Server.RateLimitPerMinute < 0 || c.Server.RateLimitPerHour < 0 ||
		c.Server.MaxRequestsPerDay < 0 || c.Server.MaxDataPerDayMB < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	return nil
}

// ToAssembleConfig converts the config to the pipeline configuration format.
func (c *Config) ToAssembleConfig() assemble.Config {
	return assemble.Config{
		Origin:         geometry.CoordOrigin(c.Process.Origin),
		Precision:      c.Process.BBoxPrecision,
		MarkdownTables: c.Process.MarkdownTables,
		MaxPages:       c.Process.MaxPages,
		MaxBytes:       int64(c.Server.MaxUploadMB) * 1024 * 1024,
	}
}

// ToRenderOptions converts the render defaults to encoding options.
func (c *Config) ToRenderOptions() render.Options {
	return render.Options{
		Format:  document.ImageFormat(c.Render.Format),
		Quality: c.Render.Quality,
		Scale:   c.Render.Scale,
	}
}

// RequestTimeout returns the per-request processing deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSec) * time.Second
}

// ShutdownGrace returns how long a draining server waits for in-flight
// requests.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
