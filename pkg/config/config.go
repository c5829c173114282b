// Package config loads chainviz settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	tlsconfig "github.com/dd0wney/cluso-chainviz/pkg/tls"
	"github.com/dd0wney/cluso-chainviz/pkg/validation"
	"github.com/dd0wney/cluso-chainviz/pkg/visualization"
)

// Config is the full application configuration
type Config struct {
	Layout    visualization.SimulationConfig `yaml:"layout"`
	Session   SessionConfig                  `yaml:"session"`
	Expansion ExpansionConfig                `yaml:"expansion"`
	Server    ServerConfig                   `yaml:"server"`
	Cache     CacheConfig                    `yaml:"cache"`
	Log       LogConfig                      `yaml:"log"`
}

// SessionConfig controls the session loop
type SessionConfig struct {
	TickInterval time.Duration `yaml:"tick_interval" validate:"gt=0"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
}

// ExpansionConfig selects where subgraphs come from
type ExpansionConfig struct {
	Loader    string  `yaml:"loader" validate:"oneof=file http"`
	Root      string  `yaml:"root"`
	BaseURL   string  `yaml:"base_url"`
	KeyTable  string  `yaml:"key_table"`
	Watch     bool    `yaml:"watch"`
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

// ServerConfig is the HTTP/websocket presenter
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
	// RequestRate limits mutating requests per client; 0 disables
	RequestRate  float64 `yaml:"request_rate" validate:"gte=0"`
	RequestBurst int     `yaml:"request_burst" validate:"gte=0"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" validate:"gt=0"`

	TLS tlsconfig.Config `yaml:"tls"`
}

// CacheConfig is the optional Redis payload cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	DB      int           `yaml:"db" validate:"gte=0"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
	Prefix  string        `yaml:"prefix"`
}

// LogConfig sets level and destination. An empty File logs to stderr.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Layout: visualization.DefaultSimulationConfig(),
		Session: SessionConfig{
			TickInterval: 16 * time.Millisecond,
			FetchTimeout: 30 * time.Second,
		},
		Expansion: ExpansionConfig{
			Loader:    "file",
			Root:      ".",
			RateLimit: 5,
			Burst:     5,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			RequestRate:     20,
			RequestBurst:    40,
			MaxBodyBytes:    64 << 10,
			TLS:             tlsconfig.DefaultConfig(),
		},
		Cache: CacheConfig{
			Addr:   "localhost:6379",
			TTL:    10 * time.Minute,
			Prefix: "chainviz:payload:",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment variables recognised by Load
const (
	EnvAddr      = "CHAINVIZ_ADDR"
	EnvRedisAddr = "CHAINVIZ_REDIS_ADDR"
	EnvDataRoot  = "CHAINVIZ_DATA_ROOT"
	EnvBaseURL   = "CHAINVIZ_BASE_URL"
	EnvTickMS    = "CHAINVIZ_TICK_MS"
	EnvLogLevel  = "LOG_LEVEL"
)

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Cache.Addr = v
		c.Cache.Enabled = true
	}
	if v, ok := lookup(EnvDataRoot); ok && v != "" {
		c.Expansion.Root = v
	}
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.Expansion.BaseURL = v
		c.Expansion.Loader = "http"
	}
	if v, ok := lookup(EnvTickMS); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTickMS, err)
		}
		c.Session.TickInterval = time.Duration(ms) * time.Millisecond
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks struct tags and the rules that span fields
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cv := validation.NewConfigValidator("config").
		Less("layout.alpha_min", c.Layout.AlphaMin, "layout.drag_alpha_target", c.Layout.DragAlphaTarget).
		Custom("log.level", func() error {
			_, err := logging.LookupLevel(c.Log.Level)
			return err
		}).
		When(c.Expansion.Loader == "http", func(cv *validation.ConfigValidator) {
			cv.Required("expansion.base_url", c.Expansion.BaseURL)
		}).
		When(c.Cache.Enabled, func(cv *validation.ConfigValidator) {
			cv.Required("cache.addr", c.Cache.Addr)
		}).
		When(c.Server.TLS.Enabled && !c.Server.TLS.AutoGenerate, func(cv *validation.ConfigValidator) {
			cv.Required("server.tls.cert_file", c.Server.TLS.CertFile)
			cv.Required("server.tls.key_file", c.Server.TLS.KeyFile)
		})

	if err := cv.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}
