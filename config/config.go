// Package config loads the YAML configuration of the redishandles CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/GoCodeAlone/redishandles/commands"
	"github.com/GoCodeAlone/redishandles/observability/metrics"
	"github.com/GoCodeAlone/redishandles/observability/tracing"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// RedisConfig holds the connection used by invoke, writes and serve.
type RedisConfig struct {
	Addr        string        `json:"addr" yaml:"addr"`
	Username    string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password    string        `json:"-" yaml:"password,omitempty"`
	DB          int           `json:"db" yaml:"db"`
	DialTimeout time.Duration `json:"dialTimeout" yaml:"dialTimeout"`
}

// Options converts the config into go-redis client options.
func (r RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:        r.Addr,
		Username:    r.Username,
		Password:    r.Password,
		DB:          r.DB,
		DialTimeout: r.DialTimeout,
	}
}

// HTTPConfig configures the read-only registry API.
type HTTPConfig struct {
	Address string `json:"address" yaml:"address"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, l.Level)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w. The handler level is read from
// level so it can be changed after a reload.
func (l LogConfig) NewLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Config is the top-level configuration file.
type Config struct {
	Redis RedisConfig `json:"redis" yaml:"redis"`
	// Interfaces restricts the registry to some command interfaces, by name
	// ("StringCmdable" or "redis.StringCmdable"). Empty means all of them.
	Interfaces []string       `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Metrics    metrics.Config `json:"metrics" yaml:"metrics"`
	Tracing    tracing.Config `json:"tracing" yaml:"tracing"`
	HTTP       HTTPConfig     `json:"http" yaml:"http"`
	Log        LogConfig      `json:"log" yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			DialTimeout: 5 * time.Second,
		},
		Metrics: metrics.DefaultConfig(),
		Tracing: tracing.DefaultConfig(),
		HTTP:    HTTPConfig{Address: ":8080"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// ExpandEnvString resolves ${VAR} and $VAR environment variable references.
func ExpandEnvString(s string) string {
	return os.ExpandEnv(s)
}

// Parse decodes YAML on top of Default. Environment references are expanded
// before decoding.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(ExpandEnvString(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads and validates a configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that cannot be caught by decoding.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required", ErrInvalid)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("%w: redis.db must not be negative", ErrInvalid)
	}
	if _, err := commands.Select(c.Interfaces...); err != nil {
		return fmt.Errorf("%w: interfaces: %w", ErrInvalid, err)
	}
	if r := c.Tracing.SampleRate; r < 0 || r > 1 {
		return fmt.Errorf("%w: tracing.sampleRate %v is outside [0, 1]", ErrInvalid, r)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("%w: tracing.endpoint is required when tracing is enabled", ErrInvalid)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q, want text or json", ErrInvalid, c.Log.Format)
	}
	return nil
}
