package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dan-solli/kinship/pkg/kinship"
)

const defaultConfigPath = "kinship.yaml"

// Config is the CLI configuration file: the tree session settings plus
// logging.
type Config struct {
	kinship.Config `yaml:",inline"`

	Log LogConfig `yaml:"log"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// loadConfig reads path, or kinship.yaml when path is empty and the file
// exists, then applies KINSHIP_* overrides from getenv.
func loadConfig(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{Log: LogConfig{Level: "info", Format: "text"}}

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"KINSHIP_API_URL":       &c.APIBaseURL,
		"KINSHIP_API_TOKEN":     &c.APIToken,
		"KINSHIP_LIVE_URL":      &c.LiveURL,
		"KINSHIP_FAMILY":        &c.FamilyID,
		"KINSHIP_CACHE_BACKEND": &c.Cache.Backend,
		"KINSHIP_CACHE_PATH":    &c.Cache.Path,
		"KINSHIP_CACHE_DRIVER":  &c.Cache.Driver,
		"KINSHIP_REDIS_ADDR":    &c.Cache.RedisAddr,
		"KINSHIP_TRACE_PATH":    &c.TracePath,
		"KINSHIP_LOG_LEVEL":     &c.Log.Level,
		"KINSHIP_LOG_FORMAT":    &c.Log.Format,
	}
	for name, dst := range str {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("KINSHIP_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("KINSHIP_CACHE_TTL: %w", err)
		}
		c.Cache.TTL = d
	}
	if v := getenv("KINSHIP_METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KINSHIP_METRICS_ENABLED: %w", err)
		}
		c.MetricsEnabled = b
	}
	return nil
}

func newLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", cfg.Format)
}
