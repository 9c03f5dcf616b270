// Package config loads the application configuration from a YAML file and
// overlays ASSESSLY_* environment variables on top.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/skanda/assessly/internal/content"
	"github.com/skanda/assessly/internal/grading"
	"github.com/skanda/assessly/internal/llm"
	"github.com/skanda/assessly/internal/quizgen"
)

// Config is the full application configuration.
type Config struct {
	// DBPath is the SQLite file path. Empty means the default location
	// under XDG_DATA_HOME.
	DBPath string `yaml:"db_path"`

	// Redis configures the progress tracker. An empty address disables
	// progress publishing entirely.
	Redis RedisConfig `yaml:"redis"`

	LLM        llm.Config     `yaml:"llm"`
	Generation quizgen.Config `yaml:"generation"`
	Grading    grading.Config `yaml:"grading"`
	Content    content.Config `yaml:"content"`
	Pools      PoolConfig     `yaml:"pools"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// RedisConfig locates the progress store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PoolConfig bounds concurrent model calls per pipeline. Generation calls
// are long and few, grading calls short and many; separate limits keep a
// grading burst from starving generation and vice versa.
type PoolConfig struct {
	Generation int64 `yaml:"generation"`
	Grading    int64 `yaml:"grading"`
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		LLM:        llm.DefaultConfig(),
		Generation: quizgen.DefaultConfig(),
		Grading:    grading.DefaultConfig(),
		Content:    content.DefaultConfig(),
		Pools:      PoolConfig{Generation: 3, Grading: 2},
		LogLevel:   "info",
	}
}

// Load reads the config file at path, if it exists, and applies the
// environment overlay. A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults only.
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if p := os.Getenv("ASSESSLY_DB"); p != "" {
		c.DBPath = p
	}
	if a := os.Getenv("ASSESSLY_REDIS_ADDR"); a != "" {
		c.Redis.Addr = a
	}
	if p := os.Getenv("ASSESSLY_REDIS_PASSWORD"); p != "" {
		c.Redis.Password = p
	}
	if l := os.Getenv("ASSESSLY_LOG_LEVEL"); l != "" {
		c.LogLevel = l
	}
	if n := os.Getenv("ASSESSLY_GENERATION_POOL"); n != "" {
		if v, err := strconv.ParseInt(n, 10, 64); err == nil {
			c.Pools.Generation = v
		}
	}
	if n := os.Getenv("ASSESSLY_GRADING_POOL"); n != "" {
		if v, err := strconv.ParseInt(n, 10, 64); err == nil {
			c.Pools.Grading = v
		}
	}
	c.LLM.ApplyEnv()
}

// Validate checks the parts that would otherwise fail far from their cause.
func (c Config) Validate() error {
	if c.Pools.Generation < 1 {
		return fmt.Errorf("pools.generation must be at least 1, got %d", c.Pools.Generation)
	}
	if c.Pools.Grading < 1 {
		return fmt.Errorf("pools.grading must be at least 1, got %d", c.Pools.Grading)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return c.LLM.Validate()
}
