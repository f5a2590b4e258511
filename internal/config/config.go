package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mvaleed/ringframe/internal/ringbuffer"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config represents the ringframe configuration
type Config struct {
	Ring    Ring    `yaml:"ring"`
	Drain   Drain   `yaml:"drain"`
	Metrics Metrics `yaml:"metrics"`
	Logging Logging `yaml:"logging"`
}

// Ring locates the shared ring file
type Ring struct {
	Path     string `yaml:"path"`
	Capacity int    `yaml:"capacity"`
}

// Drain controls how consumed records are moved into segment files
type Drain struct {
	SegmentPath   string        `yaml:"segment_path"`
	BatchSize     int           `yaml:"batch_size"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// Metrics contains prometheus exposition settings
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Ring: Ring{
			Path:     "./data/ringframe.ring",
			Capacity: 1 << 20,
		},
		Drain: Drain{
			SegmentPath:   "./data/drained.seg",
			BatchSize:     256,
			PollInterval:  10 * time.Millisecond,
			FlushInterval: 100 * time.Millisecond,
			BufferSize:    4096 * 2,
		},
		Metrics: Metrics{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values the ring and drain cannot work with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Ring.Path) == "" {
		return fmt.Errorf("%w: ring.path can't be blank", ErrInvalidConfig)
	}
	if err := ringbuffer.CheckCapacity(c.Ring.Capacity); err != nil {
		return fmt.Errorf("%w: ring.capacity: %w", ErrInvalidConfig, err)
	}
	if c.Drain.BatchSize < 1 {
		return fmt.Errorf("%w: drain.batch_size can't be < 1", ErrInvalidConfig)
	}
	if c.Drain.PollInterval <= 0 {
		return fmt.Errorf("%w: drain.poll_interval must be positive", ErrInvalidConfig)
	}
	if c.Drain.BufferSize < 1 {
		return fmt.Errorf("%w: drain.buffer_size can't be < 1", ErrInvalidConfig)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured level name
func (l Logging) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, l.Level)
	}
	return level, nil
}

// NewLogger builds the process logger from the logging section
func (l Logging) NewLogger() (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}
