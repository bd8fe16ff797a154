package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Worker    WorkerConfig    `yaml:"worker"`
	Assets    AssetsConfig    `yaml:"assets"`
	Animation AnimationConfig `yaml:"animation"`
	Prefs     PrefsConfig     `yaml:"prefs"`
	Logging   LoggingConfig   `yaml:"logging"`
	Bridge    BridgeConfig    `yaml:"bridge"`
}

// WorkerConfig says how to reach the calculator worker. URL, when set,
// selects a websocket bridge instead of a child process.
type WorkerConfig struct {
	Command       string        `yaml:"command"`
	Args          []string      `yaml:"args"`
	Dir           string        `yaml:"dir"`
	DisplayImage  string        `yaml:"display_image"`
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	StatsInterval time.Duration `yaml:"stats_interval"`
}

type AssetsConfig struct {
	ImagesDir string `yaml:"images_dir"`
}

type AnimationConfig struct {
	Duration time.Duration `yaml:"duration"`
	Tick     time.Duration `yaml:"tick"`
	Curve    string        `yaml:"curve"`
}

type PrefsConfig struct {
	File string `yaml:"file"`
}

type LoggingConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type BridgeConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Token          string   `yaml:"token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func defaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		Worker: WorkerConfig{
			Command:       "bin/free42",
			DisplayImage:  "display.gif",
			StatsInterval: 2 * time.Second,
		},
		Assets: AssetsConfig{
			ImagesDir: "Images",
		},
		Animation: AnimationConfig{
			Duration: 500 * time.Millisecond,
			Tick:     13 * time.Millisecond,
			Curve:    "cosine",
		},
		Prefs: PrefsConfig{
			File: filepath.Join(dir, "preferences.toml"),
		},
		Logging: LoggingConfig{
			File:       filepath.Join(dir, "calcwidget.log"),
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
		Bridge: BridgeConfig{
			Host: "127.0.0.1",
			Port: 4242,
		},
	}
}

// DefaultDir is the per-user directory for preferences and logs.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "calcwidget")
	}
	return ".calcwidget"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// Validate rejects settings the widget cannot run with.
func (c *Config) Validate() error {
	if c.Animation.Duration <= 0 {
		return fmt.Errorf("animation.duration must be positive, got %v", c.Animation.Duration)
	}
	if c.Animation.Tick <= 0 {
		return fmt.Errorf("animation.tick must be positive, got %v", c.Animation.Tick)
	}
	if c.Worker.Command == "" && c.Worker.URL == "" {
		return errors.New("worker.command or worker.url is required")
	}
	if c.Bridge.Port < 0 || c.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port out of range: %d", c.Bridge.Port)
	}
	return nil
}

// DisplayPath resolves the display image relative to the worker directory,
// where the worker writes it.
func (c *Config) DisplayPath() string {
	if filepath.IsAbs(c.Worker.DisplayImage) || c.Worker.Dir == "" {
		return c.Worker.DisplayImage
	}
	return filepath.Join(c.Worker.Dir, c.Worker.DisplayImage)
}
