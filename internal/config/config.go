// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config loads the overlayd configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/overlay"
)

// Config is the daemon configuration.
type Config struct {
	// LogLevel is a slog level name: debug, info, warn or error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// Address is the framebuffer server pipe or socket. Empty selects the
	// platform default.
	Address string `mapstructure:"address" yaml:"address"`

	// Backend names the device backend; empty picks the best available.
	Backend string `mapstructure:"backend" yaml:"backend"`

	Shared        bool `mapstructure:"shared" yaml:"shared"`
	Notifications bool `mapstructure:"notifications" yaml:"notifications"`

	Indicators Indicators `mapstructure:"indicators" yaml:"indicators"`
	Render     Render     `mapstructure:"render" yaml:"render"`
}

// Indicators configures indicator artwork.
type Indicators struct {
	// Font is a TrueType file for text labels; empty uses Go Bold.
	Font     string  `mapstructure:"font" yaml:"font"`
	FontSize float64 `mapstructure:"font_size" yaml:"font_size"`

	// Icons maps indicator names to BMP or PNG files that replace the
	// rendered label.
	Icons map[string]string `mapstructure:"icons" yaml:"icons,omitempty"`
}

// Render configures the headless render command.
type Render struct {
	Width  int    `mapstructure:"width" yaml:"width"`
	Height int    `mapstructure:"height" yaml:"height"`
	Output string `mapstructure:"output" yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		Shared:        true,
		Notifications: true,
		Indicators: Indicators{
			FontSize: 16,
		},
		Render: Render{
			Width:  1280,
			Height: 720,
			Output: "overlay.png",
		},
	}
}

// Load reads cfgFile, or overlayd.yaml from the config directory or the
// working directory when cfgFile is empty. A missing default file is not an
// error. OVERLAY_* environment variables override file values.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("overlayd")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("OVERLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// no file sets them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("address", cfg.Address)
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("shared", cfg.Shared)
	v.SetDefault("notifications", cfg.Notifications)
	v.SetDefault("indicators.font", cfg.Indicators.Font)
	v.SetDefault("indicators.font_size", cfg.Indicators.FontSize)
	v.SetDefault("render.width", cfg.Render.Width)
	v.SetDefault("render.height", cfg.Render.Height)
	v.SetDefault("render.output", cfg.Render.Output)
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Indicators.FontSize <= 0 {
		return fmt.Errorf("config: indicators.font_size must be positive, got %v", c.Indicators.FontSize)
	}
	for name := range c.Indicators.Icons {
		if _, err := overlay.ParseIndicator(name); err != nil {
			return fmt.Errorf("config: indicators.icons: %w", err)
		}
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("config: render size %dx%d", c.Render.Width, c.Render.Height)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// YAML encodes the configuration.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return out, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	out, err := c.YAML()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Dir is the system configuration directory.
func Dir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "overlay")
	case "darwin":
		return "/Library/Application Support/overlay"
	default:
		return "/etc/overlay"
	}
}
