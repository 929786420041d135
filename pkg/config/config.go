// Package config loads viewer settings from defaults, a YAML file and
// PDFVIEW_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/AOShei/pdf-viewer/pkg/viewer"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = ".pdfview.yml"

const envPrefix = "PDFVIEW_"

// Config corresponds to .pdfview.yml.
type Config struct {
	Backend            string        `yaml:"backend" koanf:"backend"`
	Width              float64       `yaml:"width" koanf:"width"`
	Height             float64       `yaml:"height" koanf:"height"`
	Scale              string        `yaml:"scale" koanf:"scale"`
	Page               int           `yaml:"page" koanf:"page"`
	Rotation           int           `yaml:"rotation" koanf:"rotation"`
	ResizeDebounce     time.Duration `yaml:"resize_debounce" koanf:"resize_debounce"`
	ScrollbarAllowance float64       `yaml:"scrollbar_allowance" koanf:"scrollbar_allowance"`
	Server             ServerConfig  `yaml:"server" koanf:"server"`
}

// ServerConfig holds settings for the serve command.
type ServerConfig struct {
	Addr            string `yaml:"addr" koanf:"addr"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() *Config {
	return &Config{
		Backend:            "native",
		Width:              800,
		Height:             600,
		Scale:              "cover",
		Page:               1,
		ResizeDebounce:     viewer.DefaultResizeDebounce,
		ScrollbarAllowance: viewer.DefaultScrollbarAllowance,
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PDFVIEW_*). A missing file is not an
// error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// PDFVIEW_SERVER_ADDR -> server.addr, PDFVIEW_SCALE -> scale.
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if rest, ok := strings.CutPrefix(key, "server_"); ok {
		return "server." + rest
	}
	return key
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid container size %gx%g", c.Width, c.Height)
	}
	if c.Page < 1 {
		return fmt.Errorf("page must be at least 1")
	}
	if c.Rotation%90 != 0 {
		return fmt.Errorf("invalid rotation %d: must be a multiple of 90", c.Rotation)
	}
	if c.ResizeDebounce < 0 {
		return fmt.Errorf("resize_debounce must be non-negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// ViewerScale parses the scale setting. Unrecognised values fall back to 1,
// the same as the scale attribute.
func (c *Config) ViewerScale() viewer.Scale {
	return viewer.ParseScale(c.Scale)
}
