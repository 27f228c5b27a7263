// Package config holds the service configuration and its YAML loader.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/regard/diff"
	"github.com/hazyhaar/regard/suggest"
	"github.com/hazyhaar/regard/validate"
)

// Config holds all regard configuration.
type Config struct {
	DBPath  string        `yaml:"db_path"`
	Listen  string        `yaml:"listen"`
	Compare CompareConfig `yaml:"compare"`
	Browser BrowserConfig `yaml:"browser"`
}

// CompareConfig controls the comparison pipeline defaults.
type CompareConfig struct {
	Threshold     float64 `yaml:"threshold"`
	MaxIterations int     `yaml:"max_iterations"`
	DiffThreshold int     `yaml:"diff_threshold"`
	MergeDistance int     `yaml:"merge_distance"`
}

// BrowserConfig controls the capture browser.
type BrowserConfig struct {
	RemoteURL       string        `yaml:"remote_url"`
	ViewportWidth   int           `yaml:"viewport_width"`
	ViewportHeight  int           `yaml:"viewport_height"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
}

func (c *Config) Defaults() {
	if c.DBPath == "" {
		c.DBPath = "regard.db"
	}
	if c.Listen == "" {
		c.Listen = ":8844"
	}
	if c.Compare.Threshold <= 0 {
		c.Compare.Threshold = validate.DefaultThreshold
	}
	if c.Compare.MaxIterations <= 0 {
		c.Compare.MaxIterations = validate.DefaultMaxIterations
	}
	if c.Compare.DiffThreshold <= 0 {
		c.Compare.DiffThreshold = diff.DefaultThreshold
	}
	if c.Compare.MergeDistance <= 0 {
		c.Compare.MergeDistance = diff.DefaultMergeDistance
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = suggest.DefaultViewportWidth
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = suggest.DefaultViewportHeight
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
}

// LoadFile reads a YAML config file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Defaults()
	return cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.Defaults()
	return cfg
}
