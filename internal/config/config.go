// Package config loads the optional YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

var themes = []string{"auto", "light", "dark"}

type Config struct {
	Theme      string `yaml:"theme"`
	AutoReload bool   `yaml:"auto_reload"`
	Verbose    bool   `yaml:"verbose"`
	Graph      Graph  `yaml:"graph"`
	Watch      Watch  `yaml:"watch"`
}

type Graph struct {
	IncludeRemoteBranches bool    `yaml:"include_remote_branches"`
	PaddingRows           int     `yaml:"padding_rows"`
	RowPitch              float32 `yaml:"row_pitch"`
	LaneSpacing           float32 `yaml:"lane_spacing"`
}

type Watch struct {
	DebounceMS int      `yaml:"debounce_ms"`
	Ignore     []string `yaml:"ignore"`
}

func Default() Config {
	return Config{
		Theme:      "auto",
		AutoReload: true,
		Graph: Graph{
			IncludeRemoteBranches: true,
			PaddingRows:           8,
			RowPitch:              24,
			LaneSpacing:           16,
		},
		Watch: Watch{
			DebounceMS: 350,
			Ignore:     []string{"*.lock", "*.ipc"},
		},
	}
}

// Debounce returns the watcher delay as a duration.
func (w Watch) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// DefaultPath returns $XDG_CONFIG_HOME/gitlanes/config.yaml, falling back
// to the platform user config directory.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return "", fmt.Errorf("locate config dir: %w", err)
		}
	}
	return filepath.Join(dir, "gitlanes", "config.yaml"), nil
}

// Load reads path over the defaults. An empty path means DefaultPath, and
// a missing default file is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return cfg, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, cfg)
}

// Parse decodes data over base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	if !slices.Contains(themes, c.Theme) {
		return fmt.Errorf("%w: theme %q is not one of %s", ErrInvalidConfig, c.Theme, strings.Join(themes, ", "))
	}
	switch {
	case c.Graph.PaddingRows < 0:
		return fmt.Errorf("%w: graph.padding_rows must not be negative", ErrInvalidConfig)
	case c.Graph.RowPitch <= 0:
		return fmt.Errorf("%w: graph.row_pitch must be positive", ErrInvalidConfig)
	case c.Graph.LaneSpacing <= 0:
		return fmt.Errorf("%w: graph.lane_spacing must be positive", ErrInvalidConfig)
	case c.Watch.DebounceMS < 0:
		return fmt.Errorf("%w: watch.debounce_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}
