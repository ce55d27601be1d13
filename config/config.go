// Package config loads the server configuration: mount declarations,
// rescan policy, snapshot cache location and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tonearm/tonearm/vfs"
)

var (
	ErrNoMounts           = errors.New("config: no mounts declared")
	ErrDuplicateMountName = errors.New("config: duplicate mount name")
	ErrIncompleteMount    = errors.New("config: mount requires both name and path")
)

const DefaultRescanInterval = 30 * time.Minute

// Duration wraps time.Duration with YAML parsing of values like "30m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

type MountConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

type Config struct {
	Mounts         []MountConfig `yaml:"mounts"`
	RescanInterval Duration      `yaml:"rescan_interval"`
	SnapshotCache  string        `yaml:"snapshot_cache"`
	Log            LogConfig     `yaml:"log"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return Parse(raw)
}

// Parse validates raw YAML configuration bytes.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if len(cfg.Mounts) == 0 {
		return nil, ErrNoMounts
	}

	seen := make(map[string]bool, len(cfg.Mounts))
	for _, m := range cfg.Mounts {
		if m.Name == "" || m.Path == "" {
			return nil, fmt.Errorf("%w: %+v", ErrIncompleteMount, m)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMountName, m.Name)
		}
		seen[m.Name] = true
	}

	if cfg.RescanInterval <= 0 {
		cfg.RescanInterval = Duration(DefaultRescanInterval)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// MountPoints converts the declarations into the VFS representation.
func (c *Config) MountPoints() []vfs.MountPoint {
	points := make([]vfs.MountPoint, len(c.Mounts))
	for i, m := range c.Mounts {
		points[i] = vfs.MountPoint{Name: m.Name, RealRoot: m.Path}
	}
	return points
}
