// Package config loads the VM's boot-time configuration: classpath
// roots, the -Xss frame-depth limit, and the diagnostic level, from an
// optional YAML file. Absent a -config flag, Load returns Default(),
// which the CLI flags alone can still override.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the VM's resolved boot configuration (spec.md §6 external
// interfaces, expanded per SPEC_FULL.md §2/§6).
type Config struct {
	ClasspathRoots []string `yaml:"classpathRoots"`
	MaxFrameDepth  int      `yaml:"maxFrameDepth"`
	DebugLevel     string   `yaml:"debugLevel"`
}

// Default mirrors the JVM's own defaults closely enough to run without
// any configuration at all: a generous but bounded call-stack depth, no
// extra classpath roots, and quiet logging.
func Default() *Config {
	return &Config{
		ClasspathRoots: nil,
		MaxFrameDepth:  512,
		DebugLevel:     "error",
	}
}

// Load reads and parses path, starting from Default() so a config file
// only needs to override the fields it cares about.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
