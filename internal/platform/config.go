package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/datastore/pkg/core"
)

// ConfigFileNames are the file names FindConfig looks for, in order.
var ConfigFileNames = []string{"datastore.yaml", "datastore.yml", ".datastore.yaml"}

// ResourceConfig declares one resource in a configuration file.
type ResourceConfig struct {
	Name           string `yaml:"name"`
	IDAttribute    string `yaml:"idAttribute,omitempty"`
	DefaultAdapter string `yaml:"defaultAdapter,omitempty"`
}

// Config is the on-disk configuration of a store.
//
//	defaultAdapter: memory
//	eventBuffer: 100
//	resources:
//	  - name: post
//	fixtures:
//	  - fixtures/posts.yaml
type Config struct {
	DefaultAdapter string           `yaml:"defaultAdapter,omitempty"`
	EventBuffer    int              `yaml:"eventBuffer,omitempty"`
	Resources      []ResourceConfig `yaml:"resources"`
	Fixtures       []string         `yaml:"fixtures,omitempty"`

	// Dir is the directory the file was loaded from; fixture paths are relative to it.
	Dir string `yaml:"-"`
}

// LoadConfig reads and validates the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.Dir = abs
	return &cfg, nil
}

// Validate checks that resource names are present and unique.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Resources))
	for i, r := range c.Resources {
		if r.Name == "" {
			return fmt.Errorf("resources[%d]: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("resources[%d]: duplicate resource %q", i, r.Name)
		}
		seen[r.Name] = true
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("eventBuffer must not be negative")
	}
	return nil
}

// Definitions converts the declared resources.
func (c *Config) Definitions() []core.Definition {
	defs := make([]core.Definition, 0, len(c.Resources))
	for _, r := range c.Resources {
		defs = append(defs, core.Definition{
			Name:           r.Name,
			IDAttribute:    r.IDAttribute,
			DefaultAdapter: r.DefaultAdapter,
		})
	}
	return defs
}

// FixturePaths resolves the fixture files against the config directory.
func (c *Config) FixturePaths() []string {
	paths := make([]string, 0, len(c.Fixtures))
	for _, p := range c.Fixtures {
		if !filepath.IsAbs(p) && c.Dir != "" {
			p = filepath.Join(c.Dir, p)
		}
		paths = append(paths, p)
	}
	return paths
}
