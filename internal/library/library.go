package library

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ConfigFile is the filename of the source registry under the config
// directory.
const ConfigFile = "libraries.yaml"

// Source is one named template library root.
type Source struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Config is the parsed libraries.yaml: the ordered list of sources.
type Config struct {
	Sources []Source `yaml:"sources"`
}

func configPath(configDir string) string {
	return filepath.Join(configDir, ConfigFile)
}

// Load reads the source registry from the config directory. A missing
// file is not an error: it loads as an empty registry.
func Load(configDir string) (*Config, error) {
	data, err := os.ReadFile(configPath(configDir))
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ConfigFile, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
	}
	return &cfg, nil
}

// Save writes the source registry back to the config directory.
func Save(configDir string, cfg *Config) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", ConfigFile, err)
	}
	if err := os.WriteFile(configPath(configDir), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", ConfigFile, err)
	}
	return nil
}

// Find returns the source with the given name, or nil.
func (c *Config) Find(name string) *Source {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i]
		}
	}
	return nil
}

// Add appends a source. The name must be unused and the path must be an
// existing directory.
func (c *Config) Add(src Source) error {
	if src.Name == "" {
		return fmt.Errorf("source name must not be empty")
	}
	if c.Find(src.Name) != nil {
		return fmt.Errorf("source %q already exists", src.Name)
	}
	info, err := os.Stat(src.Path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", src.Path)
	}
	c.Sources = append(c.Sources, src)
	return nil
}

// Remove drops a source by name.
func (c *Config) Remove(name string) error {
	for i, src := range c.Sources {
		if src.Name == name {
			c.Sources = append(c.Sources[:i], c.Sources[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("source %q not found", name)
}
