package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		return nil, err
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	return cfg, cfg.Validate()
}

// LoadFrom loads defaults merged with the YAML file at path.
// An empty path yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Ingest.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.block_size must be positive, got %d", c.Ingest.BlockSize))
	}
	if c.Ingest.Stride < 1 {
		errs = append(errs, fmt.Errorf("ingest.stride must be at least 1, got %d", c.Ingest.Stride))
	}
	if c.Ingest.Workers < 0 || c.LOD.Workers < 0 {
		errs = append(errs, errors.New("worker counts must not be negative"))
	}
	if !(c.Partition.ChunkSize > 0) {
		errs = append(errs, fmt.Errorf("partition.chunk_size must be positive, got %g", c.Partition.ChunkSize))
	}
	return errors.Join(errs...)
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./pcloud.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "PCloud")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "PCloud")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "pcloud")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "pcloud")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
