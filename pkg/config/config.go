// Package config handles configuration loading from a YAML file with
// sensible defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Import ImportConfig `yaml:"import"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// ImportConfig configures the ingestion pipeline. The byte threshold is an
// approximation knob, not an exact memory bound.
type ImportConfig struct {
	BatchRows  int `yaml:"batch_rows"`
	BatchBytes int `yaml:"batch_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store:  StoreConfig{Path: "audit.db"},
		Server: ServerConfig{Listen: "localhost:8980"},
		Import: ImportConfig{
			BatchRows:  10000,
			BatchBytes: 16 << 20,
		},
	}
}

// Load reads a YAML config file, filling unset fields from defaults.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Import.BatchRows <= 0 {
		cfg.Import.BatchRows = Default().Import.BatchRows
	}
	if cfg.Import.BatchBytes <= 0 {
		cfg.Import.BatchBytes = Default().Import.BatchBytes
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = Default().Store.Path
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = Default().Server.Listen
	}

	return cfg, nil
}
