// Package config provides configuration loading and structs for the vexus server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Index    IndexConfig    `yaml:"index"`
	Recovery RecoveryConfig `yaml:"recovery"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// IndexConfig describes the vector store and where it is persisted.
type IndexConfig struct {
	Type           string `yaml:"type"`
	Dimensions     int    `yaml:"dimensions"`
	Capacity       int    `yaml:"capacity"`
	Path           string `yaml:"path"`
	LoadOnStartup  *bool  `yaml:"load_on_startup"`
	SaveOnShutdown *bool  `yaml:"save_on_shutdown"`
	// Follow reloads the index whenever another process replaces the file at Path.
	Follow bool `yaml:"follow"`
}

// LoadOnStartupOrDefault returns whether to load an existing index; defaults to true when unset.
func (i *IndexConfig) LoadOnStartupOrDefault() bool {
	if i.LoadOnStartup != nil {
		return *i.LoadOnStartup
	}
	return true
}

// SaveOnShutdownOrDefault returns whether to save on shutdown; defaults to true when unset.
func (i *IndexConfig) SaveOnShutdownOrDefault() bool {
	if i.SaveOnShutdown != nil {
		return *i.SaveOnShutdown
	}
	return true
}

// RecoveryConfig names the relational database that vectors are rebuilt from.
type RecoveryConfig struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Table     string `yaml:"table"`
	Group     string `yaml:"group"`
	OnStartup bool   `yaml:"on_startup"`
}

// IsFile reports whether DSN is a filesystem path (the SQLite drivers).
func (r *RecoveryConfig) IsFile() bool {
	return r.Driver == "sqlite3" || r.Driver == "sqlite"
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Index.Path = expandPath(cfg.Index.Path, configDir)
	if cfg.Recovery.IsFile() {
		cfg.Recovery.DSN = expandPath(cfg.Recovery.DSN, configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the store cannot run with.
func Validate(cfg *Config) error {
	if cfg.Index.Dimensions <= 0 {
		return fmt.Errorf("index.dimensions must be positive, got %d", cfg.Index.Dimensions)
	}
	if cfg.Index.Capacity < 0 {
		return fmt.Errorf("index.capacity must not be negative, got %d", cfg.Index.Capacity)
	}
	switch cfg.Index.Type {
	case "hnsw", "memory":
	default:
		return fmt.Errorf("unknown index.type %q (supported: hnsw, memory)", cfg.Index.Type)
	}
	switch cfg.Recovery.Driver {
	case "sqlite3", "sqlite", "pgx":
	default:
		return fmt.Errorf("unknown recovery.driver %q (supported: sqlite3, sqlite, pgx)", cfg.Recovery.Driver)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
