package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "hnsw"
	}
	if cfg.Index.Dimensions == 0 {
		cfg.Index.Dimensions = 384
	}
	if cfg.Index.Capacity == 0 {
		cfg.Index.Capacity = 1000
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "/usr/local/var/vexus/data/index.vexus"
	}
	if cfg.Recovery.Driver == "" {
		cfg.Recovery.Driver = "sqlite3"
	}
	if cfg.Recovery.DSN == "" && cfg.Recovery.IsFile() {
		cfg.Recovery.DSN = "/usr/local/var/vexus/data/knowledge.db"
	}
	if cfg.Recovery.Table == "" {
		cfg.Recovery.Table = "tags"
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
