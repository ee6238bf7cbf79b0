package config

import "time"

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = ".meshtrust.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  ".meshtrust",
		Database: "meshtrust.db",
		Storage: StorageConfig{
			Backend:   BackendSQLite,
			KeyPrefix: "meshtrust:",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Maintenance: MaintenanceConfig{
			Interval: 10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}
