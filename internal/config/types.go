package config

import "time"

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// StorageBackend selects where trust and verification state is persisted.
type StorageBackend string

const (
	BackendSQLite   StorageBackend = "sqlite"
	BackendRedis    StorageBackend = "redis"
	BackendPostgres StorageBackend = "postgres"
)

// Config is the top-level meshtrust configuration, corresponding to .meshtrust.yml.
type Config struct {
	DataDir     string            `yaml:"data_dir" koanf:"data_dir"`
	Database    string            `yaml:"database" koanf:"database"`
	Storage     StorageConfig     `yaml:"storage" koanf:"storage"`
	Server      ServerConfig      `yaml:"server" koanf:"server"`
	Maintenance MaintenanceConfig `yaml:"maintenance" koanf:"maintenance"`
	Log         LogConfig         `yaml:"log" koanf:"log"`
}

// StorageConfig holds the state backend. The audit trail always stays in
// the local SQLite database.
type StorageConfig struct {
	Backend     StorageBackend `yaml:"backend" koanf:"backend"`
	RedisURL    string         `yaml:"redis_url,omitempty" koanf:"redis_url"`
	PostgresDSN string         `yaml:"postgres_dsn,omitempty" koanf:"postgres_dsn"`
	KeyPrefix   string         `yaml:"key_prefix,omitempty" koanf:"key_prefix"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// MaintenanceConfig controls the retention tick. A zero Interval disables it.
type MaintenanceConfig struct {
	Interval time.Duration `yaml:"interval" koanf:"interval"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string    `yaml:"level" koanf:"level"`
	Format LogFormat `yaml:"format" koanf:"format"`
}
