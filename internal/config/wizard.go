package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"
)

// RunWizard interactively builds a Config and saves it to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Configuring meshtrust.")
	fmt.Println()

	cfg := DefaultConfig()

	dataPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	backendPrompt := promptui.Select{
		Label: "Storage backend",
		Items: []string{string(BackendSQLite), string(BackendRedis), string(BackendPostgres)},
	}
	_, backend, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("storage backend: %w", err)
	}
	cfg.Storage.Backend = StorageBackend(backend)

	switch cfg.Storage.Backend {
	case BackendRedis:
		urlPrompt := promptui.Prompt{Label: "Redis URL", Default: "redis://localhost:6379/0"}
		if cfg.Storage.RedisURL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
	case BackendPostgres:
		dsnPrompt := promptui.Prompt{Label: "PostgreSQL DSN", Default: "postgres://localhost/meshtrust?sslmode=disable"}
		if cfg.Storage.PostgresDSN, err = dsnPrompt.Run(); err != nil {
			return nil, fmt.Errorf("postgres dsn: %w", err)
		}
	}

	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("port must be 1-65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	intervalPrompt := promptui.Prompt{
		Label:   "Retention check interval (0 disables)",
		Default: cfg.Maintenance.Interval.String(),
		Validate: func(s string) error {
			d, err := time.ParseDuration(s)
			if err != nil || d < 0 {
				return fmt.Errorf("enter a non-negative duration such as 10m")
			}
			return nil
		},
	}
	intervalStr, err := intervalPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("interval: %w", err)
	}
	cfg.Maintenance.Interval, _ = time.ParseDuration(intervalStr)

	levelPrompt := promptui.Select{
		Label: "Log level",
		Items: []string{"info", "debug", "warn", "error"},
	}
	_, level, err := levelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Log.Level = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
