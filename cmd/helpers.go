package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/meshtrust/internal/audit"
	"github.com/ziadkadry99/meshtrust/internal/blobstore"
	"github.com/ziadkadry99/meshtrust/internal/config"
	"github.com/ziadkadry99/meshtrust/internal/db"
	"github.com/ziadkadry99/meshtrust/internal/logging"
	"github.com/ziadkadry99/meshtrust/internal/scoring"
	"github.com/ziadkadry99/meshtrust/internal/trust"
	"github.com/ziadkadry99/meshtrust/internal/verification"
)

// Key-value namespaces the two stores persist under.
const (
	trustNamespace        = "trust"
	verificationNamespace = "verification"
)

// engine bundles every component a command may need over one database.
type engine struct {
	cfg           *config.Config
	logger        *slog.Logger
	db            *db.DB
	backend       blobstore.Backend
	audit         *audit.Store
	trust         *trust.Store
	verifications *verification.Store
	scorer        *scoring.Scorer
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `meshtrust init` to create a config file", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openEngine loads config, opens the database and builds the stores.
func openEngine(ctx context.Context) (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	backend, err := blobstore.Open(ctx, cfg.Storage, database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}
	logger.Debug("storage opened", "backend", backend.Name(), "database", database.Path())

	auditStore := audit.NewStore(database)
	ts := trust.NewStore(ctx, backend.Namespace(trustNamespace),
		trust.WithLogger(logger),
		trust.WithAuditor(auditStore),
	)
	vs := verification.NewStore(ctx, backend.Namespace(verificationNamespace),
		verification.WithLogger(logger),
		verification.WithAuditor(auditStore),
	)

	return &engine{
		cfg:           cfg,
		logger:        logger,
		db:            database,
		backend:       backend,
		audit:         auditStore,
		trust:         ts,
		verifications: vs,
		scorer:        scoring.NewScorer(ts, vs),
	}, nil
}

func (e *engine) Close() error {
	return errors.Join(e.backend.Close(), e.db.Close())
}

// confirm asks a yes/no question unless skip is set. A declined or
// interrupted prompt returns false with no error.
func confirm(label string, skip bool) (bool, error) {
	if skip {
		return true, nil
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
