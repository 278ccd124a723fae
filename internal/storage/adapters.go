package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/config"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

// Supported values of database.driver.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// NewRepository builds the Repository selected by cfg.Database.Driver.
func NewRepository(ctx context.Context, cfg *config.Config) (Repository, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch driver {
	case "", DriverPostgres:
		if cfg.Database.PostgresDSN == "" {
			return nil, fmt.Errorf("%w: database.postgresDSN is required for the postgres driver", apperrors.ErrBadRequest)
		}
		repo, err := NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate, cfg.Database.Schema)
		if err != nil {
			return nil, err
		}
		logger.FromContext(ctx).Info("Using postgres repository", zap.String("schema", cfg.Database.Schema))
		return repo, nil
	case DriverMemory:
		logger.FromContext(ctx).Warn("Using in-memory repository; data is lost on restart")
		return NewMemoryRepo(), nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", apperrors.ErrBadRequest, cfg.Database.Driver)
	}
}

// Compile-time checks.
var (
	_ Repository = (*PostgresRepo)(nil)
	_ Repository = (*MemoryRepo)(nil)
)
