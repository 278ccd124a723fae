package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/config"
)

func TestNewRepository(t *testing.T) {
	t.Run("Memory driver", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Database.Driver = "Memory"

		repo, err := NewRepository(context.Background(), cfg)
		require.NoError(t, err)
		assert.IsType(t, &MemoryRepo{}, repo)
		assert.NoError(t, repo.Ping(context.Background()))
	})

	t.Run("Postgres driver without DSN", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Database.Driver = DriverPostgres

		_, err := NewRepository(context.Background(), cfg)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})

	t.Run("Unknown driver", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Database.Driver = "mongo"

		_, err := NewRepository(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mongo")
	})
}
