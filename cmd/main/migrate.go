package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the call campaign tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Database.PostgresDSN == "" {
				return fmt.Errorf("postgres DSN is required")
			}
			repo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, false, cfg.Database.Schema)
			if err != nil {
				return err
			}
			ctx := context.Background()
			defer repo.Close(ctx)

			return repo.Migrate(ctx)
		},
	}
}
