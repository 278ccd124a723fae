package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/validator"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

const importPublishTimeout = 10 * time.Second

func importCmd(configPath *string) *cobra.Command {
	var (
		workspaceID string
		callListID  string
		file        string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Queue call list items for import",
		Long: `Reads a JSON array of items ({"student_id", "assigned_to", "priority", "custom"})
and publishes it to the import stream. The running service adds the items,
skipping students already in the call list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			payload := model.ImportItemsPayload{WorkspaceID: workspaceID, CallListID: callListID}
			if err := json.Unmarshal(raw, &payload.Items); err != nil {
				return fmt.Errorf("failed to decode items: %w", err)
			}
			if err := validator.Validate(payload); err != nil {
				return err
			}
			data, err := json.Marshal(payload)
			if err != nil {
				return err
			}

			jsClient, err := initJetStreamClient(cfg.NATS.URL)
			if err != nil {
				return err
			}
			defer jsClient.Close()

			subject := string(model.V1ItemsImport) + "." + workspaceID
			msgID := uuid.NewString()
			publish := utils.WrapWithContextRecovery(func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, importPublishTimeout)
				defer cancel()
				return jsClient.Publish(ctx, subject, data, msgID)
			})
			if err := publish(context.Background()); err != nil {
				return fmt.Errorf("failed to publish import: %w", err)
			}

			logger.Log.Info("Import queued",
				zap.String("subject", subject),
				zap.String("msg_id", msgID),
				zap.Int("items", len(payload.Items)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&callListID, "call-list", "", "target call list id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the items")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("call-list")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
