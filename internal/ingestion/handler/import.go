package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/observer"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

// ImportHandler turns import messages into call list items.
type ImportHandler struct {
	importer ItemImporter
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer ItemImporter) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// HandleEvent decodes and applies one import. Errors that a redelivery
// cannot fix are returned as fatal, everything else as retryable.
func (h *ImportHandler) HandleEvent(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx)
	if eventType != model.V1ItemsImport {
		return apperrors.NewFatal(fmt.Errorf("unsupported event type: %s", eventType), "import handler")
	}

	var payload model.ImportItemsPayload
	if err := json.Unmarshal(rawEvent, &payload); err != nil {
		log.Error("Failed to unmarshal import payload", zap.Error(err))
		return apperrors.NewFatal(err, "failed to unmarshal import payload")
	}
	if payload.WorkspaceID == "" {
		payload.WorkspaceID = metadata.WorkspaceID
	}
	if metadata.WorkspaceID != "" && payload.WorkspaceID != metadata.WorkspaceID {
		return apperrors.NewFatal(apperrors.ErrBadRequest,
			"payload workspace %s does not match subject workspace %s", payload.WorkspaceID, metadata.WorkspaceID)
	}

	res, err := h.importer.ImportItems(ctx, payload)
	if err != nil {
		if isPermanent(err) {
			log.Warn("Rejecting import", zap.String("call_list_id", payload.CallListID), zap.Error(err))
			return apperrors.NewFatal(err, "import rejected")
		}
		return apperrors.NewRetryable(err, "import failed")
	}

	observer.AddImportItems(payload.WorkspaceID, "created", len(res.Created))
	observer.AddImportItems(payload.WorkspaceID, "skipped", len(res.SkippedStudents))
	log.Info("Import applied",
		zap.String("call_list_id", payload.CallListID),
		zap.Int("created", len(res.Created)),
		zap.Int("skipped", len(res.SkippedStudents)),
	)
	return nil
}

func isPermanent(err error) bool {
	for _, target := range []error{
		apperrors.ErrValidation,
		apperrors.ErrNotFound,
		apperrors.ErrForbidden,
		apperrors.ErrBadRequest,
		apperrors.ErrDuplicate,
		apperrors.ErrUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
