package handler

import (
	"context"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

// EventHandlerInterface defines the common interface for event handlers
type EventHandlerInterface interface {
	HandleEvent(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error
}

// ItemImporter adds items to a call list on behalf of the import pipeline.
type ItemImporter interface {
	ImportItems(ctx context.Context, payload model.ImportItemsPayload) (*model.AddItemsResult, error)
}

var _ EventHandlerInterface = (*ImportHandler)(nil)
